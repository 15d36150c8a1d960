// Package config loads matsim settings from the environment.
package config

import (
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cast"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection, used when no catalog file is given
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Catalog is a YAML catalog file. When set, SurrealDB is not used.
	Catalog string

	// Comparison engine
	Workers          int
	FetchConcurrency int
	Overfetch        int

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "catalog"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "materials"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		Catalog: getEnv("MATSIM_CATALOG", ""),

		Workers:          getEnvInt("MATSIM_WORKERS", runtime.NumCPU()),
		FetchConcurrency: getEnvInt("MATSIM_FETCH_CONCURRENCY", 8),
		Overfetch:        getEnvInt("MATSIM_OVERFETCH", 3),

		LogFile:  getEnv("MATSIM_LOG_FILE", "/tmp/matsim.log"),
		LogLevel: parseLogLevel(getEnv("MATSIM_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns defaultVal for unset, unparsable or non-positive values.
func getEnvInt(key string, defaultVal int) int {
	n, err := cast.ToIntE(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
