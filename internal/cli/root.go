// Package cli provides the command-line interface for matsim.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/matsim/internal/config"
	"github.com/raphaelgruber/matsim/internal/metrics"
	"github.com/raphaelgruber/matsim/internal/service"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose     bool
	catalogPath string

	// Set up by PersistentPreRunE
	cfg        config.Config
	logger     *slog.Logger
	logCleanup func() error
	st         store
	collector  *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "matsim",
	Short: "Compare building materials by their properties",
	Long: `Matsim compares building materials (tiles, stone, wood, fabric, ...) property
by property and ranks catalog entries by weighted similarity.

Materials live either in a SurrealDB catalog (SURREALDB_* variables) or in a
YAML catalog file given with --catalog or MATSIM_CATALOG.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip store setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()
		if catalogPath == "" {
			catalogPath = cfg.Catalog
		}

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, logCleanup = config.SetupLogger(cmd.ErrOrStderr(), cfg.LogFile, level)
		collector = metrics.NewCollector()

		var err error
		st, err = openStore(cmd.Context(), cfg, catalogPath, logger)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if collector != nil && logger != nil {
			logStats(logger, collector.Snapshot())
		}
		if st != nil {
			if err := st.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close store: %v\n", err)
			}
			st = nil
		}
		if logCleanup != nil {
			_ = logCleanup()
			logCleanup = nil
		}
	},
}

// newComparisonService wires the comparison engine to the open store.
func newComparisonService() *service.ComparisonService {
	return service.NewComparisonService(st, st, st, service.ComparisonConfig{
		Workers:          cfg.Workers,
		FetchConcurrency: cfg.FetchConcurrency,
		Overfetch:        cfg.Overfetch,
		Logger:           logger,
		Metrics:          collector,
	})
}

func logStats(log *slog.Logger, snap metrics.Snapshot) {
	snap.Each(func(op string, s *metrics.OperationSnapshot) {
		log.Debug("operation stats",
			"op", op,
			"count", s.Count,
			"failures", s.Failures,
			"items", s.TotalItems,
			"avg_ms", s.AvgTimeMs,
			"max_ms", s.MaxTimeMs,
		)
	})
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "catalog", "", "YAML catalog file (default: SurrealDB)")

	// Add subcommands
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(matrixCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(materialsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "matsim %s\n", Version)
	},
}
