//go:build integration

package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const surrealImage = "surrealdb/surrealdb:v3.0.0-beta.1"

var testDB *Client

// TestMain connects every integration test to one SurrealDB. It uses
// SURREALDB_TEST_URL when set and starts a container otherwise.
func TestMain(m *testing.M) {
	ctx := context.Background()

	url := os.Getenv("SURREALDB_TEST_URL")
	var container testcontainers.Container
	if url == "" {
		var err error
		container, url, err = startSurreal(ctx)
		if err != nil {
			log.Fatalf("start SurrealDB: %v", err)
		}
	}

	var err error
	testDB, err = NewClient(ctx, Config{
		URL:       url,
		Namespace: "test",
		Database:  "materials",
		Username:  "root",
		Password:  "root",
		AuthLevel: AuthRoot,
	}, nil)
	if err != nil {
		log.Fatalf("connect to test database: %v", err)
	}
	if err := testDB.InitSchema(ctx); err != nil {
		log.Fatalf("init schema: %v", err)
	}

	code := m.Run()

	_ = testDB.Close(ctx)
	if container != nil {
		_ = container.Terminate(ctx)
	}
	os.Exit(code)
}

func startSurreal(ctx context.Context) (testcontainers.Container, string, error) {
	// ryuk is unreliable on rootless docker
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        surrealImage,
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("container host: %w", err)
	}
	// some docker setups report "null"
	if host == "" || host == "null" {
		host = "localhost"
	}
	port, err := container.MappedPort(ctx, "8000")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("mapped port: %w", err)
	}
	return container, fmt.Sprintf("ws://%s:%s/rpc", host, port.Port()), nil
}

// resetDB wipes every table and returns a context bounded to the test.
func resetDB(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	if err := testDB.WipeData(ctx); err != nil {
		t.Fatalf("wipe data: %v", err)
	}
	return ctx
}
