package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/matsim/internal/catalog"
	"github.com/raphaelgruber/matsim/internal/config"
	"github.com/raphaelgruber/matsim/internal/db"
	"github.com/raphaelgruber/matsim/internal/models"
	"github.com/raphaelgruber/matsim/internal/service"
)

// store is what the commands need from a backend. Both the SurrealDB client
// and the YAML catalog satisfy it.
type store interface {
	service.MaterialStore
	service.PresetStore
	service.ResultStore

	ListMaterials(ctx context.Context, materialType string) ([]models.Material, error)
	UpsertMaterial(ctx context.Context, in models.MaterialInput) (*models.Material, error)
	DeleteMaterial(ctx context.Context, ids ...string) (int, error)
	UpsertPreset(ctx context.Context, p models.ComparisonPreset) (*models.ComparisonPreset, error)
	ListComparisonResults(ctx context.Context, materialID string, limit int) ([]models.ComparisonResult, error)

	// Flush persists pending changes; Close releases the backend.
	Flush() error
	Close(ctx context.Context) error
}

// fileStore is a YAML catalog bound to the file it was loaded from.
type fileStore struct {
	*catalog.Catalog
	path string
}

func (f fileStore) Flush() error                { return f.Save(f.path) }
func (f fileStore) Close(context.Context) error { return nil }

// dbStore is a connected SurrealDB client. Writes are immediate.
type dbStore struct {
	*db.Client
}

func (dbStore) Flush() error { return nil }

func openStore(ctx context.Context, cfg config.Config, catalogFile string, log *slog.Logger) (store, error) {
	if catalogFile != "" {
		c, err := catalog.Load(catalogFile)
		if err != nil {
			return nil, err
		}
		log.Debug("loaded catalog file", "path", catalogFile)
		return fileStore{Catalog: c, path: catalogFile}, nil
	}

	client, err := db.NewClient(ctx, db.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := client.InitSchema(ctx); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return dbStore{Client: client}, nil
}
