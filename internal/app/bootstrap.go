// Package app wires configuration into the analyzer, stores and cache
// shared by the worker and the CLI.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spacesedan/aspectflow/config"
	"github.com/spacesedan/aspectflow/internal/aspects"
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/clients"
	"github.com/spacesedan/aspectflow/internal/db"
	"github.com/spacesedan/aspectflow/internal/engine"
	"github.com/spacesedan/aspectflow/internal/service"
)

// NewAnalyzer loads the catalog, the engine thresholds and the configured
// scorer. Callers close the scorer with classifier.Close.
func NewAnalyzer() (*engine.Analyzer, classifier.Scorer, error) {
	index, err := aspects.LoadFile(config.CatalogPath())
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Engine()
	if err != nil {
		return nil, nil, err
	}

	settings, err := config.Classifier()
	if err != nil {
		return nil, nil, err
	}
	scorer, err := classifier.New(settings)
	if err != nil {
		return nil, nil, err
	}

	analyzer, err := engine.New(index, scorer, cfg)
	if err != nil {
		classifier.Close(scorer)
		return nil, nil, err
	}

	slog.Info("[App] Analyzer ready",
		slog.String("backend", settings.Backend),
		slog.Int("aspects", index.Len()),
		slog.Float64("relevance_threshold", cfg.RelevanceThreshold))
	return analyzer, scorer, nil
}

// OpenSQLite opens the local store, creating its directory.
func OpenSQLite(path string) (*db.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("[App] create db dir: %w", err)
	}
	return db.OpenSQLite(path)
}

// OpenStore opens the configured result store and returns its closer.
func OpenStore(settings config.StoreSettings) (db.ResultStore, func() error, error) {
	switch settings.Backend {
	case config.StoreDynamoDB:
		client, err := clients.GetDynamoDBClient(settings)
		if err != nil {
			return nil, nil, err
		}
		return db.NewDynamoStore(client, settings.DynamoTable), func() error { return nil }, nil
	case config.StoreSQLite, "":
		store, err := OpenSQLite(settings.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("[App] unknown store backend %q", settings.Backend)
	}
}

// ServiceOptions returns the store and, when VALKEY_INIT_ADDRESS is set,
// the cache options for service.New.
func ServiceOptions(store db.ResultStore) ([]service.Option, error) {
	opts := []service.Option{service.WithStore(store)}

	vs, err := config.Valkey()
	if err != nil {
		return nil, err
	}
	if vs.Addr == "" {
		slog.Info("[App] Valkey not configured, dedup and result cache disabled")
		return opts, nil
	}

	cache, err := clients.InitValkey(vs)
	if err != nil {
		return nil, err
	}
	return append(opts, service.WithCache(cache)), nil
}
