package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/directory/internal/config"
	"github.com/kailas-cloud/directory/internal/db"
	"github.com/kailas-cloud/directory/internal/db/elastic"
	"github.com/kailas-cloud/directory/internal/db/memory"
	"github.com/kailas-cloud/directory/internal/db/postgres"
	"github.com/kailas-cloud/directory/internal/domain/geo/postal"
)

// openStore connects the configured record store and prepares its schema.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (db.RecordStore, error) {
	readiness := time.Duration(cfg.Store.ReadinessTimeout) * time.Second

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		s, err := postgres.NewStore(postgres.Config{
			DSN:             cfg.Postgres.DSN,
			Table:           cfg.Postgres.Table,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetimeSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := s.WaitForReady(ctx, readiness); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres not ready: %w", err)
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		logger.Info("Connected to postgres", zap.String("table", cfg.Postgres.Table))
		return s, nil

	case config.DriverElasticsearch:
		s, err := elastic.NewStore(elastic.Config{
			Addresses: cfg.Elasticsearch.Addresses,
			Username:  cfg.Elasticsearch.Username,
			Password:  cfg.Elasticsearch.Password,
			Index:     cfg.Elasticsearch.Index,
		})
		if err != nil {
			return nil, fmt.Errorf("elasticsearch: %w", err)
		}
		if err := s.WaitForReady(ctx, readiness); err != nil {
			return nil, fmt.Errorf("elasticsearch not ready: %w", err)
		}
		if err := s.EnsureIndex(ctx); err != nil {
			return nil, fmt.Errorf("elasticsearch index: %w", err)
		}
		logger.Info("Connected to elasticsearch", zap.String("index", cfg.Elasticsearch.Index))
		return s, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory record store, data is lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// loadPostalTable reads path, or the bundled dataset when path is empty.
func loadPostalTable(path string) (*postal.Table, error) {
	if path == "" {
		return postal.Default()
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open postal dataset: %w", err)
	}
	defer func() { _ = f.Close() }()
	t, err := postal.Load(f)
	if err != nil {
		return nil, fmt.Errorf("load postal dataset %s: %w", path, err)
	}
	return t, nil
}
