// Package postgres stores records as JSONB documents in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/kailas-cloud/directory/internal/db"
)

var _ db.RecordStore = (*Store)(nil)

// Config holds connection parameters for a PostgreSQL store.
type Config struct {
	DSN             string
	Table           string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store implements db.RecordStore over database/sql and lib/pq.
type Store struct {
	db    *sql.DB
	name  string
	table string // quoted name
}

// NewStore opens a connection pool. It does not contact the server;
// use WaitForReady and Migrate before serving traffic.
func NewStore(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if cfg.Table == "" {
		cfg.Table = "businesses"
	}

	conn, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	conn.SetConnMaxLifetime(lifetime)
	conn.SetConnMaxIdleTime(lifetime)

	return newStore(conn, cfg.Table), nil
}

func newStore(conn *sql.DB, table string) *Store {
	return &Store{db: conn, name: table, table: pq.QuoteIdentifier(table)}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady blocks until postgres answers a ping or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	return db.WaitReady(ctx, s, "postgres", timeout)
}

// Migrate creates the records table and its indexes when missing.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id          TEXT PRIMARY KEY,
	document    JSONB NOT NULL,
	longitude   DOUBLE PRECISION,
	latitude    DOUBLE PRECISION,
	modified_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (document jsonb_path_ops)`,
			pq.QuoteIdentifier(s.name+"_document_idx"), s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (latitude, longitude)`,
			pq.QuoteIdentifier(s.name+"_location_idx"), s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return &db.Error{Op: db.OpMigrate, Err: err}
		}
	}
	return nil
}
