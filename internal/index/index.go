// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package index implements the dataset index store on DuckDB.
//
// The store holds product definitions, dataset records with spatial
// extents, lineage edges, and precomputed per-month product summaries.
// Spatial aggregation (footprint unions, bbox intersection) runs inside
// DuckDB via the spatial extension; time bucketing is done in UTC.
package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // duckdb driver

	"github.com/tomtom215/cubescope/internal/config"
	"github.com/tomtom215/cubescope/internal/logging"
)

// Store is the dataset index backed by a DuckDB database.
type Store struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	spatialAvailable bool
	jsonAvailable    bool
	icuAvailable     bool

	stmtMu    sync.RWMutex
	stmtCache map[string]*sql.Stmt
}

// New opens (or creates) the index database and prepares its schema.
func New(cfg *config.DatabaseConfig) (*Store, error) {
	if cfg.Path != ":memory:" {
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	connStr := fmt.Sprintf(
		"%s?access_mode=read_write&threads=%d&max_memory=%s&preserve_insertion_order=%t",
		cfg.Path, threads, cfg.MaxMemory, cfg.PreserveInsertionOrder,
	)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}

	s := &Store{
		conn:      conn,
		cfg:       cfg,
		stmtCache: make(map[string]*sql.Stmt),
	}
	s.configureConnectionPool(threads)

	if err := s.initialize(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initializing index: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("spatial", s.spatialAvailable).
		Bool("json", s.jsonAvailable).
		Bool("icu", s.icuAvailable).
		Msg("Index store initialized")
	return s, nil
}

// configureConnectionPool tunes database/sql for DuckDB's embedded model.
func (s *Store) configureConnectionPool(threads int) {
	s.conn.SetMaxOpenConns(threads)
	s.conn.SetMaxIdleConns(threads)
	s.conn.SetConnMaxLifetime(0)
}

func (s *Store) initialize(ctx context.Context) error {
	s.installExtensions(ctx)

	// All time bucketing is UTC regardless of server locale.
	if _, err := s.conn.ExecContext(ctx, "SET TimeZone='UTC'"); err != nil {
		logging.Warn().Err(err).Msg("Failed to set UTC timezone, falling back to session default")
	}

	if err := s.createSchema(ctx); err != nil {
		return err
	}
	if !s.cfg.SkipIndexes {
		if err := s.createIndexes(ctx); err != nil {
			return err
		}
	}
	return s.Checkpoint(ctx)
}

// installExtensions loads the spatial, json, and icu extensions.
// Failures downgrade functionality rather than aborting startup: without
// spatial the footprint routes report service errors, everything else
// keeps working.
func (s *Store) installExtensions(ctx context.Context) {
	extensions := []struct {
		name      string
		available *bool
	}{
		{"spatial", &s.spatialAvailable},
		{"json", &s.jsonAvailable},
		{"icu", &s.icuAvailable},
	}

	for _, ext := range extensions {
		if _, err := s.conn.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext.name, ext.name)); err != nil {
			logging.Warn().Err(err).Str("extension", ext.name).Msg("Extension unavailable")
			*ext.available = false
			continue
		}
		*ext.available = true
	}
}

func (s *Store) createSchema(ctx context.Context) error {
	geometryType := "GEOMETRY"
	if !s.spatialAvailable {
		// Degraded mode keeps the column textual so ingestion still works.
		geometryType = "VARCHAR"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			name VARCHAR PRIMARY KEY,
			definition JSON,
			default_crs VARCHAR,
			time_resolution VARCHAR
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS datasets (
			id UUID PRIMARY KEY,
			product VARCHAR NOT NULL,
			status VARCHAR,
			center_time TIMESTAMPTZ NOT NULL,
			creation_time TIMESTAMPTZ,
			metadata JSON,
			extent %s,
			archived BOOLEAN DEFAULT FALSE
		)`, geometryType),
		`CREATE TABLE IF NOT EXISTS dataset_lineage (
			derived_id UUID NOT NULL,
			source_id UUID NOT NULL,
			classifier VARCHAR NOT NULL,
			PRIMARY KEY (derived_id, source_id)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS product_summaries (
			product VARCHAR NOT NULL,
			period VARCHAR NOT NULL,
			dataset_count INTEGER NOT NULL,
			footprint %s,
			generated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (product, period)
		)`, geometryType),
	}

	for _, stmt := range statements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_datasets_product_time ON datasets(product, center_time)`,
		`CREATE INDEX IF NOT EXISTS idx_datasets_center_time ON datasets(center_time)`,
		`CREATE INDEX IF NOT EXISTS idx_lineage_derived ON dataset_lineage(derived_id)`,
		`CREATE INDEX IF NOT EXISTS idx_lineage_source ON dataset_lineage(source_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating indexes: %w", err)
		}
	}
	return nil
}

// getStmt returns a cached prepared statement for query, preparing it on
// first use.
func (s *Store) getStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	s.stmtMu.RLock()
	stmt, ok := s.stmtCache[query]
	s.stmtMu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.stmtMu.Lock()
	defer s.stmtMu.Unlock()
	if stmt, ok = s.stmtCache[query]; ok {
		return stmt, nil
	}

	stmt, err := s.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	s.stmtCache[query] = stmt
	return stmt, nil
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Conn exposes the raw connection for callers that need direct SQL.
func (s *Store) Conn() *sql.DB {
	return s.conn
}

// IsSpatialAvailable reports whether the spatial extension loaded.
func (s *Store) IsSpatialAvailable() bool {
	return s.spatialAvailable
}

// Checkpoint flushes the WAL into the main database file.
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Close releases prepared statements, checkpoints, and closes the database.
func (s *Store) Close() error {
	s.stmtMu.Lock()
	for _, stmt := range s.stmtCache {
		_ = stmt.Close()
	}
	s.stmtCache = make(map[string]*sql.Stmt)
	s.stmtMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint before close failed")
	}

	return s.conn.Close()
}
