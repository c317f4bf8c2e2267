// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package database opens the SQL backend shared by the artist, trending and
// library stores.
//
// DuckDB is the default embedded engine. PostgreSQL is reached through the pgx
// stdlib driver. Stores write portable SQL with $n placeholders so either
// backend serves the same schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tkharbeche/musicseer/internal/config"
	"github.com/tkharbeche/musicseer/internal/logging"
)

// Driver names accepted in DatabaseConfig.Driver.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// SchemaInitializer is implemented by stores that own tables.
type SchemaInitializer interface {
	InitSchema(ctx context.Context) error
}

// DB wraps the SQL connection pool.
type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects to the configured backend and applies pool settings.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch cfg.Driver {
	case DriverDuckDB, "":
		conn, err = openDuckDB(cfg)
	case DriverPostgres:
		conn, err = sql.Open("pgx", cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverDuckDB
	}
	db := &DB{conn: conn, driver: driver}
	db.configureConnectionPool()

	if err := db.Ping(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	logging.Info().Str("driver", driver).Msg("Database connection established")
	return db, nil
}

// NewFromConn wraps an existing pool, for tests and sqlmock.
func NewFromConn(conn *sql.DB, driver string) *DB {
	return &DB{conn: conn, driver: driver}
}

func openDuckDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	path := cfg.Path
	if path != ":memory:" {
		dbDir := filepath.Dir(path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Extensions stay off: the schema needs none and autoload hangs without network.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, numThreads)
	return sql.Open("duckdb", connStr)
}

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn returns the underlying SQL connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Driver returns the backend name, "duckdb" or "postgres".
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints DuckDB and closes the pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	if db.driver == DriverDuckDB {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
			logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
		}
		cancel()
	}
	return db.conn.Close()
}

// InitSchema runs every store's schema setup in order.
func (db *DB) InitSchema(ctx context.Context, stores ...SchemaInitializer) error {
	for _, s := range stores {
		if err := s.InitSchema(ctx); err != nil {
			return err
		}
	}
	return nil
}
