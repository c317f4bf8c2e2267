// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package testinfra

import (
	"context"
	"database/sql"
	"testing"

	"github.com/tkharbeche/musicseer/internal/database"
)

// NewDuckDB opens an in-memory DuckDB, initializes the given stores' schemas
// and closes the database when the test ends.
func NewDuckDB(t *testing.T, stores ...database.SchemaInitializer) *database.DB {
	t.Helper()

	conn, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("failed to open duckdb: %v", err)
	}
	db := database.NewFromConn(conn, database.DriverDuckDB)
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("failed to ping duckdb: %v", err)
	}
	if err := db.InitSchema(context.Background(), stores...); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	return db
}
