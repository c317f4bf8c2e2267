// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package testinfra provides database fixtures for store tests.
//
// NewDuckDB opens an in-memory DuckDB and is used by every store's unit
// tests. Under the integration build tag, NewPostgresContainer starts a real
// PostgreSQL with testcontainers-go so the same store tests can be replayed
// against the pgx backend:
//
//	func TestArtistsStore_Postgres(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    db := pg.Open(t)
//	    // run store assertions against db
//	}
//
// Container tests require Docker and are skipped gracefully without it.
package testinfra
