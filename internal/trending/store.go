// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package trending maintains the ranked "trending artists" snapshot.
//
// The sync Job pulls the chart, enriches every entry and writes the ranking
// as a new snapshot version. A per-chart head pointer is flipped to the new
// version in the same transaction, so readers see either the old ranking or
// the new one, never a partial or empty one.
package trending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tkharbeche/musicseer/internal/database"
)

const createEntriesTable = `CREATE TABLE IF NOT EXISTS trending_entries (
	chart_type TEXT NOT NULL,
	version BIGINT NOT NULL,
	chart_rank BIGINT NOT NULL,
	artist_name TEXT NOT NULL,
	mbid TEXT,
	artist_id TEXT,
	snapshot_at TIMESTAMP NOT NULL,
	PRIMARY KEY (chart_type, version, chart_rank)
)`

const createHeadsTable = `CREATE TABLE IF NOT EXISTS trending_heads (
	chart_type TEXT PRIMARY KEY,
	version BIGINT NOT NULL,
	snapshot_at TIMESTAMP NOT NULL
)`

// Entry is one ranked artist in a snapshot.
type Entry struct {
	Rank       int       `json:"rank"`
	Name       string    `json:"name"`
	MBID       string    `json:"mbid,omitempty"`
	ArtistID   string    `json:"artist_id,omitempty"`
	SnapshotAt time.Time `json:"snapshot_at"`
}

// Head describes the live snapshot of a chart type.
type Head struct {
	ChartType  string    `json:"chart_type"`
	Version    int64     `json:"version"`
	SnapshotAt time.Time `json:"snapshot_at"`
}

// Store persists trending snapshots.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore creates a store on db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// InitSchema creates the trending tables.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range []string{createEntriesTable, createHeadsTable} {
		if _, err := s.db.Conn().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create trending tables: %w", err)
		}
	}
	return nil
}

// WriteSnapshot stores entries as the new snapshot of chartType and returns
// its version. Ranks are rewritten 1..n in slice order. Older versions are
// pruned in the same transaction.
func (s *Store) WriteSnapshot(ctx context.Context, chartType string, entries []Entry) (int64, error) {
	snapshotAt := s.now().UTC()
	var version int64

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) + 1 FROM (
				SELECT version FROM trending_entries WHERE chart_type = $1
				UNION ALL
				SELECT version FROM trending_heads WHERE chart_type = $1
			) v`,
			chartType).Scan(&version); err != nil {
			return fmt.Errorf("failed to allocate snapshot version: %w", err)
		}

		for i, e := range entries {
			if _, err := tx.ExecContext(ctx, `INSERT INTO trending_entries
				(chart_type, version, chart_rank, artist_name, mbid, artist_id, snapshot_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				chartType, version, i+1, e.Name, nullString(e.MBID), nullString(e.ArtistID), snapshotAt); err != nil {
				return fmt.Errorf("failed to insert trending entry %d: %w", i+1, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO trending_heads (chart_type, version, snapshot_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (chart_type) DO UPDATE SET version = EXCLUDED.version, snapshot_at = EXCLUDED.snapshot_at`,
			chartType, version, snapshotAt); err != nil {
			return fmt.Errorf("failed to swap trending head: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM trending_entries WHERE chart_type = $1 AND version < $2`,
			chartType, version); err != nil {
			return fmt.Errorf("failed to prune trending snapshots: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// Entries returns the live snapshot of chartType in rank order. limit <= 0
// returns every entry.
func (s *Store) Entries(ctx context.Context, chartType string, limit int) ([]Entry, error) {
	query := `SELECT e.chart_rank, e.artist_name, e.mbid, e.artist_id, e.snapshot_at
		FROM trending_entries e
		JOIN trending_heads h ON h.chart_type = e.chart_type AND h.version = e.version
		WHERE e.chart_type = $1
		ORDER BY e.chart_rank`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.Conn().QueryContext(ctx, query, chartType)
	if err != nil {
		return nil, fmt.Errorf("failed to query trending: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e              Entry
			mbid, artistID sql.NullString
		)
		if err := rows.Scan(&e.Rank, &e.Name, &mbid, &artistID, &e.SnapshotAt); err != nil {
			return nil, fmt.Errorf("failed to scan trending entry: %w", err)
		}
		e.MBID = mbid.String
		e.ArtistID = artistID.String
		e.SnapshotAt = e.SnapshotAt.UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trending: %w", err)
	}
	return out, nil
}

// Head returns the live snapshot pointer of chartType, or nil.
func (s *Store) Head(ctx context.Context, chartType string) (*Head, error) {
	h := Head{ChartType: chartType}
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT version, snapshot_at FROM trending_heads WHERE chart_type = $1`, chartType).
		Scan(&h.Version, &h.SnapshotAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read trending head: %w", err)
	}
	h.SnapshotAt = h.SnapshotAt.UTC()
	return &h, nil
}

// IsEmpty reports whether chartType has no live entries.
func (s *Store) IsEmpty(ctx context.Context, chartType string) (bool, error) {
	var n int
	err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*)
		FROM trending_entries e
		JOIN trending_heads h ON h.chart_type = e.chart_type AND h.version = e.version
		WHERE e.chart_type = $1`, chartType).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to count trending: %w", err)
	}
	return n == 0, nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
