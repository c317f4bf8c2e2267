// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package library stores the per-user listening library snapshots pushed by
// the library-sync collaborator. The recommendation engine reads them as its
// seed set.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tkharbeche/musicseer/internal/artists"
	"github.com/tkharbeche/musicseer/internal/database"
)

const createLibraryTable = `CREATE TABLE IF NOT EXISTS library_snapshot (
	user_id TEXT NOT NULL,
	server_id TEXT NOT NULL,
	name_key TEXT NOT NULL,
	artist_name TEXT NOT NULL,
	mbid TEXT,
	play_count BIGINT NOT NULL DEFAULT 0,
	synced_at TIMESTAMP NOT NULL,
	PRIMARY KEY (user_id, server_id, name_key)
)`

// Entry is one artist in a user's library on one server.
type Entry struct {
	ArtistName string `json:"artist_name" validate:"required,max=512"`
	MBID       string `json:"mbid,omitempty" validate:"omitempty,mbid"`
	PlayCount  int64  `json:"play_count" validate:"gte=0"`
}

// Store persists library snapshots.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore creates a store on db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// InitSchema creates the library_snapshot table.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.Conn().ExecContext(ctx, createLibraryTable); err != nil {
		return fmt.Errorf("failed to create library_snapshot table: %w", err)
	}
	return nil
}

// TopArtists returns the user's most played artists, play count descending
// then name ascending. An empty serverID aggregates every server.
func (s *Store) TopArtists(ctx context.Context, userID, serverID string, limit int) ([]Entry, error) {
	query := `SELECT MIN(artist_name), MAX(mbid), CAST(SUM(play_count) AS BIGINT) AS plays
		FROM library_snapshot
		WHERE user_id = $1`
	args := []interface{}{userID}
	if serverID != "" {
		query += ` AND server_id = $2`
		args = append(args, serverID)
	}
	query += ` GROUP BY name_key ORDER BY plays DESC, name_key ASC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query library: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e    Entry
			mbid sql.NullString
		)
		if err := rows.Scan(&e.ArtistName, &mbid, &e.PlayCount); err != nil {
			return nil, fmt.Errorf("failed to scan library entry: %w", err)
		}
		e.MBID = mbid.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library: %w", err)
	}
	return out, nil
}

// InLibrary returns which of names the user has in their library, as
// normalized keys. Every entry counts, not just the most played. An empty
// serverID checks every server.
func (s *Store) InLibrary(ctx context.Context, userID, serverID string, names []string) (map[string]bool, error) {
	found := make(map[string]bool)
	args := []interface{}{userID}
	query := `SELECT DISTINCT name_key FROM library_snapshot WHERE user_id = $1`
	if serverID != "" {
		args = append(args, serverID)
		query += ` AND server_id = $2`
	}

	seen := make(map[string]bool, len(names))
	placeholders := make([]string, 0, len(names))
	for _, n := range names {
		key := artists.NormalizeName(n)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		args = append(args, key)
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}
	if len(placeholders) == 0 {
		return found, nil
	}
	query += ` AND name_key IN (` + strings.Join(placeholders, ", ") + `)`

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query library membership: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan library key: %w", err)
		}
		found[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating library keys: %w", err)
	}
	return found, nil
}

// ReplaceSnapshot swaps the user's library on one server for entries in a
// single transaction. Entries whose names normalize to the same key are
// merged and their play counts summed.
func (s *Store) ReplaceSnapshot(ctx context.Context, userID, serverID string, entries []Entry) (int, error) {
	merged := make(map[string]*Entry, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		key := artists.NormalizeName(e.ArtistName)
		if key == "" {
			continue
		}
		if m, ok := merged[key]; ok {
			m.PlayCount += max(e.PlayCount, 0)
			if m.MBID == "" {
				m.MBID = e.MBID
			}
			continue
		}
		merged[key] = &Entry{
			ArtistName: strings.TrimSpace(e.ArtistName),
			MBID:       e.MBID,
			PlayCount:  max(e.PlayCount, 0),
		}
		order = append(order, key)
	}

	syncedAt := s.now().UTC()
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM library_snapshot WHERE user_id = $1 AND server_id = $2`, userID, serverID); err != nil {
			return fmt.Errorf("failed to clear library: %w", err)
		}
		for _, key := range order {
			e := merged[key]
			var mbid interface{}
			if e.MBID != "" {
				mbid = e.MBID
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO library_snapshot
				(user_id, server_id, name_key, artist_name, mbid, play_count, synced_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				userID, serverID, key, e.ArtistName, mbid, e.PlayCount, syncedAt); err != nil {
				return fmt.Errorf("failed to insert library entry: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(order), nil
}
