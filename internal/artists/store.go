// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package artists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tkharbeche/musicseer/internal/database"
)

const createArtistsTable = `CREATE TABLE IF NOT EXISTS artists (
	id TEXT PRIMARY KEY,
	mbid TEXT UNIQUE,
	name_key TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	popularity FLOAT8,
	listeners BIGINT NOT NULL DEFAULT 0,
	playcount BIGINT NOT NULL DEFAULT 0,
	genres TEXT NOT NULL DEFAULT '[]',
	latest_release TIMESTAMP,
	image_url TEXT,
	raw_payload TEXT,
	last_synced_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL
)`

const selectArtistColumns = `SELECT id, mbid, name_key, name, popularity, listeners, playcount,
	genres, latest_release, image_url, raw_payload, last_synced_at, created_at
	FROM artists`

// Store persists artist records. Uniqueness of canonical id and of
// normalized name is enforced by the table, not by the application, so
// several processes may share one database.
type Store struct {
	db  *database.DB
	now func() time.Time
}

// NewStore creates a store on db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// InitSchema creates the artists table.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.Conn().ExecContext(ctx, createArtistsTable); err != nil {
		return fmt.Errorf("failed to create artists table: %w", err)
	}
	return nil
}

// FindByID returns the record with canonical id mbid, or nil.
func (s *Store) FindByID(ctx context.Context, mbid string) (*Record, error) {
	if mbid == "" {
		return nil, nil
	}
	return s.queryOne(ctx, selectArtistColumns+` WHERE mbid = $1`, mbid)
}

// FindByName returns the record whose normalized name matches, or nil.
func (s *Store) FindByName(ctx context.Context, name string) (*Record, error) {
	key := NormalizeName(name)
	if key == "" {
		return nil, nil
	}
	return s.queryOne(ctx, selectArtistColumns+` WHERE name_key = $1`, key)
}

// Get returns the record with row id, or nil.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	return s.queryOne(ctx, selectArtistColumns+` WHERE id = $1`, id)
}

// FindMany returns the records matching any of names, keyed by normalized name.
func (s *Store) FindMany(ctx context.Context, names []string) (map[string]*Record, error) {
	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, NormalizeName(n))
	}
	recs, err := s.findIn(ctx, "name_key", keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Record, len(recs))
	for _, rec := range recs {
		out[rec.NameKey] = rec
	}
	return out, nil
}

// GetMany returns the records with the given row ids, keyed by id.
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]*Record, error) {
	recs, err := s.findIn(ctx, "id", ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Record, len(recs))
	for _, rec := range recs {
		out[rec.ID] = rec
	}
	return out, nil
}

// findIn selects records whose column matches one of values. Blank and
// repeated values are skipped.
func (s *Store) findIn(ctx context.Context, column string, values []string) ([]*Record, error) {
	seen := make(map[string]bool, len(values))
	args := make([]interface{}, 0, len(values))
	placeholders := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		args = append(args, v)
		placeholders = append(placeholders, "$"+strconv.Itoa(len(args)))
	}
	if len(args) == 0 {
		return nil, nil
	}

	query := selectArtistColumns + ` WHERE ` + column + ` IN (` + strings.Join(placeholders, ", ") + `)`
	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artists: %w", err)
	}
	return out, nil
}

// GetOrCreate returns the record for the artist, creating a minimal one when
// absent. Lookup is by canonical id first, then by normalized name; a record
// found by name gains mbid when it had none. created reports whether this
// call inserted the row.
//
// Creation is an insert that does nothing on conflict followed by a re-read,
// so concurrent callers for the same artist converge on a single row.
func (s *Store) GetOrCreate(ctx context.Context, name, mbid string) (rec *Record, created bool, err error) {
	key := NormalizeName(name)
	mbid = strings.TrimSpace(mbid)
	if key == "" && mbid == "" {
		return nil, false, fmt.Errorf("artist name and id are both empty")
	}
	if key == "" {
		key = "mbid:" + mbid
		name = mbid
	}

	if rec, err = s.FindByID(ctx, mbid); err != nil || rec != nil {
		return rec, false, err
	}
	if rec, err = s.queryOne(ctx, selectArtistColumns+` WHERE name_key = $1`, key); err != nil {
		return nil, false, err
	}
	if rec != nil {
		if mbid != "" && rec.MBID == "" {
			rec, err = s.attachMBID(ctx, rec, mbid)
		}
		return rec, false, err
	}

	var mbidArg interface{}
	if mbid != "" {
		mbidArg = mbid
	}
	res, err := s.db.Conn().ExecContext(ctx, `INSERT INTO artists
		(id, mbid, name_key, name, listeners, playcount, genres, created_at)
		VALUES ($1, $2, $3, $4, 0, 0, '[]', $5)
		ON CONFLICT DO NOTHING`,
		uuid.New().String(), mbidArg, key, strings.TrimSpace(name), s.now().UTC())
	switch {
	case err == nil:
		if n, rerr := res.RowsAffected(); rerr == nil && n == 1 {
			created = true
		}
	case database.IsConflict(err):
		// A concurrent writer inserted the same artist first.
	default:
		return nil, false, fmt.Errorf("failed to insert artist: %w", err)
	}

	// Either our row or the one a concurrent caller won with.
	if rec, err = s.FindByID(ctx, mbid); err != nil || rec != nil {
		return rec, created, err
	}
	rec, err = s.queryOne(ctx, selectArtistColumns+` WHERE name_key = $1`, key)
	if err == nil && rec == nil {
		err = fmt.Errorf("artist %q vanished after insert", name)
	}
	return rec, created, err
}

// attachMBID sets the canonical id of a record that had none. When another
// record already owns the id, that record is returned instead.
func (s *Store) attachMBID(ctx context.Context, rec *Record, mbid string) (*Record, error) {
	_, err := s.db.Conn().ExecContext(ctx,
		`UPDATE artists SET mbid = $1 WHERE id = $2 AND mbid IS NULL`, mbid, rec.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			if owner, ferr := s.FindByID(ctx, mbid); ferr == nil && owner != nil {
				return owner, nil
			}
			return rec, nil
		}
		return nil, fmt.Errorf("failed to attach mbid: %w", err)
	}
	return s.Get(ctx, rec.ID)
}

// Upsert applies patch to the artist's record, creating it first if needed.
func (s *Store) Upsert(ctx context.Context, name, mbid string, patch Patch) (*Record, error) {
	rec, _, err := s.GetOrCreate(ctx, name, mbid)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, rec.ID, patch)
}

// Update applies patch to the record with row id. Popularity is recomputed
// whenever listeners change. A canonical id in the patch is only written when
// the record has none and no other record owns it.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (*Record, error) {
	if patch.MBID != nil && *patch.MBID != "" {
		rec, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rec != nil && rec.MBID == "" {
			if _, err := s.attachMBID(ctx, rec, *patch.MBID); err != nil {
				return nil, err
			}
		}
	}
	patch.MBID = nil
	if patch.empty() {
		return s.Get(ctx, id)
	}

	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}

	if patch.Name != nil && strings.TrimSpace(*patch.Name) != "" {
		add("name", strings.TrimSpace(*patch.Name))
	}
	if patch.Listeners != nil {
		listeners := max(*patch.Listeners, 0)
		add("listeners", listeners)
		add("popularity", PopularityScore(listeners))
	}
	if patch.Playcount != nil {
		add("playcount", max(*patch.Playcount, 0))
	}
	if patch.Genres != nil {
		genres, err := json.Marshal(patch.Genres)
		if err != nil {
			return nil, fmt.Errorf("failed to encode genres: %w", err)
		}
		add("genres", string(genres))
	}
	if patch.LatestRelease != nil {
		add("latest_release", patch.LatestRelease.UTC())
	}
	if patch.ImageURL != nil {
		add("image_url", nullString(*patch.ImageURL))
	}
	if patch.RawPayload != nil {
		add("raw_payload", string(patch.RawPayload))
	}
	if patch.SyncedAt != nil {
		add("last_synced_at", patch.SyncedAt.UTC())
	}
	if len(sets) == 0 {
		return s.Get(ctx, id)
	}

	args = append(args, id)
	query := `UPDATE artists SET ` + strings.Join(sets, ", ") + ` WHERE id = $` + strconv.Itoa(len(args))
	if _, err := s.db.Conn().ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update artist: %w", err)
	}
	return s.Get(ctx, id)
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM artists`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count artists: %w", err)
	}
	return n, nil
}

func (s *Store) queryOne(ctx context.Context, query string, args ...interface{}) (*Record, error) {
	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artist: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query artist: %w", err)
		}
		return nil, nil
	}
	return scanRecord(rows)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec                         Record
		mbid, image, raw            sql.NullString
		genres                      string
		popularity                  sql.NullFloat64
		latestRelease, lastSyncedAt sql.NullTime
	)
	err := row.Scan(&rec.ID, &mbid, &rec.NameKey, &rec.Name, &popularity, &rec.Listeners, &rec.Playcount,
		&genres, &latestRelease, &image, &raw, &lastSyncedAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan artist: %w", err)
	}

	rec.MBID = mbid.String
	rec.ImageURL = image.String
	if raw.Valid && raw.String != "" {
		rec.RawPayload = json.RawMessage(raw.String)
	}
	if popularity.Valid {
		p := popularity.Float64
		rec.Popularity = &p
	}
	if latestRelease.Valid {
		t := latestRelease.Time.UTC()
		rec.LatestRelease = &t
	}
	if lastSyncedAt.Valid {
		t := lastSyncedAt.Time.UTC()
		rec.LastSyncedAt = &t
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Genres = decodeGenres(genres)
	return &rec, nil
}

// decodeGenres reads the genres column; malformed values read as no genres.
func decodeGenres(raw string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
