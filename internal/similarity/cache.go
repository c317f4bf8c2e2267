// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package similarity caches the chart service's similar-artist lists in
// BadgerDB, one entry per source artist, so recommendation requests rarely
// reach the rate-limited upstream.
//
// An entry younger than the TTL is a hit. Older entries are refetched and
// overwritten; nothing is deleted. Empty upstream answers are cached like any
// other so they are not retried before the TTL runs out.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tkharbeche/musicseer/internal/artists"
	"github.com/tkharbeche/musicseer/internal/config"
	"github.com/tkharbeche/musicseer/internal/metrics"
	"github.com/tkharbeche/musicseer/internal/sources"
)

const keyPrefix = "similar:"

// sharedFetchTimeout bounds an upstream fetch detached from its callers.
const sharedFetchTimeout = 30 * time.Second

// Lookup outcomes for metrics.
const (
	lookupHit   = "hit"
	lookupMiss  = "miss"
	lookupStale = "stale"
	lookupError = "error"
)

// Artist is one cached similarity edge.
type Artist struct {
	Name   string          `json:"name"`
	MBID   string          `json:"mbid,omitempty"`
	Match  float64         `json:"match"`
	Images []sources.Image `json:"images,omitempty"`
}

// Entry is the stored value for one source artist.
type Entry struct {
	Source   string    `json:"source"`
	MBID     string    `json:"mbid,omitempty"`
	Artists  []Artist  `json:"artists"`
	CachedAt time.Time `json:"cached_at"`
}

// Fetcher is the upstream similarity endpoint.
type Fetcher interface {
	SimilarArtists(ctx context.Context, name, mbid string, limit int) ([]sources.SimilarArtist, error)
}

// Clock supplies the current time for TTL checks.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Open opens the Badger database described by cfg.
func Open(cfg *config.SimilarityConfig) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open similarity cache: %w", err)
	}
	return db, nil
}

// Cache is the similarity cache.
type Cache struct {
	db        *badger.DB
	fetcher   Fetcher
	ttl       time.Duration
	fetchSize int
	clock     Clock
	group     singleflight.Group
	logger    zerolog.Logger
}

// NewCache creates a cache over db. A nil clock uses the wall clock.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewCache(db *badger.DB, fetcher Fetcher, cfg *config.SimilarityConfig, clock Clock, logger zerolog.Logger) *Cache {
	if clock == nil {
		clock = systemClock{}
	}
	return &Cache{
		db:        db,
		fetcher:   fetcher,
		ttl:       cfg.TTL,
		fetchSize: cfg.FetchSize,
		clock:     clock,
		logger:    logger.With().Str("component", "similarity").Logger(),
	}
}

// GetSimilar returns up to limit similar artists for name, from the cache
// when fresh. limit <= 0 returns everything cached. Upstream and storage
// failures are logged and yield an empty list, or the stale entry if one
// exists.
func (c *Cache) GetSimilar(ctx context.Context, name, mbid string, limit int) ([]Artist, error) {
	norm := artists.NormalizeName(name)
	if norm == "" {
		return nil, errors.New("similarity lookup needs an artist name")
	}
	key := keyPrefix + norm

	entry, err := c.read(key)
	if err != nil {
		metrics.SimilarityCacheLookups.WithLabelValues(lookupError).Inc()
		c.logger.Warn().Err(err).Str("artist", name).Msg("similarity cache read failed")
	}
	if entry != nil && c.fresh(entry) {
		metrics.SimilarityCacheLookups.WithLabelValues(lookupHit).Inc()
		return truncate(entry.Artists, limit), nil
	}
	if entry != nil {
		metrics.SimilarityCacheLookups.WithLabelValues(lookupStale).Inc()
	} else if err == nil {
		metrics.SimilarityCacheLookups.WithLabelValues(lookupMiss).Inc()
	}

	// The fetch is shared by every caller waiting on this key, so it must not
	// die with whichever caller happened to start it.
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return c.refresh(fetchCtx, key, name, mbid), nil
	})
	fetched, _ := v.(*Entry)
	if fetched == nil {
		if entry != nil {
			return truncate(entry.Artists, limit), nil
		}
		return []Artist{}, nil
	}
	return truncate(fetched.Artists, limit), nil
}

// fresh reports whether the entry is younger than the TTL.
func (c *Cache) fresh(e *Entry) bool {
	return c.clock.Now().Sub(e.CachedAt) < c.ttl
}

// refresh fetches from upstream and overwrites the entry. It returns nil when
// the upstream call failed.
func (c *Cache) refresh(ctx context.Context, key, name, mbid string) *Entry {
	similar, err := c.fetcher.SimilarArtists(ctx, name, mbid, c.fetchSize)
	if err != nil {
		ev := c.logger.Warn()
		if errors.Is(err, sources.ErrNotFound) {
			ev = c.logger.Debug()
		}
		ev.Err(err).Str("artist", name).Msg("similar artists fetch failed")
		return nil
	}

	entry := &Entry{
		Source:   name,
		MBID:     mbid,
		Artists:  make([]Artist, 0, len(similar)),
		CachedAt: c.clock.Now().UTC(),
	}
	for _, s := range similar {
		entry.Artists = append(entry.Artists, Artist{
			Name:   s.Name,
			MBID:   s.MBID,
			Match:  s.Match,
			Images: s.Images,
		})
	}

	if err := c.write(key, entry); err != nil {
		c.logger.Warn().Err(err).Str("artist", name).Msg("similarity cache write failed")
	}
	return entry
}

// Peek returns the stored entry for name regardless of age, or nil.
func (c *Cache) Peek(name string) (*Entry, error) {
	return c.read(keyPrefix + artists.NormalizeName(name))
}

func (c *Cache) read(key string) (*Entry, error) {
	var entry Entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get similarity entry: %w", err)
	}
	return &entry, nil
}

func (c *Cache) write(key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal similarity entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func truncate(list []Artist, limit int) []Artist {
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]Artist, len(list))
	copy(out, list)
	return out
}
