// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package trending

import (
	"context"
	"fmt"
	"time"

	"github.com/tkharbeche/musicseer/internal/artists"
	"github.com/tkharbeche/musicseer/internal/cache"
)

const (
	// DefaultReadLimit is used when a caller passes limit 0.
	DefaultReadLimit = 50

	// MaxReadLimit caps a single read.
	MaxReadLimit = 100
)

// Artist is a trending entry joined with its enrichment record.
type Artist struct {
	Rank          int        `json:"rank"`
	ID            string     `json:"id,omitempty"`
	Name          string     `json:"name"`
	MBID          string     `json:"mbid,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	Listeners     int64      `json:"listeners"`
	Playcount     int64      `json:"playcount"`
	Popularity    *float64   `json:"popularity,omitempty"`
	Genres        []string   `json:"genres"`
	LatestRelease *time.Time `json:"latest_release,omitempty"`
}

// RecordLookup loads enrichment records by row id.
type RecordLookup interface {
	GetMany(ctx context.Context, ids []string) (map[string]*artists.Record, error)
}

// Reader serves the live trending snapshot.
type Reader struct {
	store     *Store
	records   RecordLookup
	chartType string
	memo      cache.Cacher
}

// NewReader creates a reader for chartType. memo may be nil.
func NewReader(store *Store, records RecordLookup, chartType string, memo cache.Cacher) *Reader {
	if chartType == "" {
		chartType = DefaultChartType
	}
	return &Reader{store: store, records: records, chartType: chartType, memo: memo}
}

// GetTrending returns up to limit artists of the live snapshot in rank order.
// limit 0 means DefaultReadLimit; larger values are capped at MaxReadLimit.
func (r *Reader) GetTrending(ctx context.Context, limit int) ([]Artist, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit == 0 {
		limit = DefaultReadLimit
	}
	if limit > MaxReadLimit {
		limit = MaxReadLimit
	}

	head, err := r.store.Head(ctx, r.chartType)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return []Artist{}, nil
	}

	key := cache.GenerateKey("trending", struct {
		Chart   string
		Version int64
		Limit   int
	}{r.chartType, head.Version, limit})
	if r.memo != nil {
		if v, ok := r.memo.Get(key); ok {
			if cached, ok := v.([]Artist); ok {
				return cached, nil
			}
		}
	}

	entries, err := r.store.Entries(ctx, r.chartType, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.ArtistID != "" {
			ids = append(ids, e.ArtistID)
		}
	}
	recs, err := r.records.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load trending artists: %w", err)
	}

	out := make([]Artist, 0, len(entries))
	for _, e := range entries {
		a := Artist{Rank: e.Rank, ID: e.ArtistID, Name: e.Name, MBID: e.MBID, Genres: []string{}}
		if rec := recs[e.ArtistID]; rec != nil {
			a.ImageURL = rec.ImageURL
			a.Listeners = rec.Listeners
			a.Playcount = rec.Playcount
			a.Popularity = rec.Popularity
			a.LatestRelease = rec.LatestRelease
			if len(rec.Genres) > 0 {
				a.Genres = rec.Genres
			}
			if a.MBID == "" {
				a.MBID = rec.MBID
			}
		}
		out = append(out, a)
	}

	if r.memo != nil {
		r.memo.Set(key, out)
	}
	return out, nil
}
