// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package artists is the artist enrichment cache: one persistent record per
// artist holding the metadata fused from every source, keyed by canonical id
// when known and by normalized name otherwise.
package artists

import (
	"math"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// PopularityCeiling is the listener count that maps to a popularity of 1.
const PopularityCeiling = 5_000_000

// PopularityScore maps a listener count onto [0,1] on a log scale:
// min(log10(listeners+1) / log10(5e6), 1).
func PopularityScore(listeners int64) float64 {
	if listeners <= 0 {
		return 0
	}
	if listeners >= PopularityCeiling {
		return 1
	}
	return math.Min(math.Log10(float64(listeners)+1)/math.Log10(PopularityCeiling), 1)
}

// NormalizeName returns the fallback key for an artist name: trimmed, inner
// whitespace collapsed, lower-cased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Record is one enrichment cache entry.
type Record struct {
	ID            string          `json:"id"`
	MBID          string          `json:"mbid,omitempty"`
	Name          string          `json:"name"`
	NameKey       string          `json:"-"`
	Popularity    *float64        `json:"popularity,omitempty"`
	Listeners     int64           `json:"listeners"`
	Playcount     int64           `json:"playcount"`
	Genres        []string        `json:"genres"`
	LatestRelease *time.Time      `json:"latest_release,omitempty"`
	ImageURL      string          `json:"image_url,omitempty"`
	RawPayload    json.RawMessage `json:"-"`
	LastSyncedAt  *time.Time      `json:"last_synced_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Enriched reports whether the record has been through at least one enrichment.
func (r *Record) Enriched() bool {
	return r.LastSyncedAt != nil
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name          *string
	MBID          *string
	Listeners     *int64
	Playcount     *int64
	Genres        []string
	LatestRelease *time.Time
	ImageURL      *string
	RawPayload    json.RawMessage
	SyncedAt      *time.Time
}

func (p *Patch) empty() bool {
	return p.Name == nil && p.MBID == nil && p.Listeners == nil && p.Playcount == nil &&
		p.Genres == nil && p.LatestRelease == nil && p.ImageURL == nil &&
		p.RawPayload == nil && p.SyncedAt == nil
}
