// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package api

import (
	"context"
	"time"

	"github.com/tkharbeche/musicseer/internal/artists"
	"github.com/tkharbeche/musicseer/internal/library"
	"github.com/tkharbeche/musicseer/internal/recommend"
	"github.com/tkharbeche/musicseer/internal/trending"
)

const defaultRecommendTimeout = 60 * time.Second

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TrendingReader serves the live trending snapshot.
type TrendingReader interface {
	GetTrending(ctx context.Context, limit int) ([]trending.Artist, error)
}

// Recommender ranks candidates for a user.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) (*recommend.Response, error)
}

// SyncTrigger queues a trending sync run.
type SyncTrigger interface {
	Trigger() error
}

// SyncStatusProvider reports trending sync progress.
type SyncStatusProvider interface {
	Status() trending.Status
}

// ArtistLookup reads the enrichment cache.
type ArtistLookup interface {
	FindByID(ctx context.Context, mbid string) (*artists.Record, error)
	FindByName(ctx context.Context, name string) (*artists.Record, error)
}

// LibraryIngester replaces a user's library snapshot.
type LibraryIngester interface {
	ReplaceSnapshot(ctx context.Context, userID, serverID string, entries []library.Entry) (int, error)
}

// Deps are the collaborators behind the handlers. SyncTrigger and SyncStatus
// are nil when the trending sync is disabled.
type Deps struct {
	DB          Pinger
	Trending    TrendingReader
	Recommender Recommender
	SyncTrigger SyncTrigger
	SyncStatus  SyncStatusProvider
	Artists     ArtistLookup
	Library     LibraryIngester
}

// Handler serves the discovery API.
type Handler struct {
	deps             Deps
	recommendTimeout time.Duration
	startedAt        time.Time
}

// NewHandler creates a handler. A non-positive timeout takes the default.
func NewHandler(deps Deps, recommendTimeout time.Duration) *Handler {
	if recommendTimeout <= 0 {
		recommendTimeout = defaultRecommendTimeout
	}
	return &Handler{
		deps:             deps,
		recommendTimeout: recommendTimeout,
		startedAt:        time.Now(),
	}
}
