// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package artists

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tkharbeche/musicseer/internal/identity"
	"github.com/tkharbeche/musicseer/internal/metrics"
	"github.com/tkharbeche/musicseer/internal/sources"
)

// Enrichment outcomes for metrics.
const (
	enrichCreated   = "created"
	enrichRefreshed = "refreshed"
	enrichCached    = "cached"
	enrichFailed    = "failed"
)

// IdentityResolver resolves canonical ids and registry metadata.
type IdentityResolver interface {
	Resolve(ctx context.Context, name, knownID string) identity.Result
}

// ImageResolver runs the image waterfall.
type ImageResolver interface {
	ResolveWithReleases(ctx context.Context, name, mbid string, groups []sources.ReleaseGroup) string
}

// ChartInfo fetches listener counts and tags from the chart service.
type ChartInfo interface {
	ArtistInfo(ctx context.Context, name, mbid string) (*sources.ArtistInfo, error)
}

// Enricher fills artist records from the external sources.
type Enricher struct {
	store    *Store
	resolver IdentityResolver
	images   ImageResolver
	chart    ChartInfo
	now      func() time.Time
	logger   zerolog.Logger
}

// NewEnricher creates an enricher. chart may be nil.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEnricher(store *Store, resolver IdentityResolver, images ImageResolver, chart ChartInfo, logger zerolog.Logger) *Enricher {
	return &Enricher{
		store:    store,
		resolver: resolver,
		images:   images,
		chart:    chart,
		now:      time.Now,
		logger:   logger.With().Str("component", "enricher").Logger(),
	}
}

// Store returns the underlying record store.
func (e *Enricher) Store() *Store {
	return e.store
}

// Ensure returns the artist's record, running a full enrichment the first
// time the artist is seen. The minimal record is committed before any
// external call so concurrent callers share one row. Source failures only
// leave fields empty; the error is reserved for storage failures.
func (e *Enricher) Ensure(ctx context.Context, name, mbid string) (*Record, error) {
	rec, created, err := e.store.GetOrCreate(ctx, name, mbid)
	if err != nil {
		metrics.ArtistEnrichments.WithLabelValues(enrichFailed).Inc()
		return nil, err
	}
	if !created && rec.Enriched() {
		metrics.ArtistEnrichments.WithLabelValues(enrichCached).Inc()
		return rec, nil
	}

	out, err := e.enrich(ctx, rec, name, firstNonEmpty(mbid, rec.MBID), nil)
	if err != nil {
		metrics.ArtistEnrichments.WithLabelValues(enrichFailed).Inc()
		return rec, err
	}
	metrics.ArtistEnrichments.WithLabelValues(enrichCreated).Inc()
	return out, nil
}

// Refresh re-enriches a chart entry unconditionally, seeding counters from
// the chart itself.
func (e *Enricher) Refresh(ctx context.Context, entry sources.ChartArtist) (*Record, error) {
	rec, _, err := e.store.GetOrCreate(ctx, entry.Name, entry.MBID)
	if err != nil {
		metrics.ArtistEnrichments.WithLabelValues(enrichFailed).Inc()
		return nil, err
	}

	out, err := e.enrich(ctx, rec, entry.Name, firstNonEmpty(entry.MBID, rec.MBID), &entry)
	if err != nil {
		metrics.ArtistEnrichments.WithLabelValues(enrichFailed).Inc()
		return rec, err
	}
	metrics.ArtistEnrichments.WithLabelValues(enrichRefreshed).Inc()
	return out, nil
}

// enrich runs identity, chart info and the image waterfall, then writes what
// came back. Fields a source failed to supply keep their stored value; an
// image is never replaced by nothing.
func (e *Enricher) enrich(ctx context.Context, rec *Record, name, mbid string, chart *sources.ChartArtist) (*Record, error) {
	logger := e.logger.With().Str("artist", name).Logger()
	patch := Patch{}

	if chart != nil {
		patch.Listeners = ptr(chart.Listeners)
		patch.Playcount = ptr(chart.Playcount)
	}

	ident := e.resolver.Resolve(ctx, name, mbid)
	if ident.ID != "" {
		patch.MBID = ptr(ident.ID)
	}
	if ident.Raw != nil {
		patch.Genres = ident.Genres
		if patch.Genres == nil {
			patch.Genres = []string{}
		}
	}
	patch.LatestRelease = ident.LatestRelease

	var info *sources.ArtistInfo
	if e.chart != nil {
		var err error
		info, err = e.chart.ArtistInfo(ctx, name, ident.ID)
		switch {
		case err == nil:
			if info.Listeners > 0 || chart == nil {
				patch.Listeners = ptr(info.Listeners)
			}
			if info.Playcount > 0 || chart == nil {
				patch.Playcount = ptr(info.Playcount)
			}
			if patch.Genres == nil && len(info.Tags) > 0 {
				patch.Genres = info.Tags
			}
		case errors.Is(err, sources.ErrNotFound):
			logger.Debug().Err(err).Msg("chart info not found")
		default:
			logger.Warn().Err(err).Msg("chart info unavailable")
		}
	}

	// The resolver already tried the registry; an empty slice stops the
	// waterfall from fetching it again.
	groups := ident.ReleaseGroups
	if groups == nil {
		groups = []sources.ReleaseGroup{}
	}
	if img := e.images.ResolveWithReleases(ctx, name, ident.ID, groups); img != "" {
		patch.ImageURL = ptr(img)
	}

	patch.RawPayload = rawPayload(ident.Raw, info)

	// A canceled run saw its sources cut short, so the record is left
	// unsynced and the next Ensure enriches it again. Whatever did come
	// back is still written, under a fresh context.
	writeCtx := ctx
	if ctx.Err() != nil {
		logger.Debug().Err(ctx.Err()).Msg("enrichment interrupted, record left unsynced")
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	} else {
		patch.SyncedAt = ptr(e.now().UTC())
	}
	return e.store.Update(writeCtx, rec.ID, patch)
}

func rawPayload(registry json.RawMessage, info *sources.ArtistInfo) json.RawMessage {
	payload := map[string]json.RawMessage{}
	if len(registry) > 0 {
		payload["musicbrainz"] = registry
	}
	if info != nil && len(info.Raw) > 0 {
		payload["lastfm"] = info.Raw
	}
	if len(payload) == 0 {
		return nil
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func ptr[T any](v T) *T {
	return &v
}
