// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package imagery resolves one displayable image URL per artist by trying
// the image sources in a fixed priority order.
package imagery

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tkharbeche/musicseer/internal/identity"
	"github.com/tkharbeche/musicseer/internal/metrics"
	"github.com/tkharbeche/musicseer/internal/sources"
)

// PlaceholderFingerprint appears in the path of the chart service's generic
// "no image" star picture.
const PlaceholderFingerprint = "2a96cbd8b46e442fc41c2b86b821562f"

// maxCoverArtAttempts is how many of the newest release groups are tried.
const maxCoverArtAttempts = 3

// sourceNone labels resolutions where every source came up empty.
const sourceNone = "none"

// IsPlaceholder reports whether u is the known placeholder image.
func IsPlaceholder(u string) bool {
	return strings.Contains(u, PlaceholderFingerprint)
}

// Catalogue looks artists up in the artist-management system.
type Catalogue interface {
	LookupArtist(ctx context.Context, term string) ([]sources.CatalogueArtist, error)
}

// ChartInfo fetches the chart service's detailed artist record.
type ChartInfo interface {
	ArtistInfo(ctx context.Context, name, mbid string) (*sources.ArtistInfo, error)
}

// Registry provides release groups and their cover art.
type Registry interface {
	GetArtist(ctx context.Context, mbid string) (*sources.RegistryArtist, error)
	ReleaseGroupCoverArt(ctx context.Context, releaseGroupID string) (string, error)
}

// SecondaryImages is the artist thumbnail and fanart provider.
type SecondaryImages interface {
	ByMBID(ctx context.Context, mbid string) (*sources.AudioDBArtist, error)
	ByName(ctx context.Context, name string) (*sources.AudioDBArtist, error)
}

// ArtistSearch is the last-resort artist picture search.
type ArtistSearch interface {
	SearchArtist(ctx context.Context, name string) (*sources.DeezerArtist, error)
}

// Checker validates that a candidate URL serves an image.
type Checker interface {
	IsDisplayable(ctx context.Context, url string) bool
}

// Sources are the waterfall's inputs. Nil sources are skipped; Checker is required.
type Sources struct {
	Catalogue Catalogue
	Chart     ChartInfo
	Registry  Registry
	Secondary SecondaryImages
	Search    ArtistSearch
	Checker   Checker
}

// Waterfall tries, in order: the catalogue, the chart service, registry cover
// art for the newest releases, the secondary provider, then artist search.
// The first candidate that passes the checker wins.
type Waterfall struct {
	src    Sources
	logger zerolog.Logger
}

// NewWaterfall creates the waterfall.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWaterfall(src Sources, logger zerolog.Logger) *Waterfall {
	return &Waterfall{
		src:    src,
		logger: logger.With().Str("component", "imagery").Logger(),
	}
}

type step struct {
	source string
	try    func(ctx context.Context) string
}

// Resolve returns the first displayable image for the artist, or "" when no
// source has one. "" is a normal outcome.
func (w *Waterfall) Resolve(ctx context.Context, name, mbid string) string {
	return w.ResolveWithReleases(ctx, name, mbid, nil)
}

// ResolveWithReleases is Resolve with the artist's release groups already at
// hand, which saves a throttled registry fetch. Nil groups are fetched when
// mbid is set.
func (w *Waterfall) ResolveWithReleases(ctx context.Context, name, mbid string, groups []sources.ReleaseGroup) string {
	steps := []step{
		{sources.SourceLidarr, func(ctx context.Context) string { return w.fromCatalogue(ctx, name, mbid) }},
		{sources.SourceLastFM, func(ctx context.Context) string { return w.fromChart(ctx, name, mbid) }},
		{sources.SourceCoverArt, func(ctx context.Context) string { return w.fromCoverArt(ctx, name, mbid, groups) }},
		{sources.SourceAudioDB, func(ctx context.Context) string { return w.fromSecondary(ctx, name, mbid) }},
		{sources.SourceDeezer, func(ctx context.Context) string { return w.fromSearch(ctx, name) }},
	}

	for _, s := range steps {
		if ctx.Err() != nil {
			break
		}
		if u := s.try(ctx); u != "" {
			metrics.ImageResolutions.WithLabelValues(s.source).Inc()
			w.logger.Debug().Str("artist", name).Str("source", s.source).Msg("image resolved")
			return u
		}
	}

	metrics.ImageResolutions.WithLabelValues(sourceNone).Inc()
	return ""
}

// accept reports whether a candidate may be returned.
func (w *Waterfall) accept(ctx context.Context, name, source, u string) bool {
	if u == "" || IsPlaceholder(u) || !isWebURL(u) {
		return false
	}
	if !w.src.Checker.IsDisplayable(ctx, u) {
		w.logger.Debug().Str("artist", name).Str("source", source).Str("url", u).Msg("image candidate rejected")
		return false
	}
	return true
}

func (w *Waterfall) fromCatalogue(ctx context.Context, name, mbid string) string {
	if w.src.Catalogue == nil {
		return ""
	}
	matches, err := w.src.Catalogue.LookupArtist(ctx, sources.LookupTerm(name, mbid))
	if err != nil {
		w.logSourceError(err, name, sources.SourceLidarr)
		return ""
	}
	if len(matches) == 0 {
		return ""
	}
	if u := pickCatalogueImage(matches[0].Images); w.accept(ctx, name, sources.SourceLidarr, u) {
		return u
	}
	return ""
}

// pickCatalogueImage prefers fanart, then poster, then the first image.
func pickCatalogueImage(images []sources.CatalogueImage) string {
	byType := func(coverType string) string {
		for _, img := range images {
			if strings.EqualFold(img.CoverType, coverType) && isWebURL(img.Link()) {
				return img.Link()
			}
		}
		return ""
	}
	if u := byType("fanart"); u != "" {
		return u
	}
	if u := byType("poster"); u != "" {
		return u
	}
	if len(images) > 0 && isWebURL(images[0].Link()) {
		return images[0].Link()
	}
	return ""
}

func (w *Waterfall) fromChart(ctx context.Context, name, mbid string) string {
	if w.src.Chart == nil {
		return ""
	}
	info, err := w.src.Chart.ArtistInfo(ctx, name, mbid)
	if err != nil {
		w.logSourceError(err, name, sources.SourceLastFM)
		return ""
	}
	if u := sources.LargestImage(info.Images); w.accept(ctx, name, sources.SourceLastFM, u) {
		return u
	}
	return ""
}

func (w *Waterfall) fromCoverArt(ctx context.Context, name, mbid string, groups []sources.ReleaseGroup) string {
	if w.src.Registry == nil || mbid == "" {
		return ""
	}
	if groups == nil {
		artist, err := w.src.Registry.GetArtist(ctx, mbid)
		if err != nil {
			w.logSourceError(err, name, sources.SourceMusicBrainz)
			return ""
		}
		groups = artist.ReleaseGroups
	}

	for _, g := range identity.RecentReleaseGroups(groups, maxCoverArtAttempts) {
		u, err := w.src.Registry.ReleaseGroupCoverArt(ctx, g.ID)
		if err != nil {
			w.logSourceError(err, name, sources.SourceCoverArt)
			continue
		}
		if w.accept(ctx, name, sources.SourceCoverArt, u) {
			return u
		}
	}
	return ""
}

func (w *Waterfall) fromSecondary(ctx context.Context, name, mbid string) string {
	if w.src.Secondary == nil {
		return ""
	}
	if mbid != "" {
		a, err := w.src.Secondary.ByMBID(ctx, mbid)
		if err != nil {
			w.logSourceError(err, name, sources.SourceAudioDB)
		} else if u := a.BestImage(); w.accept(ctx, name, sources.SourceAudioDB, u) {
			return u
		}
	}
	if strings.TrimSpace(name) == "" {
		return ""
	}
	a, err := w.src.Secondary.ByName(ctx, name)
	if err != nil {
		w.logSourceError(err, name, sources.SourceAudioDB)
		return ""
	}
	if u := a.BestImage(); w.accept(ctx, name, sources.SourceAudioDB, u) {
		return u
	}
	return ""
}

func (w *Waterfall) fromSearch(ctx context.Context, name string) string {
	if w.src.Search == nil || strings.TrimSpace(name) == "" {
		return ""
	}
	a, err := w.src.Search.SearchArtist(ctx, name)
	if err != nil {
		w.logSourceError(err, name, sources.SourceDeezer)
		return ""
	}
	if u := a.BestImage(); w.accept(ctx, name, sources.SourceDeezer, u) {
		return u
	}
	return ""
}

func (w *Waterfall) logSourceError(err error, name, source string) {
	ev := w.logger.Warn()
	if errors.Is(err, sources.ErrNotFound) {
		ev = w.logger.Debug()
	}
	ev.Err(err).Str("artist", name).Str("source", source).Msg("image source failed")
}

func isWebURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
