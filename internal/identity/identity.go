// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package identity fills in an artist's canonical registry id and pulls the
// registry metadata keyed by it: genre tags, release groups and the latest
// release date.
//
// Resolve never fails. Registry errors degrade the affected fields to empty
// and are logged; an artist the registry does not know keeps no id forever.
package identity

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tkharbeche/musicseer/internal/sources"
)

// Registry is the subset of the registry adapter the resolver uses.
type Registry interface {
	SearchArtist(ctx context.Context, name string) ([]sources.RegistryArtist, error)
	GetArtist(ctx context.Context, mbid string) (*sources.RegistryArtist, error)
}

// Result is the best-effort identity of one artist.
type Result struct {
	ID            string
	Genres        []string
	LatestRelease *time.Time
	ReleaseGroups []sources.ReleaseGroup
	Raw           json.RawMessage
}

// Resolver resolves chart entries against the registry.
type Resolver struct {
	registry Registry
	logger   zerolog.Logger
}

// NewResolver creates a resolver.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewResolver(registry Registry, logger zerolog.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		logger:   logger.With().Str("component", "identity").Logger(),
	}
}

// Resolve returns the registry identity for name. knownID skips the search.
func (r *Resolver) Resolve(ctx context.Context, name, knownID string) Result {
	res := Result{ID: strings.TrimSpace(knownID)}

	if res.ID == "" {
		res.ID = r.search(ctx, name)
		if res.ID == "" {
			return res
		}
	}

	artist, err := r.registry.GetArtist(ctx, res.ID)
	if err != nil {
		r.logSourceError(err, name, "registry fetch failed")
		return res
	}

	res.Genres = genresOf(artist)
	res.ReleaseGroups = artist.ReleaseGroups
	res.LatestRelease = LatestReleaseDate(artist.ReleaseGroups)
	res.Raw = artist.Raw
	return res
}

// search takes the registry's first ranked match; no fuzzy scoring on top.
func (r *Resolver) search(ctx context.Context, name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	found, err := r.registry.SearchArtist(ctx, name)
	if err != nil {
		r.logSourceError(err, name, "registry search failed")
		return ""
	}
	if len(found) == 0 {
		r.logger.Debug().Str("artist", name).Msg("registry search returned no match")
		return ""
	}
	return found[0].ID
}

func (r *Resolver) logSourceError(err error, name, msg string) {
	ev := r.logger.Warn()
	if errors.Is(err, sources.ErrNotFound) {
		ev = r.logger.Debug()
	}
	ev.Err(err).Str("artist", name).Msg(msg)
}

// genresOf returns tag names in registry order, stored verbatim. Curated
// genres are used only when the artist carries no tags.
func genresOf(a *sources.RegistryArtist) []string {
	tags := a.Tags
	if len(tags) == 0 {
		tags = a.Genres
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Name != "" {
			out = append(out, t.Name)
		}
	}
	return out
}

var releaseDateLayouts = []string{"2006-01-02", "2006-01", "2006"}

// ParseReleaseDate parses a registry partial date: YYYY, YYYY-MM or YYYY-MM-DD.
func ParseReleaseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseDateLayouts {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LatestReleaseDate returns the maximum parseable first-release date across
// the groups, or nil when none parse.
func LatestReleaseDate(groups []sources.ReleaseGroup) *time.Time {
	var latest time.Time
	for _, g := range groups {
		t, ok := ParseReleaseDate(g.FirstReleaseDate)
		if ok && t.After(latest) {
			latest = t
		}
	}
	if latest.IsZero() {
		return nil
	}
	return &latest
}

// RecentReleaseGroups returns up to n groups with a parseable date, newest first.
func RecentReleaseGroups(groups []sources.ReleaseGroup, n int) []sources.ReleaseGroup {
	type dated struct {
		group sources.ReleaseGroup
		at    time.Time
	}
	var all []dated
	for _, g := range groups {
		if t, ok := ParseReleaseDate(g.FirstReleaseDate); ok {
			all = append(all, dated{g, t})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].at.After(all[j].at) })

	if n < 0 {
		n = 0
	}
	if n > len(all) {
		n = len(all)
	}
	out := make([]sources.ReleaseGroup, 0, n)
	for _, d := range all[:n] {
		out = append(out, d.group)
	}
	return out
}
