// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tkharbeche/musicseer/internal/config"
)

// Breaker and metrics labels of the registry and its cover art archive.
const (
	SourceMusicBrainz = "musicbrainz"
	SourceCoverArt    = "coverart"
)

// registrySearchLimit is how many candidates a name search asks for.
const registrySearchLimit = 5

// Tag is a registry tag or genre with its vote count.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ReleaseGroup is one release group of an artist.
type ReleaseGroup struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	PrimaryType      string `json:"primary-type"`
	FirstReleaseDate string `json:"first-release-date"`
}

// RegistryArtist is the registry's artist record.
type RegistryArtist struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	SortName       string         `json:"sort-name"`
	Type           string         `json:"type"`
	Disambiguation string         `json:"disambiguation"`
	Score          int            `json:"score"`
	Tags           []Tag          `json:"tags"`
	Genres         []Tag          `json:"genres"`
	ReleaseGroups  []ReleaseGroup `json:"release-groups"`

	// Raw is the undecoded payload of a fetch-by-id, kept for reprocessing.
	Raw json.RawMessage `json:"-"`
}

// MusicBrainz is the canonical identity registry adapter. Every call, cover
// art included, passes through one shared Throttle.
type MusicBrainz struct {
	registry    *httpSource
	coverArt    *httpSource
	baseURL     string
	coverArtURL string
}

// NewMusicBrainz creates the registry adapter. A nil clock uses the wall clock.
func NewMusicBrainz(cfg *config.MusicBrainzConfig, clock Clock) *MusicBrainz {
	throttle := NewThrottle(cfg.MinInterval, clock)

	registry := newHTTPSource(SourceMusicBrainz, cfg.Timeout, cfg.UserAgent())
	registry.wait = throttle
	coverArt := newHTTPSource(SourceCoverArt, cfg.Timeout, cfg.UserAgent())
	coverArt.wait = throttle

	return &MusicBrainz{
		registry:    registry,
		coverArt:    coverArt,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		coverArtURL: strings.TrimRight(cfg.CoverArtURL, "/"),
	}
}

// SearchArtist searches by name and returns candidates in registry ranking order.
func (m *MusicBrainz) SearchArtist(ctx context.Context, name string) ([]RegistryArtist, error) {
	q := url.Values{}
	q.Set("query", `artist:"`+escapeLucene(name)+`"`)
	q.Set("fmt", "json")
	q.Set("limit", fmt.Sprint(registrySearchLimit))

	var resp struct {
		Artists []RegistryArtist `json:"artists"`
	}
	if err := m.registry.get(ctx, m.baseURL+"/artist", q, m.registry.jsonInto(&resp)); err != nil {
		return nil, err
	}
	return resp.Artists, nil
}

// GetArtist fetches the full record with tags, genres and release groups.
func (m *MusicBrainz) GetArtist(ctx context.Context, mbid string) (*RegistryArtist, error) {
	q := url.Values{}
	q.Set("fmt", "json")
	q.Set("inc", "tags+ratings+genres+release-groups")

	var artist RegistryArtist
	err := m.registry.get(ctx, m.baseURL+"/artist/"+url.PathEscape(mbid), q, func(status int, body []byte) error {
		if err := m.registry.jsonInto(&artist)(status, body); err != nil {
			return err
		}
		artist.Raw = append(json.RawMessage(nil), body...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &artist, nil
}

// ReleaseGroupCoverArt returns the front cover of a release group, preferring
// the large thumbnail. ErrNotFound when the archive has no art.
func (m *MusicBrainz) ReleaseGroupCoverArt(ctx context.Context, releaseGroupID string) (string, error) {
	var resp struct {
		Images []struct {
			Front      bool              `json:"front"`
			Image      string            `json:"image"`
			Thumbnails map[string]string `json:"thumbnails"`
		} `json:"images"`
	}
	path := m.coverArtURL + "/release-group/" + url.PathEscape(releaseGroupID)
	if err := m.coverArt.get(ctx, path, nil, m.coverArt.jsonInto(&resp)); err != nil {
		return "", err
	}

	for _, img := range resp.Images {
		if !img.Front {
			continue
		}
		for _, size := range []string{"large", "500"} {
			if u := img.Thumbnails[size]; isHTTPURL(u) {
				return u, nil
			}
		}
		if isHTTPURL(img.Image) {
			return img.Image, nil
		}
	}
	return "", fmt.Errorf("%w: %s: no front cover for %s", ErrNotFound, SourceCoverArt, releaseGroupID)
}

// escapeLucene escapes characters that would end or alter a quoted term.
func escapeLucene(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
