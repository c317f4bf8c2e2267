// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package sources

import (
	"context"
	"net/url"

	"github.com/tkharbeche/musicseer/internal/config"
)

// SourceLidarr is the breaker and metrics label of the catalogue.
const SourceLidarr = "lidarr"

// CatalogueImage is one image of a catalogue artist.
type CatalogueImage struct {
	CoverType string `json:"coverType"`
	URL       string `json:"url"`
	RemoteURL string `json:"remoteUrl"`
}

// Link returns the remote URL when present, else the local one.
func (i CatalogueImage) Link() string {
	if i.RemoteURL != "" {
		return i.RemoteURL
	}
	return i.URL
}

// CatalogueArtist is one lookup match from the artist-management catalogue.
type CatalogueArtist struct {
	ArtistName      string           `json:"artistName"`
	ForeignArtistID string           `json:"foreignArtistId"`
	Overview        string           `json:"overview"`
	Genres          []string         `json:"genres"`
	Images          []CatalogueImage `json:"images"`
}

// Lidarr is the artist-management catalogue adapter.
type Lidarr struct {
	src     *httpSource
	baseURL string
}

// NewLidarr creates the catalogue adapter. cfg.URL is normalized.
func NewLidarr(cfg *config.LidarrConfig) *Lidarr {
	src := newHTTPSource(SourceLidarr, cfg.Timeout, "")
	src.header.Set("X-Api-Key", cfg.APIKey)
	return &Lidarr{
		src:     src,
		baseURL: config.NormalizeBaseURL(cfg.URL),
	}
}

// LookupTerm builds the lookup term: "lidarr:<mbid>" when the id is known, else the name.
func LookupTerm(name, mbid string) string {
	if mbid != "" {
		return "lidarr:" + mbid
	}
	return name
}

// LookupArtist runs the catalogue's artist lookup for term.
func (l *Lidarr) LookupArtist(ctx context.Context, term string) ([]CatalogueArtist, error) {
	q := url.Values{}
	q.Set("term", term)

	var out []CatalogueArtist
	if err := l.src.get(ctx, l.baseURL+"/api/v1/artist/lookup", q, l.src.jsonInto(&out)); err != nil {
		return nil, err
	}
	return out, nil
}
