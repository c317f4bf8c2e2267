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

	"github.com/tkharbeche/musicseer/internal/config"
)

// SourceAudioDB is the breaker and metrics label of TheAudioDB.
const SourceAudioDB = "audiodb"

// AudioDBArtist is TheAudioDB's artist record, reduced to the fields used here.
type AudioDBArtist struct {
	ID        string `json:"idArtist"`
	Name      string `json:"strArtist"`
	MBID      string `json:"strMusicBrainzID"`
	Genre     string `json:"strGenre"`
	Thumb     string `json:"strArtistThumb"`
	Fanart    string `json:"strArtistFanart"`
	Fanart2   string `json:"strArtistFanart2"`
	Fanart3   string `json:"strArtistFanart3"`
	WideThumb string `json:"strArtistWideThumb"`
}

// BestImage returns fanart, fanart 2, fanart 3, thumb, then wide thumb.
func (a *AudioDBArtist) BestImage() string {
	if a == nil {
		return ""
	}
	for _, u := range []string{a.Fanart, a.Fanart2, a.Fanart3, a.Thumb, a.WideThumb} {
		if isHTTPURL(u) {
			return u
		}
	}
	return ""
}

// AudioDB is the secondary image provider adapter.
type AudioDB struct {
	src     *httpSource
	baseURL string
}

// NewAudioDB creates the adapter with its own token bucket.
func NewAudioDB(cfg *config.AudioDBConfig) *AudioDB {
	return &AudioDB{
		src:     newHTTPSource(SourceAudioDB, cfg.Timeout, "").withLimiter(cfg.RPS),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// ByMBID looks an artist up by canonical id.
func (a *AudioDB) ByMBID(ctx context.Context, mbid string) (*AudioDBArtist, error) {
	q := url.Values{}
	q.Set("i", mbid)
	return a.first(ctx, "/artist-mbid.php", q, mbid)
}

// ByName searches an artist by name.
func (a *AudioDB) ByName(ctx context.Context, name string) (*AudioDBArtist, error) {
	q := url.Values{}
	q.Set("s", name)
	return a.first(ctx, "/artist.php", q, name)
}

func (a *AudioDB) first(ctx context.Context, path string, q url.Values, key string) (*AudioDBArtist, error) {
	var resp struct {
		Artists []AudioDBArtist `json:"artists"`
	}
	if err := a.src.get(ctx, a.baseURL+path, q, a.src.jsonInto(&resp)); err != nil {
		return nil, err
	}
	if len(resp.Artists) == 0 {
		return nil, fmt.Errorf("%w: %s: %q", ErrNotFound, SourceAudioDB, key)
	}
	return &resp.Artists[0], nil
}
