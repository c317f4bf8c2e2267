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

// SourceDeezer is the breaker and metrics label of Deezer.
const SourceDeezer = "deezer"

// deezerQuotaExceeded is Deezer's in-body quota error code.
const deezerQuotaExceeded = 4

// DeezerArtist represents an artist from the Deezer search API.
type DeezerArtist struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	PictureMedium string `json:"picture_medium"` // 250x250
	PictureBig    string `json:"picture_big"`    // 500x500
	PictureXL     string `json:"picture_xl"`     // 1000x1000
	NbFan         int64  `json:"nb_fan"`
}

// BestImage returns picture_xl, picture_big, then picture_medium.
// Deezer fills these with an empty-hash path ("/artist//") when it has no
// picture; those are skipped.
func (a *DeezerArtist) BestImage() string {
	if a == nil {
		return ""
	}
	for _, u := range []string{a.PictureXL, a.PictureBig, a.PictureMedium} {
		if isHTTPURL(u) && !strings.Contains(u, "/artist//") {
			return u
		}
	}
	return ""
}

// Deezer is the last-resort image adapter.
type Deezer struct {
	src     *httpSource
	baseURL string
}

// NewDeezer creates the adapter with its own token bucket.
func NewDeezer(cfg *config.DeezerConfig) *Deezer {
	return &Deezer{
		src:     newHTTPSource(SourceDeezer, cfg.Timeout, "").withLimiter(cfg.RPS),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// SearchArtist returns the first search match for name.
func (d *Deezer) SearchArtist(ctx context.Context, name string) (*DeezerArtist, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("limit", "1")

	var resp struct {
		Data  []DeezerArtist `json:"data"`
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := d.src.get(ctx, d.baseURL+"/search/artist", q, d.src.jsonInto(&resp)); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		if resp.Error.Code == deezerQuotaExceeded {
			return nil, fmt.Errorf("%w: %s: %s", ErrRateLimited, SourceDeezer, resp.Error.Message)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrUnavailable, SourceDeezer, resp.Error.Message)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: %s: %q", ErrNotFound, SourceDeezer, name)
	}
	return &resp.Data[0], nil
}
