// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tkharbeche/musicseer/internal/config"
)

// SourceLastFM is the breaker and metrics label of the chart service.
const SourceLastFM = "lastfm"

// Last.fm API error codes that map to sentinel errors.
const (
	lastfmErrInvalidParams = 6
	lastfmErrRateLimit     = 29
)

// ChartGlobal is the default chart type.
const ChartGlobal = "global"

// Image is one sized image reference from the chart service.
type Image struct {
	Size string
	URL  string
}

// ChartArtist is one entry of a chart, in rank order.
type ChartArtist struct {
	Name      string
	MBID      string
	Listeners int64
	Playcount int64
	URL       string
	Images    []Image
}

// ArtistInfo is the detailed chart-service record for one artist.
type ArtistInfo struct {
	Name      string
	MBID      string
	Listeners int64
	Playcount int64
	Images    []Image
	Tags      []string
	Raw       json.RawMessage
}

// SimilarArtist is one edge of the similarity graph.
type SimilarArtist struct {
	Name   string
	MBID   string
	Match  float64
	Images []Image
}

// LargestImage returns the "extralarge" image, else "large", else "".
func LargestImage(images []Image) string {
	var large string
	for _, img := range images {
		switch img.Size {
		case "extralarge":
			if img.URL != "" {
				return img.URL
			}
		case "large":
			large = img.URL
		}
	}
	return large
}

type lastfmImage struct {
	URL  string `json:"#text"`
	Size string `json:"size"`
}

type lastfmArtist struct {
	Name      string        `json:"name"`
	MBID      string        `json:"mbid"`
	URL       string        `json:"url"`
	Listeners flexInt       `json:"listeners"`
	Playcount flexInt       `json:"playcount"`
	Match     flexFloat     `json:"match"`
	Image     []lastfmImage `json:"image"`
	Stats     struct {
		Listeners flexInt `json:"listeners"`
		Playcount flexInt `json:"playcount"`
	} `json:"stats"`
	Tags struct {
		Tag []struct {
			Name string `json:"name"`
		} `json:"tag"`
	} `json:"tags"`
}

func (a lastfmArtist) images() []Image {
	out := make([]Image, 0, len(a.Image))
	for _, img := range a.Image {
		out = append(out, Image{Size: img.Size, URL: img.URL})
	}
	return out
}

type lastfmError struct {
	Code    int    `json:"error"`
	Message string `json:"message"`
}

// LastFM is the scrobble-chart adapter.
type LastFM struct {
	src     *httpSource
	baseURL string
	apiKey  string
}

// NewLastFM creates the chart-service adapter.
func NewLastFM(cfg *config.LastFMConfig) *LastFM {
	return &LastFM{
		src:     newHTTPSource(SourceLastFM, cfg.Timeout, ""),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// TopArtists returns the global chart, truncated to limit.
func (l *LastFM) TopArtists(ctx context.Context, limit int) ([]ChartArtist, error) {
	return l.ChartTopArtists(ctx, ChartGlobal, limit)
}

// ChartTopArtists returns the top artists of a chart type: "global",
// "tag:<tag>" or "geo:<country>".
func (l *LastFM) ChartTopArtists(ctx context.Context, chartType string, limit int) ([]ChartArtist, error) {
	q := url.Values{}
	kind, arg, _ := strings.Cut(chartType, ":")
	switch kind {
	case ChartGlobal, "":
		q.Set("method", "chart.gettopartists")
	case "tag":
		q.Set("method", "tag.gettopartists")
		q.Set("tag", arg)
	case "geo":
		q.Set("method", "geo.gettopartists")
		q.Set("country", arg)
	default:
		return nil, fmt.Errorf("unknown chart type %q", chartType)
	}
	q.Set("limit", strconv.Itoa(limit))

	var resp struct {
		Artists struct {
			Artist []lastfmArtist `json:"artist"`
		} `json:"artists"`
		TopArtists struct {
			Artist []lastfmArtist `json:"artist"`
		} `json:"topartists"`
	}
	if err := l.call(ctx, q, &resp); err != nil {
		return nil, err
	}

	raw := resp.Artists.Artist
	if len(raw) == 0 {
		raw = resp.TopArtists.Artist
	}
	out := make([]ChartArtist, 0, len(raw))
	for _, a := range raw {
		if strings.TrimSpace(a.Name) == "" {
			continue
		}
		out = append(out, ChartArtist{
			Name:      a.Name,
			MBID:      a.MBID,
			Listeners: int64(a.Listeners),
			Playcount: int64(a.Playcount),
			URL:       a.URL,
			Images:    a.images(),
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ArtistInfo fetches the detailed record, by mbid when known else by name.
func (l *LastFM) ArtistInfo(ctx context.Context, name, mbid string) (*ArtistInfo, error) {
	q := url.Values{}
	q.Set("method", "artist.getinfo")
	setArtistParam(q, name, mbid)

	var resp struct {
		Artist json.RawMessage `json:"artist"`
	}
	if err := l.call(ctx, q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Artist) == 0 || string(resp.Artist) == "null" {
		return nil, fmt.Errorf("%w: %s: artist %q", ErrNotFound, SourceLastFM, name)
	}

	var a lastfmArtist
	if err := json.Unmarshal(resp.Artist, &a); err != nil {
		return nil, fmt.Errorf("%w: %s: decode artist: %w", ErrUnavailable, SourceLastFM, err)
	}

	info := &ArtistInfo{
		Name:      a.Name,
		MBID:      a.MBID,
		Listeners: int64(a.Stats.Listeners),
		Playcount: int64(a.Stats.Playcount),
		Images:    a.images(),
		Raw:       resp.Artist,
	}
	if info.Listeners == 0 {
		info.Listeners = int64(a.Listeners)
	}
	for _, t := range a.Tags.Tag {
		info.Tags = append(info.Tags, t.Name)
	}
	return info, nil
}

// SimilarArtists returns up to limit similar artists with match coerced to [0,1].
func (l *LastFM) SimilarArtists(ctx context.Context, name, mbid string, limit int) ([]SimilarArtist, error) {
	q := url.Values{}
	q.Set("method", "artist.getsimilar")
	setArtistParam(q, name, mbid)
	q.Set("limit", strconv.Itoa(limit))

	var resp struct {
		SimilarArtists struct {
			Artist []lastfmArtist `json:"artist"`
		} `json:"similarartists"`
	}
	if err := l.call(ctx, q, &resp); err != nil {
		return nil, err
	}

	out := make([]SimilarArtist, 0, len(resp.SimilarArtists.Artist))
	for _, a := range resp.SimilarArtists.Artist {
		if strings.TrimSpace(a.Name) == "" {
			continue
		}
		out = append(out, SimilarArtist{
			Name:   a.Name,
			MBID:   a.MBID,
			Match:  float64(a.Match),
			Images: a.images(),
		})
	}
	return out, nil
}

func setArtistParam(q url.Values, name, mbid string) {
	if mbid != "" {
		q.Set("mbid", mbid)
		return
	}
	q.Set("artist", name)
}

// call adds the shared parameters and maps Last.fm's in-body error codes.
func (l *LastFM) call(ctx context.Context, q url.Values, out interface{}) error {
	q.Set("api_key", l.apiKey)
	q.Set("format", "json")

	return l.src.get(ctx, l.baseURL, q, func(status int, body []byte) error {
		var apiErr lastfmError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != 0 {
			switch apiErr.Code {
			case lastfmErrInvalidParams:
				return fmt.Errorf("%w: %s: %s", ErrNotFound, SourceLastFM, apiErr.Message)
			case lastfmErrRateLimit:
				return fmt.Errorf("%w: %s: %s", ErrRateLimited, SourceLastFM, apiErr.Message)
			default:
				return fmt.Errorf("%w: %s: error %d: %s", ErrUnavailable, SourceLastFM, apiErr.Code, apiErr.Message)
			}
		}
		return l.src.jsonInto(out)(status, body)
	})
}
