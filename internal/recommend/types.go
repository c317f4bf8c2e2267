// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package recommend

import (
	"time"
)

// Mode selects the ranking strategy.
type Mode int

const (
	// ModePersonalized ranks candidates by the weighted final score.
	ModePersonalized Mode = iota
	// ModeHiddenGems re-ranks a relevant pool by summed match strength.
	ModeHiddenGems
)

// String returns the mode name used in logs, metrics and responses.
func (m Mode) String() string {
	switch m {
	case ModePersonalized:
		return "personalized"
	case ModeHiddenGems:
		return "hidden_gems"
	default:
		return "unknown"
	}
}

// Source tells where the returned list came from.
type Source string

const (
	SourceScored   Source = "scored"
	SourceTrending Source = "trending"
)

// Request asks for recommendations for one listener.
type Request struct {
	// UserID identifies the listener whose library seeds the request.
	UserID string `json:"user_id" validate:"required,max=128"`

	// ServerID optionally restricts the library to one media server.
	ServerID string `json:"server_id,omitempty" validate:"max=128"`

	// Limit is the maximum number of results. 0 means the configured
	// default; negative values are rejected.
	Limit int `json:"limit"`

	// Mode selects the ranking strategy.
	Mode Mode `json:"mode"`
}

// Scores holds the normalized components of a candidate's score.
type Scores struct {
	Popularity float64 `json:"popularity"`
	Similarity float64 `json:"similarity"`
	Diversity  float64 `json:"diversity"`
	Freshness  float64 `json:"freshness"`
}

// Recommendation is one ranked artist.
type Recommendation struct {
	Name          string     `json:"name"`
	MBID          string     `json:"mbid,omitempty"`
	ArtistID      string     `json:"artist_id,omitempty"`
	ImageURL      string     `json:"image_url,omitempty"`
	Genres        []string   `json:"genres"`
	Listeners     int64      `json:"listeners"`
	LatestRelease *time.Time `json:"latest_release,omitempty"`

	// Score is the weighted final score in [0, 1]. Zero for trending
	// fallback entries, which are not scored.
	Score float64 `json:"score"`

	// Components is nil for trending fallback entries.
	Components *Scores `json:"components,omitempty"`

	// MatchSum is the summed match strength across seeds.
	MatchSum float64 `json:"match_sum,omitempty"`

	// Occurrences is how many seeds listed this artist as similar.
	Occurrences int `json:"occurrences,omitempty"`

	// SeedArtists are the library artists that led here, in seed order.
	SeedArtists []string `json:"seed_artists,omitempty"`

	// Reason is a short human-readable explanation.
	Reason string `json:"reason,omitempty"`

	// Rank is the trending rank for fallback entries.
	Rank int `json:"rank,omitempty"`
}

// Response is the result of a Recommend call.
type Response struct {
	Items    []Recommendation `json:"items"`
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata describes how a response was produced.
type ResponseMetadata struct {
	RequestID       string    `json:"request_id"`
	UserID          string    `json:"user_id"`
	ServerID        string    `json:"server_id,omitempty"`
	Mode            string    `json:"mode"`
	Source          Source    `json:"source"`
	Seeds           []string  `json:"seeds,omitempty"`
	TotalCandidates int       `json:"total_candidates"`
	LatencyMS       int64     `json:"latency_ms"`
	Timestamp       time.Time `json:"timestamp"`
}
