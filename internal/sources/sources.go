// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package sources holds the adapters for the external music services Musicseer
// fuses: the Last.fm chart service, the MusicBrainz registry and its cover art
// archive, a Lidarr catalogue, TheAudioDB and Deezer.
//
// Every adapter returns explicit typed records, carries a short per-call
// timeout, sits behind its own circuit breaker and never retries. Failures are
// reported with the sentinel errors below so callers can degrade a single field
// instead of aborting their batch.
package sources

import (
	"errors"
	"time"
)

var (
	// ErrUnavailable covers network errors, timeouts, 5xx responses, open
	// circuit breakers and undecodable payloads.
	ErrUnavailable = errors.New("source unavailable")

	// ErrNotFound means the source has no record for the artist.
	ErrNotFound = errors.New("not found in source")

	// ErrRateLimited means the source answered 429 or its quota error.
	ErrRateLimited = errors.New("source rate limited")
)

// IsNoData reports whether err means "no contribution from this source".
// Every adapter error qualifies; callers use it to decide between a warn log
// and a debug log.
func IsNoData(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrRateLimited)
}

// Clock abstracts time for the registry throttle.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// After returns time.After(d).
func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
