// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package sources

import (
	"context"
	"sync"
	"time"
)

// Throttle spaces calls at least interval apart, in arrival order, across every
// goroutine sharing it. It is a fixed delay rather than a token bucket: the
// registry forbids bursts entirely.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	clock    Clock
	next     time.Time
}

// NewThrottle returns a throttle with the given spacing. A nil clock uses the wall clock.
func NewThrottle(interval time.Duration, clock Clock) *Throttle {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Throttle{interval: interval, clock: clock}
}

// Wait blocks until the caller's slot arrives. A slot is reserved even if ctx
// is canceled while waiting, so spacing holds for everyone queued behind.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	now := t.clock.Now()
	slot := t.next
	if slot.Before(now) {
		slot = now
	}
	t.next = slot.Add(t.interval)
	t.mu.Unlock()

	delay := slot.Sub(now)
	if delay <= 0 {
		return ctx.Err()
	}

	select {
	case <-t.clock.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
