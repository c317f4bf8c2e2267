// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package similarity

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkharbeche/musicseer/internal/config"
	"github.com/tkharbeche/musicseer/internal/sources"
)

type fakeFetcher struct {
	mu     sync.Mutex
	result []sources.SimilarArtist
	err    error
	calls  int
	limits []int
}

func (f *fakeFetcher) SimilarArtists(_ context.Context, _, _ string, limit int) ([]sources.SimilarArtist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	return f.result, f.err
}

type manualClock struct{ now time.Time }

func (m *manualClock) Now() time.Time { return m.now }

func newTestCache(t *testing.T, f Fetcher, clock Clock) *Cache {
	t.Helper()
	cfg := &config.SimilarityConfig{InMemory: true, TTL: 7 * 24 * time.Hour, FetchSize: 50}
	db, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewCache(db, f, cfg, clock, zerolog.Nop())
}

func similarList(n int) []sources.SimilarArtist {
	out := make([]sources.SimilarArtist, n)
	for i := range out {
		out[i] = sources.SimilarArtist{Name: string(rune('A' + i)), Match: 1 - float64(i)/100}
	}
	return out
}

func TestGetSimilar_FetchesFiftyServesLimit(t *testing.T) {
	f := &fakeFetcher{result: similarList(30)}
	clock := &manualClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := newTestCache(t, f, clock)
	ctx := context.Background()

	got, err := c.GetSimilar(ctx, "Radiohead", "", 10)
	if err != nil {
		t.Fatalf("GetSimilar() error = %v", err)
	}
	if len(got) != 10 || got[0].Name != "A" {
		t.Errorf("got %d artists, first %+v", len(got), got)
	}
	if len(f.limits) != 1 || f.limits[0] != 50 {
		t.Errorf("upstream limits = %v, want [50]", f.limits)
	}

	got, _ = c.GetSimilar(ctx, "  RADIOHEAD ", "", 25)
	if len(got) != 25 {
		t.Errorf("larger limit from cache: got %d", len(got))
	}
	if f.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", f.calls)
	}

	all, _ := c.GetSimilar(ctx, "Radiohead", "", 0)
	if len(all) != 30 {
		t.Errorf("limit 0 should return all cached, got %d", len(all))
	}
}

func TestGetSimilar_TTLBoundary(t *testing.T) {
	f := &fakeFetcher{result: similarList(3)}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &manualClock{now: start}
	c := newTestCache(t, f, clock)
	ctx := context.Background()

	if _, err := c.GetSimilar(ctx, "Alpha", "", 5); err != nil {
		t.Fatal(err)
	}

	day := 24 * time.Hour
	clock.now = start.Add(time.Duration(6.99 * float64(day)))
	if _, err := c.GetSimilar(ctx, "Alpha", "", 5); err != nil {
		t.Fatal(err)
	}
	if f.calls != 1 {
		t.Errorf("at 6.99 days: calls = %d, want 1 (hit)", f.calls)
	}

	clock.now = start.Add(time.Duration(7.01 * float64(day)))
	if _, err := c.GetSimilar(ctx, "Alpha", "", 5); err != nil {
		t.Fatal(err)
	}
	if f.calls != 2 {
		t.Errorf("at 7.01 days: calls = %d, want 2 (miss)", f.calls)
	}

	entry, err := c.Peek("alpha")
	if err != nil || entry == nil {
		t.Fatalf("Peek() = %v, %v", entry, err)
	}
	if !entry.CachedAt.Equal(clock.now) {
		t.Errorf("CachedAt = %v, want refreshed %v", entry.CachedAt, clock.now)
	}
}

func TestGetSimilar_EmptyResultIsCached(t *testing.T) {
	f := &fakeFetcher{result: nil}
	c := newTestCache(t, f, &manualClock{now: time.Now()})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := c.GetSimilar(ctx, "Obscure", "", 10)
		if err != nil || got == nil || len(got) != 0 {
			t.Fatalf("GetSimilar() = %v, %v; want empty list", got, err)
		}
	}
	if f.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", f.calls)
	}
}

func TestGetSimilar_UpstreamFailure(t *testing.T) {
	f := &fakeFetcher{err: sources.ErrUnavailable}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &manualClock{now: start}
	c := newTestCache(t, f, clock)
	ctx := context.Background()

	got, err := c.GetSimilar(ctx, "Alpha", "", 10)
	if err != nil || len(got) != 0 {
		t.Fatalf("GetSimilar() = %v, %v", got, err)
	}
	if entry, _ := c.Peek("Alpha"); entry != nil {
		t.Error("failures must not be cached")
	}

	// A stale entry is served while upstream is down.
	f.err, f.result = nil, similarList(2)
	if _, err := c.GetSimilar(ctx, "Alpha", "", 10); err != nil {
		t.Fatal(err)
	}
	clock.now = start.Add(8 * 24 * time.Hour)
	f.err = sources.ErrRateLimited
	got, err = c.GetSimilar(ctx, "Alpha", "", 10)
	if err != nil || len(got) != 2 {
		t.Errorf("stale fallback = %v, %v", got, err)
	}
}

func TestGetSimilar_OverwritesEntry(t *testing.T) {
	f := &fakeFetcher{result: similarList(5)}
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &manualClock{now: start}
	c := newTestCache(t, f, clock)
	ctx := context.Background()

	if _, err := c.GetSimilar(ctx, "Alpha", "", 0); err != nil {
		t.Fatal(err)
	}
	f.result = []sources.SimilarArtist{{Name: "Zed", Match: 0.4}}
	clock.now = start.Add(8 * 24 * time.Hour)

	got, _ := c.GetSimilar(ctx, "Alpha", "", 0)
	if len(got) != 1 || got[0].Name != "Zed" {
		t.Errorf("entry should be replaced, got %+v", got)
	}
}

func TestGetSimilar_EmptyName(t *testing.T) {
	c := newTestCache(t, &fakeFetcher{}, nil)
	if _, err := c.GetSimilar(context.Background(), "  ", "", 5); err == nil {
		t.Error("empty name should fail")
	}
}

// blockingFetcher holds the upstream call until released and fails it when
// its context was canceled meanwhile.
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
	result  []sources.SimilarArtist
	calls   atomic.Int32
}

func (f *blockingFetcher) SimilarArtists(ctx context.Context, _, _ string, _ int) ([]sources.SimilarArtist, error) {
	if f.calls.Add(1) == 1 {
		close(f.started)
	}
	<-f.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.result, nil
}

func TestGetSimilar_SharedFetchSurvivesCanceledCaller(t *testing.T) {
	f := &blockingFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
		result:  similarList(5),
	}
	c := newTestCache(t, f, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := make(chan []Artist, 1)
	go func() {
		got, _ := c.GetSimilar(firstCtx, "Low", "", 10)
		first <- got
	}()
	<-f.started

	second := make(chan []Artist, 1)
	go func() {
		got, _ := c.GetSimilar(context.Background(), "Low", "", 10)
		second <- got
	}()

	cancelFirst()
	close(f.release)

	for name, ch := range map[string]chan []Artist{"first": first, "second": second} {
		select {
		case got := <-ch:
			if len(got) != 5 {
				t.Errorf("%s caller got %d artists, want 5", name, len(got))
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s caller did not return", name)
		}
	}
}
