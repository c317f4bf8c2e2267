// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package recommend

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkharbeche/musicseer/internal/artists"
	"github.com/tkharbeche/musicseer/internal/imagery"
	"github.com/tkharbeche/musicseer/internal/library"
	"github.com/tkharbeche/musicseer/internal/similarity"
	"github.com/tkharbeche/musicseer/internal/sources"
	"github.com/tkharbeche/musicseer/internal/trending"
)

var engineNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type fakeLibrary struct {
	entries []library.Entry
	err     error
	calls   int
}

func (f *fakeLibrary) TopArtists(_ context.Context, _, _ string, limit int) ([]library.Entry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func (f *fakeLibrary) InLibrary(_ context.Context, _, _ string, names []string) (map[string]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	owned := make(map[string]bool, len(f.entries))
	for _, e := range f.entries {
		owned[artists.NormalizeName(e.ArtistName)] = true
	}
	out := make(map[string]bool)
	for _, n := range names {
		if key := artists.NormalizeName(n); owned[key] {
			out[key] = true
		}
	}
	return out, nil
}

type fakeSimilar struct {
	mu    sync.Mutex
	lists map[string][]similarity.Artist
	fail  map[string]bool
	calls []string
}

func (f *fakeSimilar) GetSimilar(_ context.Context, name, _ string, limit int) ([]similarity.Artist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if f.fail[name] {
		return nil, errors.New("similarity unavailable")
	}
	list := f.lists[name]
	if limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

type fakeEnricher struct {
	records map[string]*artists.Record
	fail    map[string]bool
	calls   []string
	delay   time.Duration
}

func (f *fakeEnricher) Ensure(_ context.Context, name, mbid string) (*artists.Record, error) {
	f.calls = append(f.calls, name)
	time.Sleep(f.delay)
	if f.fail[name] {
		return nil, errors.New("store unavailable")
	}
	if rec, ok := f.records[name]; ok {
		return rec, nil
	}
	return &artists.Record{ID: "id-" + name, Name: name, MBID: mbid}, nil
}

type fakeRecords struct {
	records map[string]*artists.Record
}

func (f *fakeRecords) FindMany(_ context.Context, names []string) (map[string]*artists.Record, error) {
	out := make(map[string]*artists.Record)
	for _, n := range names {
		if rec, ok := f.records[n]; ok {
			out[artists.NormalizeName(n)] = rec
		}
	}
	return out, nil
}

type fakeTrending struct {
	chart []trending.Artist
	err   error
}

func (f *fakeTrending) GetTrending(_ context.Context, limit int) ([]trending.Artist, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.chart) {
		return f.chart[:limit], nil
	}
	return f.chart, nil
}

type fixture struct {
	lib      *fakeLibrary
	similar  *fakeSimilar
	enricher *fakeEnricher
	records  *fakeRecords
	trending *fakeTrending
}

func ptr[T any](v T) *T {
	return &v
}

// newFixture builds a library of two seeds plus one known artist.
//
//	Seed A -> X 0.9, Y 0.5, Known C 0.8 (excluded)
//	Seed B -> X 0.7, Z 0.3
//
// Seed genres: rock x2, indie x1. X is rock+jazz released a year ago with
// popularity 0.5; Z is electronic with popularity 0.9 and no release date;
// Y has no enrichment data at all.
func newFixture() *fixture {
	return &fixture{
		lib: &fakeLibrary{entries: []library.Entry{
			{ArtistName: "Seed A", PlayCount: 100},
			{ArtistName: "Seed B", PlayCount: 50},
			{ArtistName: "Known C", PlayCount: 10},
		}},
		similar: &fakeSimilar{lists: map[string][]similarity.Artist{
			"Seed A": {
				{Name: "X", Match: 0.9},
				{Name: "Y", Match: 0.5},
				{Name: "known c", Match: 0.8},
			},
			"Seed B": {
				{Name: "X", Match: 0.7},
				{Name: "Z", Match: 0.3},
			},
		}},
		enricher: &fakeEnricher{records: map[string]*artists.Record{
			"X": {
				ID:            "id-x",
				Name:          "X",
				Popularity:    ptr(0.5),
				Genres:        []string{"rock", "jazz"},
				LatestRelease: ptr(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
			},
			"Z": {
				ID:         "id-z",
				Name:       "Z",
				Popularity: ptr(0.9),
				Genres:     []string{"electronic"},
			},
		}},
		records: &fakeRecords{records: map[string]*artists.Record{
			"Seed A": {Genres: []string{"rock", "indie"}},
			"Seed B": {Genres: []string{"Rock"}},
		}},
		trending: &fakeTrending{},
	}
}

func (f *fixture) engine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(Deps{
		Library:  f.lib,
		Similar:  f.similar,
		Enricher: f.enricher,
		Records:  f.records,
		Trending: f.trending,
	}, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	e.now = func() time.Time { return engineNow }
	return e
}

func names(items []Recommendation) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestRecommend_Personalized(t *testing.T) {
	f := newFixture()
	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1", Limit: 10})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	if got, want := names(resp.Items), []string{"Z", "X", "Y"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	wantScores := map[string]float64{
		// 0.9*0.4 + 0.3*0.3 + 1*0.2 + 0.5*0.1
		"Z": 0.70,
		// 0.5*0.4 + 0.8*0.3 + 0.5*0.2 + 0.8*0.1
		"X": 0.62,
		// 0.1*0.4 + 0.5*0.3 + 0.5*0.2 + 0.5*0.1
		"Y": 0.34,
	}
	for _, it := range resp.Items {
		if !approx(it.Score, wantScores[it.Name]) {
			t.Errorf("%s score = %v, want %v (components %+v)", it.Name, it.Score, wantScores[it.Name], it.Components)
		}
	}

	x := resp.Items[1]
	if x.Occurrences != 2 || !approx(x.MatchSum, 1.6) {
		t.Errorf("X evidence = %d occurrences, %v sum", x.Occurrences, x.MatchSum)
	}
	if !reflect.DeepEqual(x.SeedArtists, []string{"Seed A", "Seed B"}) {
		t.Errorf("X seeds = %v", x.SeedArtists)
	}
	if x.Reason != "Similar to Seed A, Seed B" {
		t.Errorf("X reason = %q", x.Reason)
	}
	if x.ArtistID != "id-x" {
		t.Errorf("X artist id = %q", x.ArtistID)
	}

	if resp.Metadata.Source != SourceScored || resp.Metadata.TotalCandidates != 3 {
		t.Errorf("metadata = %+v", resp.Metadata)
	}
	if !reflect.DeepEqual(resp.Metadata.Seeds, []string{"Seed A", "Seed B", "Known C"}) {
		t.Errorf("seeds = %v", resp.Metadata.Seeds)
	}
}

func TestRecommend_NeverRecommendsLibraryArtists(t *testing.T) {
	f := newFixture()
	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	for _, it := range resp.Items {
		if artists.NormalizeName(it.Name) == "known c" {
			t.Errorf("library artist %q recommended", it.Name)
		}
	}
	for _, name := range f.enricher.calls {
		if artists.NormalizeName(name) == "known c" {
			t.Error("library artist was enriched as a candidate")
		}
	}
}

func TestRecommend_ExcludesArtistsBeyondLibraryDepth(t *testing.T) {
	f := newFixture()
	entries := make([]library.Entry, 0, 61)
	for i := 0; i < 60; i++ {
		entries = append(entries, library.Entry{ArtistName: fmt.Sprintf("Artist %02d", i), PlayCount: int64(1000 - i)})
	}
	entries = append(entries, library.Entry{ArtistName: "Boards of Canada", PlayCount: 1})
	f.lib.entries = entries
	f.similar.lists = map[string][]similarity.Artist{
		"Artist 00": {
			{Name: "boards OF canada", Match: 0.95},
			{Name: "Slowdive", Match: 0.6},
		},
	}

	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if got, want := names(resp.Items), []string{"Slowdive"}; !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
	for _, name := range f.enricher.calls {
		if artists.NormalizeName(name) == "boards of canada" {
			t.Error("library artist was enriched as a candidate")
		}
	}
	if resp.Metadata.TotalCandidates != 1 {
		t.Errorf("total candidates = %d, want 1", resp.Metadata.TotalCandidates)
	}
}

func TestRecommend_DeadlineReturnsPartialRanking(t *testing.T) {
	f := newFixture()
	f.enricher.delay = 40 * time.Millisecond
	f.records.records["Z"] = &artists.Record{ID: "id-z", Name: "Z", Popularity: ptr(0.9)}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp, err := f.engine(t).Recommend(ctx, Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v, want a partial list", err)
	}
	if len(resp.Items) != 3 {
		t.Fatalf("items = %v, want all three candidates", names(resp.Items))
	}
	if len(f.enricher.calls) >= 3 {
		t.Errorf("enricher calls = %v, want enrichment cut short", f.enricher.calls)
	}
	for _, it := range resp.Items {
		if it.Name == "Z" && (it.ArtistID != "id-z" || !approx(it.Components.Popularity, 0.9)) {
			t.Errorf("Z should be scored from its cached record: %+v", it)
		}
	}
}

func TestRecommend_Limit(t *testing.T) {
	f := newFixture()
	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1", Limit: 2})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if got, want := names(resp.Items), []string{"Z", "X"}; !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func TestRecommend_HiddenGems(t *testing.T) {
	f := newFixture()
	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1", Limit: 2, Mode: ModeHiddenGems})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	// Pool of 10 keeps all three (every score > 0.2), re-ranked by match sum.
	if got, want := names(resp.Items), []string{"X", "Y"}; !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
	if resp.Metadata.Mode != "hidden_gems" {
		t.Errorf("mode = %q", resp.Metadata.Mode)
	}
}

func TestRecommend_HiddenGemsRelevanceFloor(t *testing.T) {
	f := newFixture()
	e := f.engine(t)
	e.config.HiddenGemsFloor = 0.5

	resp, err := e.Recommend(context.Background(), Request{UserID: "u1", Limit: 5, Mode: ModeHiddenGems})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if got, want := names(resp.Items), []string{"X", "Z"}; !reflect.DeepEqual(got, want) {
		t.Errorf("items = %v, want %v", got, want)
	}
}

func TestRecommend_EmptyLibraryReturnsTrending(t *testing.T) {
	f := newFixture()
	f.lib.entries = nil
	for i := 1; i <= 30; i++ {
		f.trending.chart = append(f.trending.chart, trending.Artist{
			Rank:     i,
			Name:     "T" + string(rune('A'+i%26)),
			ImageURL: "https://img.example/t.jpg",
			Genres:   []string{},
		})
	}

	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1", Limit: 20})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Metadata.Source != SourceTrending {
		t.Errorf("source = %s, want trending", resp.Metadata.Source)
	}
	if len(resp.Items) != 20 {
		t.Fatalf("items = %d, want 20", len(resp.Items))
	}
	for i, it := range resp.Items {
		want := f.trending.chart[i]
		if it.Name != want.Name || it.Rank != want.Rank || it.ImageURL != want.ImageURL {
			t.Errorf("items[%d] = %+v, want trending entry %+v", i, it, want)
		}
		if it.Score != 0 || it.Components != nil {
			t.Errorf("items[%d] was scored", i)
		}
	}
	if len(f.similar.calls) != 0 || len(f.enricher.calls) != 0 {
		t.Error("empty library triggered candidate generation")
	}
}

func TestRecommend_TrendingFailureDegradesToEmpty(t *testing.T) {
	f := newFixture()
	f.lib.entries = nil
	f.trending.err = errors.New("db down")

	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if resp.Items == nil || len(resp.Items) != 0 {
		t.Errorf("items = %v, want empty list", resp.Items)
	}
}

func TestRecommend_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"negative limit", Request{UserID: "u1", Limit: -1}},
		{"missing user", Request{UserID: "  "}},
		{"unknown mode", Request{UserID: "u1", Mode: Mode(9)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.engine(t).Recommend(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("Recommend() error = %v, want ErrInvalidRequest", err)
			}
			if f.lib.calls != 0 {
				t.Error("invalid request reached the library")
			}
		})
	}
}

func TestRecommend_DefaultAndMaxLimit(t *testing.T) {
	f := newFixture()
	var many []similarity.Artist
	for i := 0; i < 150; i++ {
		many = append(many, similarity.Artist{Name: "Cand " + string(rune('A'+i%26)) + string(rune('a'+i/26)), Match: 0.5})
	}
	f.similar.lists["Seed A"] = many
	e := f.engine(t)
	e.config.SimilarPerSeed = 200

	resp, err := e.Recommend(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != DefaultConfig().DefaultLimit {
		t.Errorf("default limit returned %d items", len(resp.Items))
	}

	resp, err = e.Recommend(context.Background(), Request{UserID: "u1", Limit: 1000})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Items) != DefaultConfig().MaxLimit {
		t.Errorf("capped limit returned %d items", len(resp.Items))
	}
}

func TestRecommend_SourceFailuresDegrade(t *testing.T) {
	f := newFixture()
	f.similar.fail = map[string]bool{"Seed A": true}
	f.enricher.fail = map[string]bool{"Z": true}

	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	// Only Seed B contributes: X 0.7 and Z 0.3. Z has no record.
	if got, want := names(resp.Items), []string{"X", "Z"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	z := resp.Items[1].Components
	if z.Popularity != DefaultPopularity || z.Diversity != DefaultDiversity || z.Freshness != DefaultFreshness {
		t.Errorf("Z components = %+v, want defaults", z)
	}
}

func TestRecommend_LibraryErrorFails(t *testing.T) {
	f := newFixture()
	f.lib.err = errors.New("db down")
	if _, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1"}); err == nil {
		t.Fatal("Recommend() error = nil, want library error")
	}
}

func TestRecommend_Deterministic(t *testing.T) {
	f := newFixture()
	e := f.engine(t)

	first, err := e.Recommend(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Recommend(context.Background(), Request{UserID: "u1"})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if !reflect.DeepEqual(first.Items, again.Items) {
			t.Fatalf("run %d differs:\n%+v\n%+v", i, first.Items, again.Items)
		}
	}
}

func TestRecommend_StableTies(t *testing.T) {
	f := newFixture()
	f.lib.entries = f.lib.entries[:1]
	f.similar.lists["Seed A"] = []similarity.Artist{
		{Name: "First", Match: 0.5},
		{Name: "Second", Match: 0.5},
		{Name: "Third", Match: 0.5},
	}

	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if got, want := names(resp.Items), []string{"First", "Second", "Third"}; !reflect.DeepEqual(got, want) {
		t.Errorf("tie order = %v, want insertion order %v", got, want)
	}
}

func TestRecommend_CandidateImageFallback(t *testing.T) {
	f := newFixture()
	f.lib.entries = f.lib.entries[:1]
	f.similar.lists["Seed A"] = []similarity.Artist{
		{Name: "Pictured", Match: 0.5, Images: []sources.Image{{Size: "large", URL: "https://lastfm.example/p.png"}}},
		{Name: "Placeholder", Match: 0.5, Images: []sources.Image{{Size: "large", URL: "https://lastfm.example/" + imagery.PlaceholderFingerprint + ".png"}}},
	}

	resp, err := f.engine(t).Recommend(context.Background(), Request{UserID: "u1"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	images := map[string]string{}
	for _, it := range resp.Items {
		images[it.Name] = it.ImageURL
	}
	if images["Pictured"] != "https://lastfm.example/p.png" {
		t.Errorf("Pictured image = %q", images["Pictured"])
	}
	if images["Placeholder"] != "" {
		t.Errorf("Placeholder image = %q, want empty", images["Placeholder"])
	}
}
