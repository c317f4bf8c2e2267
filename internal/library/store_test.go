// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package library

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/tkharbeche/musicseer/internal/testinfra"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := &Store{db: testinfra.NewDuckDB(t), now: func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }}
	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	return s
}

func TestTopArtists_OrderAndScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceSnapshot(ctx, "u1", "srv-a", []Entry{
		{ArtistName: "Radiohead", PlayCount: 50},
		{ArtistName: "Boards of Canada", PlayCount: 80},
		{ArtistName: "Aphex Twin", PlayCount: 50},
	}); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}
	if _, err := s.ReplaceSnapshot(ctx, "u1", "srv-b", []Entry{
		{ArtistName: "radiohead", PlayCount: 40},
	}); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}
	if _, err := s.ReplaceSnapshot(ctx, "u2", "srv-a", []Entry{{ArtistName: "Other", PlayCount: 999}}); err != nil {
		t.Fatal(err)
	}

	all, err := s.TopArtists(ctx, "u1", "", 50)
	if err != nil {
		t.Fatalf("TopArtists() error = %v", err)
	}
	want := []struct {
		name  string
		plays int64
	}{{"Radiohead", 90}, {"Boards of Canada", 80}, {"Aphex Twin", 50}}
	if len(all) != len(want) {
		t.Fatalf("TopArtists() = %+v", all)
	}
	for i, w := range want {
		if all[i].PlayCount != w.plays {
			t.Errorf("[%d] = %+v, want %s with %d plays", i, all[i], w.name, w.plays)
		}
	}

	scoped, err := s.TopArtists(ctx, "u1", "srv-a", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(scoped) != 2 || scoped[0].ArtistName != "Boards of Canada" || scoped[1].ArtistName != "Aphex Twin" {
		t.Errorf("scoped = %+v (tie broken by name)", scoped)
	}

	empty, err := s.TopArtists(ctx, "nobody", "", 10)
	if err != nil || len(empty) != 0 {
		t.Errorf("unknown user = %+v, %v", empty, err)
	}
}

func TestReplaceSnapshot_ReplacesAndMerges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ReplaceSnapshot(ctx, "u1", "srv", []Entry{{ArtistName: "Old", PlayCount: 1}}); err != nil {
		t.Fatal(err)
	}
	n, err := s.ReplaceSnapshot(ctx, "u1", "srv", []Entry{
		{ArtistName: "Sigur Rós", PlayCount: 3},
		{ArtistName: "  sigur   RÓS ", PlayCount: 4, MBID: "f6f2326f-6b25-4170-b89d-e235b25508e8"},
		{ArtistName: "   ", PlayCount: 100},
	})
	if err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}
	if n != 1 {
		t.Errorf("stored = %d, want 1", n)
	}

	got, _ := s.TopArtists(ctx, "u1", "srv", 0)
	if len(got) != 1 || got[0].PlayCount != 7 || got[0].MBID == "" {
		t.Errorf("TopArtists() = %+v", got)
	}
}

func TestInLibrary_CoversWholeLibrary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := make([]Entry, 0, 61)
	for i := 0; i < 60; i++ {
		entries = append(entries, Entry{ArtistName: fmt.Sprintf("Artist %02d", i), PlayCount: int64(1000 - i)})
	}
	entries = append(entries, Entry{ArtistName: "Boards of Canada", PlayCount: 1})
	if _, err := s.ReplaceSnapshot(ctx, "u1", "srv-a", entries); err != nil {
		t.Fatalf("ReplaceSnapshot() error = %v", err)
	}
	if _, err := s.ReplaceSnapshot(ctx, "u1", "srv-b", []Entry{{ArtistName: "Low", PlayCount: 5}}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		serverID string
		want     map[string]bool
	}{
		{"all servers", "", map[string]bool{"boards of canada": true, "low": true}},
		{"one server", "srv-a", map[string]bool{"boards of canada": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.InLibrary(ctx, "u1", tt.serverID, []string{"boards OF canada", "Low", "Slowdive", ""})
			if err != nil {
				t.Fatalf("InLibrary() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InLibrary() = %v, want %v", got, tt.want)
			}
		})
	}

	none, err := s.InLibrary(ctx, "u1", "", nil)
	if err != nil || len(none) != 0 {
		t.Errorf("InLibrary(nil) = %v, %v", none, err)
	}
}
