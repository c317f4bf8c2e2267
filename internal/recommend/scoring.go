// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package recommend

import (
	"math"
	"strings"
	"time"

	"github.com/tkharbeche/musicseer/internal/artists"
)

// FinalScore combines the components with the fixed weights.
func FinalScore(s Scores) float64 {
	return s.Popularity*WeightPopularity +
		s.Similarity*WeightSimilarity +
		s.Diversity*WeightDiversity +
		s.Freshness*WeightFreshness
}

// PopularityComponent returns the stored popularity of rec, or
// DefaultPopularity when the record or its listener data is missing.
func PopularityComponent(rec *artists.Record) float64 {
	if rec == nil || rec.Popularity == nil {
		return DefaultPopularity
	}
	return clamp01(*rec.Popularity)
}

// SimilarityComponent is the mean match strength, capped at 1.
func SimilarityComponent(matchSum float64, occurrences int) float64 {
	if occurrences <= 0 {
		return 0
	}
	return clamp01(matchSum / float64(occurrences))
}

// GenreProfile counts genre tags across a set of artists.
type GenreProfile struct {
	counts map[string]int
	total  int
}

// NewGenreProfile builds a profile from the genre tags of recs.
func NewGenreProfile(recs []*artists.Record) GenreProfile {
	p := GenreProfile{counts: make(map[string]int)}
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		for _, g := range rec.Genres {
			key := normalizeGenre(g)
			if key == "" {
				continue
			}
			p.counts[key]++
			p.total++
		}
	}
	return p
}

// Total is the number of genre tags counted.
func (p GenreProfile) Total() int {
	return p.total
}

// Prevalent reports whether genre makes up more than PrevalenceThreshold of
// the counted tags.
func (p GenreProfile) Prevalent(genre string) bool {
	if p.total == 0 {
		return false
	}
	return float64(p.counts[normalizeGenre(genre)])/float64(p.total) > PrevalenceThreshold
}

// DiversityComponent is the fraction of the candidate's distinct genres that
// are not prevalent in profile. DefaultDiversity when either side has no
// genre data.
func DiversityComponent(genres []string, profile GenreProfile) float64 {
	if profile.Total() == 0 {
		return DefaultDiversity
	}
	seen := make(map[string]bool, len(genres))
	var distinct, fresh int
	for _, g := range genres {
		key := normalizeGenre(g)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		distinct++
		if !profile.Prevalent(key) {
			fresh++
		}
	}
	if distinct == 0 {
		return DefaultDiversity
	}
	return float64(fresh) / float64(distinct)
}

// FreshnessComponent decays linearly from 1 at a release this month to
// FreshnessFloor after FreshnessWindowMonths calendar months. Unknown
// release dates give DefaultFreshness; future dates count as brand new.
func FreshnessComponent(latest *time.Time, now time.Time) float64 {
	if latest == nil {
		return DefaultFreshness
	}
	months := monthsBetween(latest.UTC(), now.UTC())
	if months <= 0 {
		return 1
	}
	return math.Max(1-float64(months)/FreshnessWindowMonths, FreshnessFloor)
}

func monthsBetween(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
}

func normalizeGenre(g string) string {
	return strings.ToLower(strings.TrimSpace(g))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
