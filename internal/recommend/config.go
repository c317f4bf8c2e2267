// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package recommend

import (
	"fmt"
)

// Scoring weights. They sum to 1.0.
const (
	WeightPopularity = 0.4
	WeightSimilarity = 0.3
	WeightDiversity  = 0.2
	WeightFreshness  = 0.1
)

// Component defaults for missing data.
const (
	DefaultPopularity = 0.1
	DefaultDiversity  = 0.5
	DefaultFreshness  = 0.5
)

// Freshness decays linearly to FreshnessFloor over FreshnessWindowMonths.
const (
	FreshnessWindowMonths = 60
	FreshnessFloor        = 0.1
)

// PrevalenceThreshold is the share of seed genre tags above which a genre
// counts as already prevalent in the library.
const PrevalenceThreshold = 0.10

// Config holds the tunable request limits of the engine.
type Config struct {
	// DefaultLimit is used when a request passes limit 0.
	DefaultLimit int `json:"default_limit"`

	// MaxLimit caps any request.
	MaxLimit int `json:"max_limit"`

	// LibraryDepth is how many top played artists are loaded. Seeds come
	// from the top of this list; exclusion covers the whole library.
	LibraryDepth int `json:"library_depth"`

	// SeedCount is how many of those artists seed candidate generation.
	SeedCount int `json:"seed_count"`

	// SimilarPerSeed is how many similar artists each seed contributes.
	SimilarPerSeed int `json:"similar_per_seed"`

	// HiddenGemsPoolFactor multiplies the limit to size the hidden gems pool.
	HiddenGemsPoolFactor int `json:"hidden_gems_pool_factor"`

	// HiddenGemsFloor is the minimum final score for the hidden gems pool.
	HiddenGemsFloor float64 `json:"hidden_gems_floor"`

	// ReasonSeeds is how many seeds are named in a reason string.
	ReasonSeeds int `json:"reason_seeds"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		DefaultLimit:         20,
		MaxLimit:             100,
		LibraryDepth:         50,
		SeedCount:            10,
		SimilarPerSeed:       20,
		HiddenGemsPoolFactor: 5,
		HiddenGemsFloor:      0.2,
		ReasonSeeds:          3,
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.DefaultLimit < 1 {
		return fmt.Errorf("default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("max_limit (%d) must be >= default_limit (%d)", c.MaxLimit, c.DefaultLimit)
	}
	if c.SeedCount < 1 {
		return fmt.Errorf("seed_count must be positive, got %d", c.SeedCount)
	}
	if c.LibraryDepth < c.SeedCount {
		return fmt.Errorf("library_depth (%d) must be >= seed_count (%d)", c.LibraryDepth, c.SeedCount)
	}
	if c.SimilarPerSeed < 1 {
		return fmt.Errorf("similar_per_seed must be positive, got %d", c.SimilarPerSeed)
	}
	if c.HiddenGemsPoolFactor < 1 {
		return fmt.Errorf("hidden_gems_pool_factor must be positive, got %d", c.HiddenGemsPoolFactor)
	}
	if c.HiddenGemsFloor < 0 || c.HiddenGemsFloor > 1 {
		return fmt.Errorf("hidden_gems_floor must be in [0, 1], got %f", c.HiddenGemsFloor)
	}
	if c.ReasonSeeds < 1 {
		return fmt.Errorf("reason_seeds must be positive, got %d", c.ReasonSeeds)
	}
	return nil
}
