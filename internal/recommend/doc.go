// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package recommend ranks artists a listener has not played yet.
//
// # Pipeline
//
// A request walks these steps:
//
//  1. Load the listener's top played artists (optionally for one server).
//     An empty library returns the trending chart unchanged.
//  2. Use the top seeds to pull "similar artist" lists from the similarity
//     cache and fold them into candidates, skipping anything already in
//     the library.
//  3. Get or create the enrichment record of every candidate.
//  4. Score each candidate on popularity, similarity, genre diversity and
//     release freshness, combine with the fixed weights and sort.
//
// # Scoring
//
// Every component lies in [0, 1] and the weights sum to 1, so the final
// score does too:
//
//	final = 0.4*popularity + 0.3*similarity + 0.2*diversity + 0.1*freshness
//
// Missing data maps to fixed defaults (popularity 0.1, diversity 0.5,
// freshness 0.5), so identical inputs always produce identical rankings.
//
// # Hidden gems
//
// ModeHiddenGems over-fetches a pool of five times the limit, keeps the
// candidates above a relevance floor and re-ranks them by summed match
// strength, which favors artists that many seeds point at over artists
// that are simply popular.
//
// # Usage
//
//	engine := recommend.NewEngine(deps, recommend.DefaultConfig(), logger)
//	resp, err := engine.Recommend(ctx, recommend.Request{
//	    UserID: "u-1",
//	    Limit:  20,
//	})
package recommend
