// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tkharbeche/musicseer/internal/artists"
	"github.com/tkharbeche/musicseer/internal/imagery"
	"github.com/tkharbeche/musicseer/internal/library"
	"github.com/tkharbeche/musicseer/internal/logging"
	"github.com/tkharbeche/musicseer/internal/metrics"
	"github.com/tkharbeche/musicseer/internal/similarity"
	"github.com/tkharbeche/musicseer/internal/sources"
	"github.com/tkharbeche/musicseer/internal/trending"
)

// ErrInvalidRequest is returned for requests rejected before any I/O.
var ErrInvalidRequest = errors.New("invalid recommendation request")

// maxSimilarFetches bounds concurrent similarity lookups per request.
const maxSimilarFetches = 4

// Part of the request deadline held back from candidate enrichment so the
// candidates left over can still be scored from cached records.
const (
	scoringReserveShare = 0.2
	maxScoringReserve   = 5 * time.Second
)

// cachedLookupTimeout bounds local store reads made after the request
// deadline has passed.
const cachedLookupTimeout = 2 * time.Second

// Library loads a listener's library.
type Library interface {
	TopArtists(ctx context.Context, userID, serverID string, limit int) ([]library.Entry, error)
	InLibrary(ctx context.Context, userID, serverID string, names []string) (map[string]bool, error)
}

// SimilarArtists returns the cached similarity list of an artist.
type SimilarArtists interface {
	GetSimilar(ctx context.Context, name, mbid string, limit int) ([]similarity.Artist, error)
}

// Enricher gets or creates the enrichment record of a candidate.
type Enricher interface {
	Ensure(ctx context.Context, name, mbid string) (*artists.Record, error)
}

// RecordFinder reads enrichment records by name without creating them.
type RecordFinder interface {
	FindMany(ctx context.Context, names []string) (map[string]*artists.Record, error)
}

// Trending serves the live trending chart.
type Trending interface {
	GetTrending(ctx context.Context, limit int) ([]trending.Artist, error)
}

// Deps are the collaborators of the engine.
type Deps struct {
	Library  Library
	Similar  SimilarArtists
	Enricher Enricher
	Records  RecordFinder
	Trending Trending
}

// Engine produces ranked recommendations. It is safe for concurrent use.
type Engine struct {
	deps   Deps
	config *Config
	logger zerolog.Logger
	now    func() time.Time
}

// NewEngine creates an engine. A nil cfg uses DefaultConfig.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(deps Deps, cfg *Config, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Engine{
		deps:   deps,
		config: cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
		now:    time.Now,
	}, nil
}

// candidate accumulates the similarity evidence for one artist.
type candidate struct {
	name        string
	mbid        string
	images      []sources.Image
	matchSum    float64
	occurrences int
	seeds       []string
}

// Recommend ranks candidates for req. Negative limits and a missing user id
// return ErrInvalidRequest. Source failures degrade the result instead of
// failing it, and so does running out of time: candidates not enriched by
// then are scored from whatever is already cached.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	req, err := e.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		metrics.RecommendationDuration.WithLabelValues(req.Mode.String()).Observe(time.Since(start).Seconds())
	}()

	requestID := logging.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	meta := ResponseMetadata{
		RequestID: requestID,
		UserID:    req.UserID,
		ServerID:  req.ServerID,
		Mode:      req.Mode.String(),
		Source:    SourceScored,
	}
	logger := e.logger.With().
		Str("request_id", meta.RequestID).
		Str("user_id", req.UserID).
		Str("mode", meta.Mode).
		Logger()

	lib, err := e.deps.Library.TopArtists(ctx, req.UserID, req.ServerID, e.config.LibraryDepth)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}

	if len(lib) == 0 {
		logger.Debug().Msg("empty library, returning trending")
		meta.Source = SourceTrending
		items := e.trendingFallback(ctx, req.Limit, logger)
		return e.finish(items, meta, start), nil
	}

	seeds := lib
	if len(seeds) > e.config.SeedCount {
		seeds = seeds[:e.config.SeedCount]
	}
	for _, s := range seeds {
		meta.Seeds = append(meta.Seeds, s.ArtistName)
	}

	candidates := e.collectCandidates(ctx, seeds, libraryKeys(lib), logger)
	candidates, err = e.excludeLibrary(ctx, req, candidates)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	meta.TotalCandidates = len(candidates)
	if len(candidates) == 0 {
		logger.Debug().Int("seeds", len(seeds)).Msg("no candidates found")
		return e.finish([]Recommendation{}, meta, start), nil
	}

	profile := e.seedGenreProfile(ctx, seeds, logger)

	enrichCtx, cancelEnrich := enrichmentContext(ctx)
	defer cancelEnrich()

	scored := make([]Recommendation, 0, len(candidates))
	var pending []*candidate
	for _, c := range candidates {
		if enrichCtx.Err() != nil {
			pending = append(pending, c)
			continue
		}
		rec, err := e.deps.Enricher.Ensure(enrichCtx, c.name, c.mbid)
		if err != nil {
			logger.Warn().Err(err).Str("artist", c.name).Msg("failed to enrich candidate")
			rec = nil
		}
		scored = append(scored, e.score(c, rec, profile))
	}
	if len(pending) > 0 {
		logger.Warn().
			Int("enriched", len(scored)).
			Int("unenriched", len(pending)).
			Msg("enrichment budget exhausted, scoring remaining candidates from cache")
		cached := e.cachedRecords(ctx, pending, logger)
		for _, c := range pending {
			scored = append(scored, e.score(c, cached[artists.NormalizeName(c.name)], profile))
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	var items []Recommendation
	if req.Mode == ModeHiddenGems {
		items = e.hiddenGems(scored, req.Limit)
	} else {
		items = truncate(scored, req.Limit)
	}

	logger.Debug().
		Int("seeds", len(seeds)).
		Int("candidates", len(candidates)).
		Int("returned", len(items)).
		Msg("recommendation complete")
	return e.finish(items, meta, start), nil
}

//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) (Request, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return req, fmt.Errorf("%w: user id is required", ErrInvalidRequest)
	}
	if req.Limit < 0 {
		return req, fmt.Errorf("%w: limit must not be negative", ErrInvalidRequest)
	}
	if req.Mode != ModePersonalized && req.Mode != ModeHiddenGems {
		return req, fmt.Errorf("%w: unknown mode %d", ErrInvalidRequest, req.Mode)
	}
	if req.Limit == 0 {
		req.Limit = e.config.DefaultLimit
	}
	if req.Limit > e.config.MaxLimit {
		req.Limit = e.config.MaxLimit
	}
	return req, nil
}

func (e *Engine) finish(items []Recommendation, meta ResponseMetadata, start time.Time) *Response {
	meta.LatencyMS = time.Since(start).Milliseconds()
	meta.Timestamp = e.now().UTC()
	return &Response{Items: items, Metadata: meta}
}

// trendingFallback returns the trending chart in rank order, unscored.
func (e *Engine) trendingFallback(ctx context.Context, limit int, logger zerolog.Logger) []Recommendation {
	chart, err := e.deps.Trending.GetTrending(ctx, limit)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load trending fallback")
		return []Recommendation{}
	}
	out := make([]Recommendation, 0, len(chart))
	for _, a := range chart {
		out = append(out, Recommendation{
			Name:          a.Name,
			MBID:          a.MBID,
			ArtistID:      a.ID,
			ImageURL:      a.ImageURL,
			Genres:        a.Genres,
			Listeners:     a.Listeners,
			LatestRelease: a.LatestRelease,
			Rank:          a.Rank,
		})
	}
	return out
}

// collectCandidates fetches the similarity list of every seed and folds them
// in seed order, skipping artists already in the library.
func (e *Engine) collectCandidates(ctx context.Context, seeds []library.Entry, exclude map[string]bool, logger zerolog.Logger) []*candidate {
	lists := make([][]similarity.Artist, len(seeds))

	var g errgroup.Group
	g.SetLimit(maxSimilarFetches)
	for i, seed := range seeds {
		g.Go(func() error {
			similar, err := e.deps.Similar.GetSimilar(ctx, seed.ArtistName, seed.MBID, e.config.SimilarPerSeed)
			if err != nil {
				logger.Warn().Err(err).Str("seed", seed.ArtistName).Msg("failed to load similar artists")
				return nil
			}
			lists[i] = similar
			return nil
		})
	}
	_ = g.Wait()

	byKey := make(map[string]*candidate)
	var ordered []*candidate
	for i, seed := range seeds {
		for _, s := range lists[i] {
			key := artists.NormalizeName(s.Name)
			if key == "" || exclude[key] {
				continue
			}
			c, ok := byKey[key]
			if !ok {
				c = &candidate{name: s.Name, mbid: s.MBID, images: s.Images}
				byKey[key] = c
				ordered = append(ordered, c)
			}
			if c.mbid == "" {
				c.mbid = s.MBID
			}
			c.occurrences++
			c.matchSum += s.Match
			c.seeds = append(c.seeds, seed.ArtistName)
		}
	}
	return ordered
}

// seedGenreProfile counts the genre tags of the seeds' cached records.
// Seeds that were never enriched contribute nothing.
func (e *Engine) seedGenreProfile(ctx context.Context, seeds []library.Entry, logger zerolog.Logger) GenreProfile {
	names := make([]string, len(seeds))
	for i, s := range seeds {
		names[i] = s.ArtistName
	}
	lookupCtx, cancel := lookupContext(ctx)
	defer cancel()
	found, err := e.deps.Records.FindMany(lookupCtx, names)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load seed genres")
		return NewGenreProfile(nil)
	}
	recs := make([]*artists.Record, 0, len(found))
	for _, name := range names {
		if rec := found[artists.NormalizeName(name)]; rec != nil {
			recs = append(recs, rec)
		}
	}
	return NewGenreProfile(recs)
}

// excludeLibrary drops candidates found anywhere in the user's library, not
// only among the most played artists loaded as seeds.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) excludeLibrary(ctx context.Context, req Request, candidates []*candidate) ([]*candidate, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}

	lookupCtx, cancel := lookupContext(ctx)
	defer cancel()
	owned, err := e.deps.Library.InLibrary(lookupCtx, req.UserID, req.ServerID, names)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return candidates, nil
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if !owned[artists.NormalizeName(c.name)] {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// cachedRecords reads the stored records of candidates without enriching them.
func (e *Engine) cachedRecords(ctx context.Context, candidates []*candidate, logger zerolog.Logger) map[string]*artists.Record {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	lookupCtx, cancel := lookupContext(ctx)
	defer cancel()
	found, err := e.deps.Records.FindMany(lookupCtx, names)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load cached candidate records")
		return nil
	}
	return found
}

// enrichmentContext ends candidate enrichment ahead of the request deadline.
func enrichmentContext(ctx context.Context) (context.Context, context.CancelFunc) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return context.WithCancel(ctx)
	}
	reserve := time.Duration(float64(time.Until(deadline)) * scoringReserveShare)
	reserve = max(min(reserve, maxScoringReserve), 0)
	return context.WithDeadline(ctx, deadline.Add(-reserve))
}

// lookupContext returns ctx while it is live, else a short detached context
// for reads against the local stores.
func lookupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() == nil {
		return ctx, func() {}
	}
	return context.WithTimeout(context.WithoutCancel(ctx), cachedLookupTimeout)
}

func (e *Engine) score(c *candidate, rec *artists.Record, profile GenreProfile) Recommendation {
	var genres []string
	var latest *time.Time
	if rec != nil {
		genres = rec.Genres
		latest = rec.LatestRelease
	}

	components := Scores{
		Popularity: PopularityComponent(rec),
		Similarity: SimilarityComponent(c.matchSum, c.occurrences),
		Diversity:  DefaultDiversity,
		Freshness:  FreshnessComponent(latest, e.now()),
	}
	if len(genres) > 0 {
		components.Diversity = DiversityComponent(genres, profile)
	}

	out := Recommendation{
		Name:          c.name,
		MBID:          c.mbid,
		Genres:        []string{},
		LatestRelease: latest,
		Score:         FinalScore(components),
		Components:    &components,
		MatchSum:      c.matchSum,
		Occurrences:   c.occurrences,
		SeedArtists:   c.seeds,
		Reason:        e.reason(c.seeds),
	}
	if rec != nil {
		out.ArtistID = rec.ID
		out.ImageURL = rec.ImageURL
		out.Listeners = rec.Listeners
		if len(rec.Genres) > 0 {
			out.Genres = rec.Genres
		}
		if out.MBID == "" {
			out.MBID = rec.MBID
		}
	}
	if out.ImageURL == "" {
		if img := sources.LargestImage(c.images); img != "" && !imagery.IsPlaceholder(img) {
			out.ImageURL = img
		}
	}
	return out
}

func (e *Engine) reason(seeds []string) string {
	if len(seeds) > e.config.ReasonSeeds {
		seeds = seeds[:e.config.ReasonSeeds]
	}
	return "Similar to " + strings.Join(seeds, ", ")
}

// hiddenGems keeps the top pool of scored candidates above the relevance
// floor and re-ranks them by summed match strength.
func (e *Engine) hiddenGems(scored []Recommendation, limit int) []Recommendation {
	pool := truncate(scored, limit*e.config.HiddenGemsPoolFactor)
	gems := make([]Recommendation, 0, len(pool))
	for _, r := range pool {
		if r.Score > e.config.HiddenGemsFloor {
			gems = append(gems, r)
		}
	}
	sort.SliceStable(gems, func(i, j int) bool {
		return gems[i].MatchSum > gems[j].MatchSum
	})
	return truncate(gems, limit)
}

func libraryKeys(lib []library.Entry) map[string]bool {
	keys := make(map[string]bool, len(lib))
	for _, entry := range lib {
		keys[artists.NormalizeName(entry.ArtistName)] = true
	}
	return keys
}

func truncate(items []Recommendation, limit int) []Recommendation {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
