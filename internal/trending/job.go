// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package trending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tkharbeche/musicseer/internal/artists"
	"github.com/tkharbeche/musicseer/internal/metrics"
	"github.com/tkharbeche/musicseer/internal/sources"
)

// DefaultChartType is the chart synced when none is configured.
const DefaultChartType = "global"

// DefaultChartSize is the number of chart entries pulled per run.
const DefaultChartSize = 100

var (
	// ErrAlreadyRunning is returned by Run while another run is in flight.
	ErrAlreadyRunning = errors.New("trending sync already running")

	// ErrInvalidLimit is returned for negative read limits.
	ErrInvalidLimit = errors.New("limit must not be negative")
)

// State is the lifecycle state of a sync run.
type State string

const (
	StateIdle           State = "idle"
	StateRunning        State = "running"
	StateSuccess        State = "success"
	StatePartialFailure State = "partial_failure"
	StateAborted        State = "aborted"
	StateFailed         State = "failed"
)

// ChartSource supplies the ranked chart.
type ChartSource interface {
	ChartTopArtists(ctx context.Context, chartType string, limit int) ([]sources.ChartArtist, error)
}

// Refresher re-enriches one chart entry.
type Refresher interface {
	Refresh(ctx context.Context, entry sources.ChartArtist) (*artists.Record, error)
}

// Report summarizes one sync run.
type Report struct {
	RunID      string    `json:"run_id"`
	ChartType  string    `json:"chart_type"`
	State      State     `json:"state"`
	Fetched    int       `json:"fetched"`
	Placed     int       `json:"placed"`
	Enriched   int       `json:"enriched"`
	Failed     int       `json:"failed"`
	Version    int64     `json:"version,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Status is a point-in-time view of the job.
type Status struct {
	Running bool    `json:"running"`
	Current *Report `json:"current,omitempty"`
	Last    *Report `json:"last,omitempty"`
}

// Job pulls the chart, enriches each entry in rank order and writes the
// ranking as a new snapshot.
type Job struct {
	chart     ChartSource
	refresher Refresher
	store     *Store
	chartType string
	size      int
	logger    zerolog.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
	current *Report
	last    *Report
}

// NewJob creates a sync job for chartType pulling size entries.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewJob(chart ChartSource, refresher Refresher, store *Store, chartType string, size int, logger zerolog.Logger) *Job {
	if chartType == "" {
		chartType = DefaultChartType
	}
	if size <= 0 {
		size = DefaultChartSize
	}
	return &Job{
		chart:     chart,
		refresher: refresher,
		store:     store,
		chartType: chartType,
		size:      size,
		logger:    logger.With().Str("component", "trending-sync").Str("chart_type", chartType).Logger(),
		now:       time.Now,
	}
}

// ChartType returns the chart this job maintains.
func (j *Job) ChartType() string {
	return j.chartType
}

// Running reports whether a run is in flight.
func (j *Job) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// Status returns the current and last run reports.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := Status{Running: j.running}
	if j.current != nil {
		c := *j.current
		st.Current = &c
	}
	if j.last != nil {
		l := *j.last
		st.Last = &l
	}
	return st
}

// Run executes one sync. A concurrent call returns ErrAlreadyRunning without
// doing any work. An empty chart aborts the run and keeps the live snapshot.
// Entries whose enrichment fails are still placed at their rank.
func (j *Job) Run(ctx context.Context) (Report, error) {
	report, err := j.begin()
	if err != nil {
		return Report{}, err
	}

	runErr := j.execute(ctx, report)
	report.FinishedAt = j.now().UTC()
	if runErr != nil {
		report.State = StateFailed
		report.Error = runErr.Error()
	}
	j.finish(report)

	metrics.RecordTrendingSync(string(report.State), report.FinishedAt.Sub(report.StartedAt), report.Placed)
	return *report, runErr
}

func (j *Job) begin() (*Report, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil, ErrAlreadyRunning
	}
	j.running = true
	j.current = &Report{
		RunID:     uuid.New().String(),
		ChartType: j.chartType,
		State:     StateRunning,
		StartedAt: j.now().UTC(),
	}
	return j.current, nil
}

func (j *Job) finish(report *Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.running = false
	j.current = nil
	done := *report
	j.last = &done
}

// update mutates the in-flight report under the lock so Status sees
// consistent progress.
func (j *Job) update(fn func()) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn()
}

func (j *Job) execute(ctx context.Context, report *Report) error {
	logger := j.logger.With().Str("run_id", report.RunID).Logger()
	logger.Info().Int("size", j.size).Msg("Trending sync started")

	chart, err := j.chart.ChartTopArtists(ctx, j.chartType, j.size)
	if err != nil {
		return fmt.Errorf("failed to fetch chart: %w", err)
	}
	j.update(func() { report.Fetched = len(chart) })

	if len(chart) == 0 {
		logger.Warn().Msg("Chart returned no entries, keeping existing trending snapshot")
		j.update(func() { report.State = StateAborted })
		return nil
	}

	entries := make([]Entry, 0, len(chart))
	for i, item := range chart {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("trending sync canceled at rank %d: %w", i+1, err)
		}

		entry := Entry{Rank: i + 1, Name: item.Name, MBID: item.MBID}
		rec, err := j.refresher.Refresh(ctx, item)
		if rec != nil {
			entry.ArtistID = rec.ID
			if entry.MBID == "" {
				entry.MBID = rec.MBID
			}
		}
		if err != nil {
			logger.Error().Err(err).Str("artist", item.Name).Int("rank", i+1).Msg("Failed to enrich trending artist")
			j.update(func() { report.Failed++ })
		} else {
			j.update(func() { report.Enriched++ })
		}
		entries = append(entries, entry)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("trending sync canceled before write: %w", err)
	}
	version, err := j.store.WriteSnapshot(ctx, j.chartType, entries)
	if err != nil {
		return fmt.Errorf("failed to write trending snapshot: %w", err)
	}

	j.update(func() {
		report.Placed = len(entries)
		report.Version = version
		if report.Failed > 0 {
			report.State = StatePartialFailure
		} else {
			report.State = StateSuccess
		}
	})

	logger.Info().
		Int("placed", len(entries)).
		Int("failed", report.Failed).
		Int64("version", version).
		Msg("Trending sync completed")
	return nil
}
