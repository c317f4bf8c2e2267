// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tkharbeche/musicseer/internal/trending"
)

const (
	defaultSyncInterval = 6 * time.Hour
	defaultRunTimeout   = 2 * time.Hour
)

// SyncJob is the trending sync job.
type SyncJob interface {
	Run(ctx context.Context) (trending.Report, error)
	Running() bool
	ChartType() string
}

// SnapshotChecker reports whether a chart has a live snapshot.
type SnapshotChecker interface {
	IsEmpty(ctx context.Context, chartType string) (bool, error)
}

// TrendingSyncConfig configures the sync scheduler.
type TrendingSyncConfig struct {
	// Interval between scheduled runs.
	Interval time.Duration

	// BootstrapOnStartup runs the job once at startup when the chart has
	// no snapshot yet.
	BootstrapOnStartup bool

	// RunTimeout bounds a single run.
	RunTimeout time.Duration
}

// TrendingSyncService schedules the trending sync job: on a fixed interval,
// on manual triggers, and once at startup when the snapshot is empty.
type TrendingSyncService struct {
	job          SyncJob
	snapshots    SnapshotChecker
	config       TrendingSyncConfig
	logger       zerolog.Logger
	trigger      chan struct{}
	bootstrapped atomic.Bool
	name         string
}

// NewTrendingSyncService creates the scheduler.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrendingSyncService(job SyncJob, snapshots SnapshotChecker, cfg TrendingSyncConfig, logger zerolog.Logger) *TrendingSyncService {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSyncInterval
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	return &TrendingSyncService{
		job:       job,
		snapshots: snapshots,
		config:    cfg,
		logger:    logger.With().Str("service", "trending-sync").Logger(),
		trigger:   make(chan struct{}, 1),
		name:      "trending-sync-service",
	}
}

// Trigger queues a manual run. It returns trending.ErrAlreadyRunning when a
// run is in flight or already queued.
func (s *TrendingSyncService) Trigger() error {
	if s.job.Running() {
		return trending.ErrAlreadyRunning
	}
	select {
	case s.trigger <- struct{}{}:
		return nil
	default:
		return trending.ErrAlreadyRunning
	}
}

// Serve implements suture.Service. Run failures are logged and never end
// the service; the next tick is the retry.
func (s *TrendingSyncService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.config.Interval).
		Bool("bootstrap_on_startup", s.config.BootstrapOnStartup).
		Msg("trending sync service starting")

	if s.config.BootstrapOnStartup && s.bootstrapped.CompareAndSwap(false, true) {
		s.bootstrap(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("trending sync service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.logger.Debug().Msg("scheduled trending sync triggered")
			s.run(ctx, "schedule")

		case <-s.trigger:
			s.logger.Info().Msg("manual trending sync triggered")
			s.run(ctx, "manual")
		}
	}
}

func (s *TrendingSyncService) bootstrap(ctx context.Context) {
	empty, err := s.snapshots.IsEmpty(ctx, s.job.ChartType())
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to check trending snapshot, skipping bootstrap")
		return
	}
	if !empty {
		return
	}
	s.logger.Info().Msg("trending snapshot is empty, running bootstrap sync")
	s.run(ctx, "bootstrap")
}

func (s *TrendingSyncService) run(ctx context.Context, cause string) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	report, err := s.job.Run(runCtx)
	switch {
	case errors.Is(err, trending.ErrAlreadyRunning):
		s.logger.Debug().Str("cause", cause).Msg("trending sync already running, skipping")
	case err != nil:
		s.logger.Warn().Err(err).Str("cause", cause).Str("run_id", report.RunID).Msg("trending sync failed")
	default:
		s.logger.Info().
			Str("cause", cause).
			Str("run_id", report.RunID).
			Str("state", string(report.State)).
			Int("placed", report.Placed).
			Int("failed", report.Failed).
			Msg("trending sync finished")
	}
}

// String names the service in supervisor events.
func (s *TrendingSyncService) String() string {
	return s.name
}
