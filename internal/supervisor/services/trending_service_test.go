// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tkharbeche/musicseer/internal/trending"
)

var _ suture.Service = (*TrendingSyncService)(nil)

type fakeSyncJob struct {
	runs    atomic.Int32
	running atomic.Bool
	ran     chan struct{}
	err     error
}

func newFakeSyncJob() *fakeSyncJob {
	return &fakeSyncJob{ran: make(chan struct{}, 16)}
}

func (f *fakeSyncJob) Run(context.Context) (trending.Report, error) {
	f.runs.Add(1)
	f.ran <- struct{}{}
	if f.err != nil {
		return trending.Report{State: trending.StateFailed}, f.err
	}
	return trending.Report{RunID: "run", State: trending.StateSuccess, Placed: 1}, nil
}

func (f *fakeSyncJob) Running() bool     { return f.running.Load() }
func (f *fakeSyncJob) ChartType() string { return "global" }

type fakeSnapshots struct {
	empty bool
	err   error
}

func (f *fakeSnapshots) IsEmpty(context.Context, string) (bool, error) {
	return f.empty, f.err
}

func waitRun(t *testing.T, job *fakeSyncJob) {
	t.Helper()
	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func serve(t *testing.T, svc *TrendingSyncService) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	t.Cleanup(cancel)
	return cancel, errCh
}

func TestTrendingSyncService_BootstrapWhenEmpty(t *testing.T) {
	job := newFakeSyncJob()
	svc := NewTrendingSyncService(job, &fakeSnapshots{empty: true},
		TrendingSyncConfig{Interval: time.Hour, BootstrapOnStartup: true}, zerolog.Nop())

	cancel, errCh := serve(t, svc)
	waitRun(t, job)
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if got := job.runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestTrendingSyncService_BootstrapOnlyOnce(t *testing.T) {
	job := newFakeSyncJob()
	svc := NewTrendingSyncService(job, &fakeSnapshots{empty: true},
		TrendingSyncConfig{Interval: time.Hour, BootstrapOnStartup: true}, zerolog.Nop())

	cancel, errCh := serve(t, svc)
	waitRun(t, job)
	cancel()
	<-errCh

	// A supervisor restart must not bootstrap again.
	cancel, errCh = serve(t, svc)
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-errCh

	if got := job.runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestTrendingSyncService_NoBootstrap(t *testing.T) {
	tests := []struct {
		name      string
		snapshots *fakeSnapshots
		bootstrap bool
	}{
		{"snapshot present", &fakeSnapshots{empty: false}, true},
		{"check failed", &fakeSnapshots{err: errors.New("db down")}, true},
		{"disabled", &fakeSnapshots{empty: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := newFakeSyncJob()
			svc := NewTrendingSyncService(job, tt.snapshots,
				TrendingSyncConfig{Interval: time.Hour, BootstrapOnStartup: tt.bootstrap}, zerolog.Nop())

			cancel, errCh := serve(t, svc)
			time.Sleep(50 * time.Millisecond)
			cancel()
			<-errCh

			if got := job.runs.Load(); got != 0 {
				t.Errorf("runs = %d, want 0", got)
			}
		})
	}
}

func TestTrendingSyncService_ScheduledRuns(t *testing.T) {
	job := newFakeSyncJob()
	job.err = errors.New("chart unavailable")
	svc := NewTrendingSyncService(job, &fakeSnapshots{},
		TrendingSyncConfig{Interval: 20 * time.Millisecond}, zerolog.Nop())

	cancel, errCh := serve(t, svc)
	waitRun(t, job)
	waitRun(t, job)
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled after failed runs", err)
	}
}

func TestTrendingSyncService_Trigger(t *testing.T) {
	job := newFakeSyncJob()
	svc := NewTrendingSyncService(job, &fakeSnapshots{},
		TrendingSyncConfig{Interval: time.Hour}, zerolog.Nop())

	cancel, errCh := serve(t, svc)
	if err := svc.Trigger(); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	waitRun(t, job)

	job.running.Store(true)
	if err := svc.Trigger(); !errors.Is(err, trending.ErrAlreadyRunning) {
		t.Errorf("Trigger() while running error = %v, want ErrAlreadyRunning", err)
	}
	job.running.Store(false)

	cancel()
	<-errCh
}

func TestTrendingSyncService_TriggerQueuesOnce(t *testing.T) {
	job := newFakeSyncJob()
	svc := NewTrendingSyncService(job, &fakeSnapshots{}, TrendingSyncConfig{}, zerolog.Nop())

	// Not serving: the first trigger is queued, the second is rejected.
	if err := svc.Trigger(); err != nil {
		t.Fatalf("first Trigger() error = %v", err)
	}
	if err := svc.Trigger(); !errors.Is(err, trending.ErrAlreadyRunning) {
		t.Errorf("second Trigger() error = %v, want ErrAlreadyRunning", err)
	}
	if svc.config.Interval != defaultSyncInterval || svc.config.RunTimeout != defaultRunTimeout {
		t.Errorf("defaults not applied: %+v", svc.config)
	}
}
