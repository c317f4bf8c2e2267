// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tkharbeche/musicseer/internal/api"
	"github.com/tkharbeche/musicseer/internal/config"
	"github.com/tkharbeche/musicseer/internal/logging"
	"github.com/tkharbeche/musicseer/internal/supervisor"
	"github.com/tkharbeche/musicseer/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_driver", cfg.Database.Driver).
		Bool("trending_enabled", cfg.Trending.Enabled).
		Bool("lidarr_enabled", cfg.Lidarr.Enabled).
		Msg("Starting Musicseer with supervisor tree")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := newDiscovery(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize discovery components")
	}
	defer app.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	var syncService *services.TrendingSyncService
	if cfg.Trending.Enabled {
		syncService = services.NewTrendingSyncService(app.trendingJob, app.trendingStore, services.TrendingSyncConfig{
			Interval:           cfg.Trending.Interval,
			BootstrapOnStartup: cfg.Trending.BootstrapOnStartup,
			RunTimeout:         cfg.Trending.RunTimeout,
		}, logging.Logger())
		tree.AddJobService(syncService)
		logging.Info().Dur("interval", cfg.Trending.Interval).Msg("Trending sync service added")
	} else {
		logging.Info().Msg("Trending sync disabled")
	}

	server := newHTTPServer(cfg, app, syncService)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Musicseer stopped")
}

// newHTTPServer builds the API server. A nil sync service leaves the sync
// endpoints answering 503.
func newHTTPServer(cfg *config.Config, app *discovery, syncService *services.TrendingSyncService) *http.Server {
	deps := api.Deps{
		DB:          app.db,
		Trending:    app.trendingReader,
		Recommender: app.engine,
		Artists:     app.artistStore,
		Library:     app.libraryStore,
	}
	if syncService != nil {
		deps.SyncTrigger = syncService
		deps.SyncStatus = app.trendingJob
	}

	handler := api.NewHandler(deps, cfg.Recommend.RequestTimeout)
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))

	// Recommendation requests may run up to their own timeout.
	writeTimeout := max(cfg.Server.WriteTimeout, cfg.Recommend.RequestTimeout+time.Second)

	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      writeTimeout,
	}
}
