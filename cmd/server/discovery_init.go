// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package main

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/tkharbeche/musicseer/internal/artists"
	"github.com/tkharbeche/musicseer/internal/cache"
	"github.com/tkharbeche/musicseer/internal/config"
	"github.com/tkharbeche/musicseer/internal/database"
	"github.com/tkharbeche/musicseer/internal/identity"
	"github.com/tkharbeche/musicseer/internal/imagery"
	"github.com/tkharbeche/musicseer/internal/library"
	"github.com/tkharbeche/musicseer/internal/logging"
	"github.com/tkharbeche/musicseer/internal/recommend"
	"github.com/tkharbeche/musicseer/internal/similarity"
	"github.com/tkharbeche/musicseer/internal/sources"
	"github.com/tkharbeche/musicseer/internal/trending"
)

// discovery holds the wired enrichment and recommendation components.
type discovery struct {
	db             *database.DB
	similarityDB   *badger.DB
	imageVerdicts  *cache.Cache
	trendingMemo   *cache.Cache
	artistStore    *artists.Store
	libraryStore   *library.Store
	trendingStore  *trending.Store
	trendingJob    *trending.Job
	trendingReader *trending.Reader
	engine         *recommend.Engine
}

// newDiscovery opens the stores and wires sources, enrichment, the trending
// job and the recommendation engine. On error everything opened so far is
// closed.
func newDiscovery(ctx context.Context, cfg *config.Config) (_ *discovery, err error) {
	d := &discovery{}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	d.db, err = database.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	d.artistStore = artists.NewStore(d.db)
	d.libraryStore = library.NewStore(d.db)
	d.trendingStore = trending.NewStore(d.db)
	if err = d.db.InitSchema(ctx, d.artistStore, d.libraryStore, d.trendingStore); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	logging.Info().Str("driver", d.db.Driver()).Msg("Database initialized successfully")

	lastfm := sources.NewLastFM(&cfg.LastFM)
	musicbrainz := sources.NewMusicBrainz(&cfg.MusicBrainz, sources.SystemClock{})

	d.imageVerdicts = cache.New(cfg.Images.ValidationCacheTTL)
	imageSources := imagery.Sources{
		Chart:    lastfm,
		Registry: musicbrainz,
		Checker:  sources.NewImageChecker(cfg.Images.ValidationTimeout, d.imageVerdicts),
	}
	// Interfaces stay nil for disabled sources so the waterfall skips them.
	if cfg.Lidarr.Enabled {
		imageSources.Catalogue = sources.NewLidarr(&cfg.Lidarr)
	}
	if cfg.AudioDB.Enabled {
		imageSources.Secondary = sources.NewAudioDB(&cfg.AudioDB)
	}
	if cfg.Deezer.Enabled {
		imageSources.Search = sources.NewDeezer(&cfg.Deezer)
	}

	logger := logging.Logger()
	resolver := identity.NewResolver(musicbrainz, logger)
	waterfall := imagery.NewWaterfall(imageSources, logger)
	enricher := artists.NewEnricher(d.artistStore, resolver, waterfall, lastfm, logger)

	d.similarityDB, err = similarity.Open(&cfg.Similarity)
	if err != nil {
		return nil, err
	}
	similar := similarity.NewCache(d.similarityDB, lastfm, &cfg.Similarity, nil, logger)

	d.trendingJob = trending.NewJob(lastfm, enricher, d.trendingStore, cfg.Trending.ChartType, cfg.Trending.ChartSize, logger)
	d.trendingMemo = cache.New(cfg.Trending.Interval)
	d.trendingReader = trending.NewReader(d.trendingStore, d.artistStore, cfg.Trending.ChartType, d.trendingMemo)

	engineCfg := recommend.DefaultConfig()
	engineCfg.DefaultLimit = cfg.Recommend.DefaultLimit
	engineCfg.MaxLimit = cfg.Recommend.MaxLimit
	d.engine, err = recommend.NewEngine(recommend.Deps{
		Library:  d.libraryStore,
		Similar:  similar,
		Enricher: enricher,
		Records:  d.artistStore,
		Trending: d.trendingReader,
	}, engineCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create recommendation engine: %w", err)
	}

	return d, nil
}

// Close releases the caches and stores in reverse order of opening.
func (d *discovery) Close() {
	if d.trendingMemo != nil {
		d.trendingMemo.Close()
	}
	if d.imageVerdicts != nil {
		d.imageVerdicts.Close()
	}
	if d.similarityDB != nil {
		if err := d.similarityDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing similarity cache")
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}
}
