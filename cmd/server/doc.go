// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

/*
Package main is the entry point for the Musicseer server.

Musicseer turns per-user listening libraries into artist recommendations and
keeps a trending catalogue fresh from a scrobble chart. Artist identity,
genres, release dates and images are reconciled across Last.fm,
MusicBrainz, the Cover Art Archive, Lidarr, TheAudioDB and Deezer, and
cached in the database so request latency only pays for new candidates.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("musicseer")
	├── JobsSupervisor ("jobs-layer")
	│   └── Trending sync service (interval ticker, bootstrap, manual trigger)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: koanf v2 (defaults, YAML file, environment, .env)
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB by default, PostgreSQL through pgx
 4. Stores: artists, trending snapshots, library snapshots
 5. Sources: chart, registry, catalogue, secondary images, search, image checker
 6. Enrichment: identity resolver, image waterfall, enricher
 7. Similarity cache: BadgerDB
 8. Trending job and reader, recommendation engine
 9. Supervisor tree and HTTP server

# Configuration

See internal/config for every key. The common environment variables are:

	LASTFM_API_KEY          chart service key (required)
	MUSICBRAINZ_CONTACT     contact in the registry User-Agent
	DATABASE_DRIVER         duckdb or postgres
	DUCKDB_PATH             DuckDB file
	DATABASE_URL            PostgreSQL DSN
	LIDARR_ENABLED          enable the catalogue image source
	TRENDING_INTERVAL       sync interval (default 6h)
	HTTP_PORT               listen port (default 3000)

# Shutdown

SIGINT or SIGTERM cancels the root context. The HTTP server drains within
its shutdown timeout, a running trending sync is canceled before its write,
and the stores are closed after the tree stops.
*/
package main
