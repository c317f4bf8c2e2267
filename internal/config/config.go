// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package config loads Musicseer configuration from struct defaults, an
// optional YAML file, and environment variables, in that order of precedence.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Database    DatabaseConfig    `koanf:"database"`
	Similarity  SimilarityConfig  `koanf:"similarity"`
	LastFM      LastFMConfig      `koanf:"lastfm"`
	MusicBrainz MusicBrainzConfig `koanf:"musicbrainz"`
	Lidarr      LidarrConfig      `koanf:"lidarr"`
	AudioDB     AudioDBConfig     `koanf:"audiodb"`
	Deezer      DeezerConfig      `koanf:"deezer"`
	Images      ImagesConfig      `koanf:"images"`
	Trending    TrendingConfig    `koanf:"trending"`
	Recommend   RecommendConfig   `koanf:"recommend"`
	Security    SecurityConfig    `koanf:"security"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// DatabaseConfig selects the SQL backend for artists, trending snapshots and
// library snapshots.
type DatabaseConfig struct {
	// Driver is "duckdb" (embedded, default) or "postgres".
	Driver string `koanf:"driver"`

	// Path is the DuckDB file. ":memory:" keeps everything in process.
	Path string `koanf:"path"`

	// DSN is the PostgreSQL connection string, used when Driver is "postgres".
	DSN string `koanf:"dsn"`

	// Threads is the DuckDB worker thread count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// SimilarityConfig configures the Badger-backed similarity cache.
type SimilarityConfig struct {
	Dir       string        `koanf:"dir"`
	InMemory  bool          `koanf:"in_memory"`
	TTL       time.Duration `koanf:"ttl"`
	FetchSize int           `koanf:"fetch_size"`
}

// LastFMConfig configures the chart provider.
type LastFMConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// MusicBrainzConfig configures the metadata registry and its cover art archive.
type MusicBrainzConfig struct {
	BaseURL     string        `koanf:"base_url"`
	CoverArtURL string        `koanf:"cover_art_url"`
	AppName     string        `koanf:"app_name"`
	AppVersion  string        `koanf:"app_version"`
	Contact     string        `koanf:"contact"`
	MinInterval time.Duration `koanf:"min_interval"`
	Timeout     time.Duration `koanf:"timeout"`
}

// UserAgent renders the identifying header the registry requires.
func (m MusicBrainzConfig) UserAgent() string {
	return m.AppName + "/" + m.AppVersion + " ( " + m.Contact + " )"
}

// LidarrConfig configures the optional collection manager.
type LidarrConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// AudioDBConfig configures TheAudioDB artwork lookups.
type AudioDBConfig struct {
	Enabled bool          `koanf:"enabled"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	RPS     float64       `koanf:"rps"`
}

// DeezerConfig configures the Deezer artist search used as the last image source.
type DeezerConfig struct {
	Enabled bool          `koanf:"enabled"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	RPS     float64       `koanf:"rps"`
}

// ImagesConfig configures image URL validation.
type ImagesConfig struct {
	ValidationTimeout  time.Duration `koanf:"validation_timeout"`
	ValidationCacheTTL time.Duration `koanf:"validation_cache_ttl"`
}

// TrendingConfig configures the periodic chart sync job.
type TrendingConfig struct {
	Enabled            bool          `koanf:"enabled"`
	Interval           time.Duration `koanf:"interval"`
	ChartSize          int           `koanf:"chart_size"`
	ChartType          string        `koanf:"chart_type"`
	BootstrapOnStartup bool          `koanf:"bootstrap_on_startup"`
	RunTimeout         time.Duration `koanf:"run_timeout"`
}

// RecommendConfig configures recommendation request handling.
type RecommendConfig struct {
	DefaultLimit   int           `koanf:"default_limit"`
	MaxLimit       int           `koanf:"max_limit"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// SecurityConfig holds HTTP edge settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}
