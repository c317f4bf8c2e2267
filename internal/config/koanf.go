// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/musicseer/config.yaml",
	"/etc/musicseer/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvFile is preloaded into the process environment when present.
const DotEnvFile = ".env"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Database: DatabaseConfig{
			Driver:  "duckdb",
			Path:    "/data/musicseer.duckdb",
			Threads: 0,
		},
		Similarity: SimilarityConfig{
			Dir:       "/data/similarity",
			TTL:       7 * 24 * time.Hour,
			FetchSize: 50,
		},
		LastFM: LastFMConfig{
			BaseURL: "https://ws.audioscrobbler.com/2.0/",
			Timeout: 5 * time.Second,
		},
		MusicBrainz: MusicBrainzConfig{
			BaseURL:     "https://musicbrainz.org/ws/2",
			CoverArtURL: "https://coverartarchive.org",
			AppName:     "MusicSeer",
			AppVersion:  "0.1.0",
			Contact:     "admin@musicseer.local",
			MinInterval: time.Second,
			Timeout:     5 * time.Second,
		},
		Lidarr: LidarrConfig{
			Enabled: false,
			Timeout: 5 * time.Second,
		},
		AudioDB: AudioDBConfig{
			Enabled: true,
			BaseURL: "https://www.theaudiodb.com/api/v1/json/2",
			Timeout: 5 * time.Second,
			RPS:     2,
		},
		Deezer: DeezerConfig{
			Enabled: true,
			BaseURL: "https://api.deezer.com",
			Timeout: 5 * time.Second,
			RPS:     5,
		},
		Images: ImagesConfig{
			ValidationTimeout:  3 * time.Second,
			ValidationCacheTTL: time.Hour,
		},
		Trending: TrendingConfig{
			Enabled:            true,
			Interval:           6 * time.Hour,
			ChartSize:          100,
			ChartType:          "global",
			BootstrapOnStartup: true,
			RunTimeout:         2 * time.Hour,
		},
		Recommend: RecommendConfig{
			DefaultLimit:   20,
			MaxLimit:       100,
			RequestTimeout: 60 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file and the
// environment, then validates it.
//
//  1. Struct defaults
//  2. Config file (CONFIG_PATH, config.yaml, /etc/musicseer/config.yaml)
//  3. Environment variables, after preloading .env
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.Lidarr.URL = NormalizeBaseURL(cfg.Lidarr.URL)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"database_driver": "database.driver",
	"duckdb_path":     "database.path",
	"database_url":    "database.dsn",
	"duckdb_threads":  "database.threads",

	"similarity_cache_dir":       "similarity.dir",
	"similarity_cache_in_memory": "similarity.in_memory",
	"similarity_cache_ttl":       "similarity.ttl",
	"similarity_fetch_size":      "similarity.fetch_size",

	"lastfm_api_key":  "lastfm.api_key",
	"lastfm_base_url": "lastfm.base_url",
	"lastfm_timeout":  "lastfm.timeout",

	"musicbrainz_base_url":      "musicbrainz.base_url",
	"musicbrainz_cover_art_url": "musicbrainz.cover_art_url",
	"musicbrainz_app_name":      "musicbrainz.app_name",
	"musicbrainz_app_version":   "musicbrainz.app_version",
	"musicbrainz_contact":       "musicbrainz.contact",
	"musicbrainz_min_interval":  "musicbrainz.min_interval",
	"musicbrainz_timeout":       "musicbrainz.timeout",

	"lidarr_enabled": "lidarr.enabled",
	"lidarr_url":     "lidarr.url",
	"lidarr_api_key": "lidarr.api_key",
	"lidarr_timeout": "lidarr.timeout",

	"audiodb_enabled":  "audiodb.enabled",
	"audiodb_base_url": "audiodb.base_url",
	"audiodb_timeout":  "audiodb.timeout",
	"audiodb_rps":      "audiodb.rps",

	"deezer_enabled":  "deezer.enabled",
	"deezer_base_url": "deezer.base_url",
	"deezer_timeout":  "deezer.timeout",
	"deezer_rps":      "deezer.rps",

	"image_validation_timeout":   "images.validation_timeout",
	"image_validation_cache_ttl": "images.validation_cache_ttl",

	"trending_enabled":              "trending.enabled",
	"trending_interval":             "trending.interval",
	"trending_chart_size":           "trending.chart_size",
	"trending_chart_type":           "trending.chart_type",
	"trending_bootstrap_on_startup": "trending.bootstrap_on_startup",
	"trending_run_timeout":          "trending.run_timeout",

	"recommend_default_limit":   "recommend.default_limit",
	"recommend_max_limit":       "recommend.max_limit",
	"recommend_request_timeout": "recommend.request_timeout",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" so unrelated environment does not leak into config.
//
//   - LASTFM_API_KEY -> lastfm.api_key
//   - DUCKDB_PATH -> database.path
//   - TRENDING_INTERVAL -> trending.interval
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// NormalizeBaseURL trims whitespace, trailing slashes and a trailing "/api" or
// "/api/v1" so callers can append "/api/v1/..." exactly once.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimRight(strings.TrimSpace(raw), "/")
	for _, suffix := range []string{"/api/v1", "/api"} {
		if strings.HasSuffix(strings.ToLower(u), suffix) {
			u = strings.TrimRight(u[:len(u)-len(suffix)], "/")
			break
		}
	}
	return u
}
