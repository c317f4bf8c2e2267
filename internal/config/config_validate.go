// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour

	maxChartSize = 1000
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validDatabaseDrivers = map[string]bool{
	"duckdb":   true,
	"postgres": true,
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateDatabase,
		c.validateSimilarity,
		c.validateSources,
		c.validateLidarr,
		c.validateTrending,
		c.validateRecommend,
		c.validateRateLimits,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if !validDatabaseDrivers[c.Database.Driver] {
		return fmt.Errorf("DATABASE_DRIVER must be one of: duckdb, postgres")
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
	}
	if c.Database.Driver == "duckdb" && c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required when DATABASE_DRIVER=duckdb")
	}
	return nil
}

func (c *Config) validateSimilarity() error {
	if c.Similarity.TTL <= 0 {
		return fmt.Errorf("SIMILARITY_CACHE_TTL must be positive")
	}
	if c.Similarity.FetchSize < 1 {
		return fmt.Errorf("SIMILARITY_FETCH_SIZE must be at least 1")
	}
	if !c.Similarity.InMemory && c.Similarity.Dir == "" {
		return fmt.Errorf("SIMILARITY_CACHE_DIR is required unless SIMILARITY_CACHE_IN_MEMORY=true")
	}
	return nil
}

// validateSources checks base URLs and timeouts of every external adapter.
func (c *Config) validateSources() error {
	type source struct {
		name    string
		baseURL string
		timeout time.Duration
	}
	sources := []source{
		{"LASTFM", c.LastFM.BaseURL, c.LastFM.Timeout},
		{"MUSICBRAINZ", c.MusicBrainz.BaseURL, c.MusicBrainz.Timeout},
		{"AUDIODB", c.AudioDB.BaseURL, c.AudioDB.Timeout},
		{"DEEZER", c.Deezer.BaseURL, c.Deezer.Timeout},
	}
	for _, s := range sources {
		if err := validateHTTPURL(s.baseURL, s.name+"_BASE_URL"); err != nil {
			return err
		}
		if s.timeout <= 0 {
			return fmt.Errorf("%s_TIMEOUT must be positive", s.name)
		}
	}
	if c.MusicBrainz.MinInterval <= 0 {
		return fmt.Errorf("MUSICBRAINZ_MIN_INTERVAL must be positive")
	}
	if c.AudioDB.Enabled && c.AudioDB.RPS <= 0 {
		return fmt.Errorf("AUDIODB_RPS must be positive")
	}
	if c.Deezer.Enabled && c.Deezer.RPS <= 0 {
		return fmt.Errorf("DEEZER_RPS must be positive")
	}
	if c.Images.ValidationTimeout <= 0 {
		return fmt.Errorf("IMAGE_VALIDATION_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateLidarr() error {
	if !c.Lidarr.Enabled {
		return nil
	}
	if c.Lidarr.URL == "" {
		return fmt.Errorf("LIDARR_URL is required when LIDARR_ENABLED=true")
	}
	if c.Lidarr.APIKey == "" {
		return fmt.Errorf("LIDARR_API_KEY is required when LIDARR_ENABLED=true")
	}
	return validateHTTPURL(c.Lidarr.URL, "LIDARR_URL")
}

func (c *Config) validateTrending() error {
	if c.Trending.Interval <= 0 {
		return fmt.Errorf("TRENDING_INTERVAL must be positive")
	}
	if c.Trending.RunTimeout <= 0 {
		return fmt.Errorf("TRENDING_RUN_TIMEOUT must be positive")
	}
	if c.Trending.ChartSize < 1 || c.Trending.ChartSize > maxChartSize {
		return fmt.Errorf("TRENDING_CHART_SIZE must be between 1 and %d", maxChartSize)
	}
	if c.Trending.ChartType == "" {
		return fmt.Errorf("TRENDING_CHART_TYPE is required")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.DefaultLimit < 1 {
		return fmt.Errorf("RECOMMEND_DEFAULT_LIMIT must be at least 1")
	}
	if c.Recommend.MaxLimit < c.Recommend.DefaultLimit {
		return fmt.Errorf("RECOMMEND_MAX_LIMIT must be >= RECOMMEND_DEFAULT_LIMIT")
	}
	if c.Recommend.RequestTimeout <= 0 {
		return fmt.Errorf("RECOMMEND_REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// validateHTTPURL validates that a URL uses http or https and names a host.
// Paths are allowed because several upstream APIs are rooted below "/".
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}
	return nil
}
