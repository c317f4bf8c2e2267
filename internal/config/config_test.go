// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.Database.Path != "/data/musicseer.duckdb" {
		t.Errorf("Database.Path = %q, want /data/musicseer.duckdb", cfg.Database.Path)
	}
	if cfg.Similarity.TTL != 7*24*time.Hour {
		t.Errorf("Similarity.TTL = %v, want 168h", cfg.Similarity.TTL)
	}
	if cfg.Similarity.FetchSize != 50 {
		t.Errorf("Similarity.FetchSize = %d, want 50", cfg.Similarity.FetchSize)
	}
	if cfg.MusicBrainz.MinInterval != time.Second {
		t.Errorf("MusicBrainz.MinInterval = %v, want 1s", cfg.MusicBrainz.MinInterval)
	}
	if cfg.Images.ValidationTimeout != 3*time.Second {
		t.Errorf("Images.ValidationTimeout = %v, want 3s", cfg.Images.ValidationTimeout)
	}
	if cfg.Trending.Interval != 6*time.Hour {
		t.Errorf("Trending.Interval = %v, want 6h", cfg.Trending.Interval)
	}
	if cfg.Trending.ChartSize != 100 {
		t.Errorf("Trending.ChartSize = %d, want 100", cfg.Trending.ChartSize)
	}
	if !cfg.Trending.BootstrapOnStartup {
		t.Error("Trending.BootstrapOnStartup should be true by default")
	}
	if cfg.Lidarr.Enabled {
		t.Error("Lidarr.Enabled should be false by default")
	}
	if cfg.Recommend.DefaultLimit != 20 {
		t.Errorf("Recommend.DefaultLimit = %d, want 20", cfg.Recommend.DefaultLimit)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestMusicBrainzUserAgent(t *testing.T) {
	ua := defaultConfig().MusicBrainz.UserAgent()
	if ua != "MusicSeer/0.1.0 ( admin@musicseer.local )" {
		t.Errorf("UserAgent() = %q", ua)
	}
}

// TestLoad_EnvOverrides verifies that mapped environment variables override defaults
func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("LASTFM_API_KEY", "abc123")
	t.Setenv("TRENDING_INTERVAL", "2h")
	t.Setenv("LIDARR_ENABLED", "true")
	t.Setenv("LIDARR_URL", "http://lidarr.local:8686/api/v1/")
	t.Setenv("LIDARR_API_KEY", "key")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SOME_UNRELATED_VAR", "ignored")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port = %d, want 8088", cfg.Server.Port)
	}
	if cfg.LastFM.APIKey != "abc123" {
		t.Errorf("LastFM.APIKey = %q, want abc123", cfg.LastFM.APIKey)
	}
	if cfg.Trending.Interval != 2*time.Hour {
		t.Errorf("Trending.Interval = %v, want 2h", cfg.Trending.Interval)
	}
	if cfg.Lidarr.URL != "http://lidarr.local:8686" {
		t.Errorf("Lidarr.URL = %q, want normalized base", cfg.Lidarr.URL)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Security.CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

// TestLoad_ConfigFile verifies YAML values sit between defaults and env vars
func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
server:
  port: 4000
trending:
  chart_size: 50
  chart_type: "tag:rock"
similarity:
  in_memory: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "4001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 4001 {
		t.Errorf("env should win over file: port = %d", cfg.Server.Port)
	}
	if cfg.Trending.ChartSize != 50 || cfg.Trending.ChartType != "tag:rock" {
		t.Errorf("Trending = %+v", cfg.Trending)
	}
	if !cfg.Similarity.InMemory {
		t.Error("Similarity.InMemory should come from file")
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	if err := os.WriteFile(filepath.Join(dir, DotEnvFile), []byte("MUSICBRAINZ_CONTACT=ops@example.com\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("MUSICBRAINZ_CONTACT") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MusicBrainz.Contact != "ops@example.com" {
		t.Errorf("MusicBrainz.Contact = %q", cfg.MusicBrainz.Contact)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := map[string]string{
		"LASTFM_API_KEY":      "lastfm.api_key",
		"DUCKDB_PATH":         "database.path",
		"RATE_LIMIT_REQUESTS": "security.rate_limit_reqs",
		"PATH":                "",
		"HOME":                "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://host:8686", "http://host:8686"},
		{"http://host:8686/", "http://host:8686"},
		{"http://host:8686/api", "http://host:8686"},
		{"http://host:8686/api/", "http://host:8686"},
		{"http://host:8686/api/v1", "http://host:8686"},
		{"http://host:8686/api/v1/", "http://host:8686"},
		{"  http://host/lidarr/api/v1  ", "http://host/lidarr"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeBaseURL(tt.in); got != tt.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "DATABASE_DRIVER"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }, "DATABASE_URL"},
		{"lidarr without url", func(c *Config) { c.Lidarr.Enabled = true }, "LIDARR_URL"},
		{"lidarr without key", func(c *Config) {
			c.Lidarr.Enabled = true
			c.Lidarr.URL = "http://lidarr:8686"
		}, "LIDARR_API_KEY"},
		{"chart too large", func(c *Config) { c.Trending.ChartSize = 5000 }, "TRENDING_CHART_SIZE"},
		{"zero interval", func(c *Config) { c.Trending.Interval = 0 }, "TRENDING_INTERVAL"},
		{"bad source url", func(c *Config) { c.Deezer.BaseURL = "ftp://deezer" }, "DEEZER_BASE_URL"},
		{"zero ttl", func(c *Config) { c.Similarity.TTL = 0 }, "SIMILARITY_CACHE_TTL"},
		{"max below default", func(c *Config) { c.Recommend.MaxLimit = 5 }, "RECOMMEND_MAX_LIMIT"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"rate limit window", func(c *Config) { c.Security.RateLimitWindow = time.Millisecond }, "RATE_LIMIT_WINDOW"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
