// Musicseer - Music Discovery and Recommendation Service
// Copyright 2026 tkharbeche
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tkharbeche/musicseer

// Package metrics holds the Prometheus collectors for Musicseer.
//
// Collectors are registered on the default registry through promauto and
// exposed by the API router on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values shared by the counters below.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultNotFound = "not_found"
	ResultRejected = "rejected"
)

var (
	// External API Metrics
	ExternalRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_requests_total",
			Help: "Total number of requests sent to external music APIs",
		},
		[]string{"source", "result"}, // result: "success", "failure", "not_found", "rejected"
	)

	ExternalRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "external_request_duration_seconds",
			Help:    "Duration of external music API requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
		[]string{"source"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Trending Sync Metrics
	TrendingSyncRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trending_sync_runs_total",
			Help: "Total number of trending sync runs by outcome",
		},
		[]string{"result"}, // result: "success", "partial_failure", "aborted", "failure"
	)

	TrendingSyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trending_sync_duration_seconds",
			Help:    "Duration of trending sync runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	TrendingSyncEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "trending_sync_entries",
			Help: "Number of entries in the current trending snapshot",
		},
	)

	// Cache Metrics
	SimilarityCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "similarity_cache_lookups_total",
			Help: "Similarity cache lookups by outcome",
		},
		[]string{"result"}, // result: "hit", "miss", "stale"
	)

	// Enrichment Metrics
	ArtistEnrichments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artist_enrichments_total",
			Help: "Artist records created or refreshed from external sources",
		},
		[]string{"result"}, // result: "created", "refreshed", "cached", "failure"
	)

	ImageResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resolutions_total",
			Help: "Image waterfall resolutions by winning source",
		},
		[]string{"source"}, // source: "lidarr", "lastfm", "coverart", "audiodb", "deezer", "none"
	)

	// Recommendation Metrics
	RecommendationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordExternalRequest records one call to an external music API.
func RecordExternalRequest(source, result string, duration time.Duration) {
	ExternalRequestsTotal.WithLabelValues(source, result).Inc()
	ExternalRequestDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordTrendingSync records the outcome of a trending sync run.
func RecordTrendingSync(result string, duration time.Duration, entries int) {
	TrendingSyncRuns.WithLabelValues(result).Inc()
	TrendingSyncDuration.Observe(duration.Seconds())
	if entries > 0 {
		TrendingSyncEntries.Set(float64(entries))
	}
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
