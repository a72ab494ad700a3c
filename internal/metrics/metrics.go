// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package metrics exposes Prometheus instrumentation for the API, the
// index store, the response cache, and websocket connections.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts HTTP requests by method, endpoint, and status.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubescope_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// APIRequestDuration observes request latency by method and endpoint.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cubescope_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// APIActiveRequests gauges requests currently in flight.
	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cubescope_api_active_requests",
			Help: "Number of API requests currently being processed",
		},
	)

	// DBQueryDuration observes index query latency by operation and table.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cubescope_db_query_duration_seconds",
			Help:    "Index query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"operation", "table"},
	)

	// DBQueryErrors counts failed index queries.
	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubescope_db_query_errors_total",
			Help: "Total number of failed index queries",
		},
		[]string{"operation", "table"},
	)

	// CacheHits counts cache hits by cache type.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubescope_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	// CacheMisses counts cache misses by cache type.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubescope_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// CacheEvictions counts expired entries removed by cache type.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubescope_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"cache_type"},
	)

	// CacheSize gauges current entry counts by cache type.
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cubescope_cache_size",
			Help: "Current number of cache entries",
		},
		[]string{"cache_type"},
	)

	// WSConnections gauges connected websocket clients.
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cubescope_websocket_connections",
			Help: "Number of active websocket connections",
		},
	)

	// SummaryRefreshes counts summary generation runs by outcome.
	SummaryRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cubescope_summary_refreshes_total",
			Help: "Total number of product summary refreshes",
		},
		[]string{"outcome"},
	)

	// SummaryRefreshDuration observes per-product summary refresh latency.
	SummaryRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cubescope_summary_refresh_duration_seconds",
			Help:    "Per-product summary refresh duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordDBQuery records one index query, successful or not.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordCacheHit records one cache hit.
func RecordCacheHit(cacheType string) {
	CacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records one cache miss.
func RecordCacheMiss(cacheType string) {
	CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordCacheEviction records one evicted entry.
func RecordCacheEviction(cacheType string) {
	CacheEvictions.WithLabelValues(cacheType).Inc()
}

// SetCacheSize updates the entry count gauge.
func SetCacheSize(cacheType string, size int) {
	CacheSize.WithLabelValues(cacheType).Set(float64(size))
}

// TrackWSConnection adjusts the websocket connection gauge.
func TrackWSConnection(connected bool) {
	if connected {
		WSConnections.Inc()
	} else {
		WSConnections.Dec()
	}
}

// RecordSummaryRefresh records one per-product summary refresh.
func RecordSummaryRefresh(outcome string, duration time.Duration) {
	SummaryRefreshes.WithLabelValues(outcome).Inc()
	SummaryRefreshDuration.Observe(duration.Seconds())
}
