// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Model Metrics
	ModelTrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Duration of model training runs in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	ModelTrainingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_training_total",
			Help: "Total number of model training runs",
		},
		[]string{"status"}, // "success", "failure", "skipped"
	)

	ModelState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_state",
			Help: "Engine state (0=uninitialized, 1=trained, 2=loaded, 3=ready)",
		},
	)

	ModelIndexedTracks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_indexed_tracks",
			Help: "Number of tracks in the serving index",
		},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_version",
			Help: "Persisted version of the serving model (0 if unsaved)",
		},
	)

	ModelLastTrained = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "model_last_trained_timestamp",
			Help: "Unix timestamp of the last successful training run",
		},
	)

	// Recommendation Metrics
	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Duration of nearest-neighbor recommendation queries",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation queries",
		},
		[]string{"outcome"}, // "success", "not_ready", "invalid", "insufficient", "error"
	)

	RecommendUnknownIDs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_unknown_ids_total",
			Help: "Total number of queried track ids missing from the index",
		},
	)

	// Catalog Metrics
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total number of external catalog API requests",
		},
		[]string{"endpoint", "status_code"},
	)

	CatalogRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_retries_total",
			Help: "Total number of catalog request retries",
		},
		[]string{"reason"}, // "unauthorized", "rate_limited"
	)

	CatalogCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog link cache hits",
		},
	)

	CatalogCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog link cache misses",
		},
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

	// ETL Metrics
	ETLDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "etl_duration_seconds",
			Help:    "Duration of dataset ingestion runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	ETLRowsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "etl_rows_loaded",
			Help: "Rows written per table by the last ingestion run",
		},
		[]string{"table"},
	)

	ETLErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "etl_errors_total",
			Help: "Total number of failed ingestion runs",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of events published",
		},
		[]string{"topic"},
	)

	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_consumed_total",
			Help: "Total number of events handled",
		},
		[]string{"topic", "result"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, errorType(err)).Inc()
	}
}

// errorType buckets an error into a low-cardinality label value.
func errorType(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "constraint"):
		return "constraint"
	case strings.Contains(msg, "syntax") || strings.Contains(msg, "parser"):
		return "syntax"
	case strings.Contains(msg, "does not exist") || strings.Contains(msg, "not found"):
		return "not_found"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "closed"):
		return "connection"
	default:
		return "other"
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordTraining records the outcome of a training run.
func RecordTraining(duration time.Duration, err error) {
	ModelTrainingDuration.Observe(duration.Seconds())
	if err != nil {
		ModelTrainingTotal.WithLabelValues("failure").Inc()
		return
	}
	ModelTrainingTotal.WithLabelValues("success").Inc()
	ModelLastTrained.Set(float64(time.Now().Unix()))
}

// RecordTrainingSkipped counts a training request rejected because another
// run was active.
func RecordTrainingSkipped() {
	ModelTrainingTotal.WithLabelValues("skipped").Inc()
}

// SetModelState publishes the engine state and serving index size.
func SetModelState(state int, indexedTracks int) {
	ModelState.Set(float64(state))
	ModelIndexedTracks.Set(float64(indexedTracks))
}

// SetModelVersion publishes the persisted version of the serving model.
func SetModelVersion(version int) {
	ModelVersion.Set(float64(version))
}

// RecordRecommendation records one recommend call.
func RecordRecommendation(outcome string, duration time.Duration, unknownIDs int) {
	RecommendRequests.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(duration.Seconds())
	if unknownIDs > 0 {
		RecommendUnknownIDs.Add(float64(unknownIDs))
	}
}

// RecordCatalogRequest records an external catalog API call.
func RecordCatalogRequest(endpoint, statusCode string) {
	CatalogRequests.WithLabelValues(endpoint, statusCode).Inc()
}

// RecordCatalogRetry records a retried catalog call.
func RecordCatalogRetry(reason string) {
	CatalogRetries.WithLabelValues(reason).Inc()
}

// RecordCatalogCache records link cache lookups.
func RecordCatalogCache(hits, misses int) {
	CatalogCacheHits.Add(float64(hits))
	CatalogCacheMisses.Add(float64(misses))
}

// RecordETLRun records an ingestion run.
func RecordETLRun(duration time.Duration, rows map[string]int, err error) {
	ETLDuration.Observe(duration.Seconds())
	if err != nil {
		ETLErrors.Inc()
		return
	}
	for table, n := range rows {
		ETLRowsLoaded.WithLabelValues(table).Set(float64(n))
	}
}

// RecordEventPublished counts a published event.
func RecordEventPublished(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventConsumed counts a handled event.
func RecordEventConsumed(topic string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	EventsConsumed.WithLabelValues(topic, result).Inc()
}
