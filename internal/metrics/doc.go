// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry through promauto and
are exposed by the API at /metrics in Prometheus text format:

	curl http://localhost:8000/metrics

# Available Metrics

Database:
  - duckdb_query_duration_seconds (histogram; operation, table)
  - duckdb_query_errors_total (counter; operation, table, error_type)

API:
  - api_requests_total (counter; method, endpoint, status_code)
  - api_request_duration_seconds (histogram; method, endpoint)
  - api_active_requests (gauge)
  - api_rate_limit_hits_total (counter; endpoint)

Model:
  - model_training_duration_seconds (histogram)
  - model_training_total (counter; status)
  - model_state, model_indexed_tracks, model_version (gauges)
  - model_last_trained_timestamp (gauge)

Recommendations:
  - recommend_duration_seconds (histogram)
  - recommend_requests_total (counter; outcome)
  - recommend_unknown_ids_total (counter)

Catalog:
  - catalog_requests_total (counter; endpoint, status_code)
  - catalog_retries_total (counter; reason)
  - catalog_cache_hits_total, catalog_cache_misses_total (counters)
  - circuit_breaker_* (state, requests, consecutive failures, transitions)

Ingestion and events:
  - etl_duration_seconds, etl_rows_loaded, etl_errors_total
  - events_published_total, events_consumed_total

# Usage

	start := time.Now()
	rows, err := db.QueryContext(ctx, query)
	metrics.RecordDBQuery("select", "tracks", time.Since(start), err)

Label values are kept low-cardinality: errors are bucketed into a small set
of types and endpoints are route patterns, never raw paths.
*/
package metrics
