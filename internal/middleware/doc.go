// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package middleware provides HTTP middleware components for the API router.

Every middleware has the func(http.Handler) http.Handler shape so it plugs
into chi's r.Use directly.

Key Components:

  - RequestID: UUID request ids, propagated into the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge labelled by route pattern
  - Compression: gzip responses (klauspost/compress)
  - PerformanceMonitor: sliding window of request latencies with percentiles

Typical use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(perfMon.Middleware)
	r.Use(middleware.Compression)

Route patterns are read after the handler has run, once chi has resolved the
route, so nested routers report their full pattern.
*/
package middleware
