// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

/*
Package api provides the HTTP layer for Tracksim, routed with chi.

# Endpoints

	POST /api/v1/recommend           recommendations for a list of track ids
	GET  /api/v1/autocomplete?q=     track name prefix and substring search
	GET  /api/v1/test                liveness probe kept for existing clients
	GET  /api/v1/model               engine status
	GET  /api/v1/health              database and model health
	GET  /api/v1/health/live         process liveness
	GET  /api/v1/health/ready        503 until the model serves queries
	POST /api/v1/admin/retrain       queue a model rebuild (202)
	GET  /api/v1/admin/performance   per-route latency percentiles
	GET  /metrics                    Prometheus exposition

All JSON endpoints except /api/v1/test respond with the models.APIResponse
envelope. Errors carry a stable code:

	VALIDATION_ERROR        400  malformed body or query parameters
	INVALID_ARGUMENT        400  rejected by the recommendation engine
	INSUFFICIENT_NEIGHBORS  422  n_recs not smaller than the index size
	MODEL_NOT_READY         503  no model is serving yet
	DATABASE_ERROR          500  catalog query failure

# Admin Access

Admin routes require ADMIN_TOKEN, presented as a bearer token or in the
X-Admin-Token header. Without a token they are only mounted outside
production.

# Middleware

Request ids, Prometheus instrumentation, CORS (go-chi/cors), per-IP rate
limiting (go-chi/httprate), security headers, gzip and chi's RealIP,
Recoverer and Timeout.
*/
package api
