// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by the
// JSON endpoints under /api/v1.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "MODEL_NOT_READY",
//	    "message": "model is not ready (state: uninitialized)"
//	  },
//	  "metadata": {"timestamp": "2026-01-02T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Malformed or out-of-range input
//   - INVALID_ARGUMENT: Rejected by the recommendation engine
//   - INSUFFICIENT_NEIGHBORS: More recommendations requested than indexed tracks allow
//   - MODEL_NOT_READY: No model is serving yet
//   - DATABASE_ERROR: Query execution failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RecommendRequest is the body of POST /api/v1/recommend.
type RecommendRequest struct {
	IDs   []string `json:"ids" validate:"required,min=1,dive,trackid"`
	NRecs int      `json:"n_recs" validate:"required,min=1"`
}

// RecommendedTrack is one flattened recommendation with display and link data.
type RecommendedTrack struct {
	TrackSummary
	URI      string `json:"uri,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// RecommendResponse carries recommendations in neighbor order. NotFound lists
// query ids that are not in the index.
type RecommendResponse struct {
	Tracks   []RecommendedTrack `json:"tracks"`
	NotFound []string           `json:"not_found"`
}

// HealthStatus represents the health check response
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	ModelState        string  `json:"model_state"`
	CatalogEnabled    bool    `json:"catalog_enabled"`
	Uptime            float64 `json:"uptime_seconds"`
}
