// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package catalog

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDisabled is returned when the client is built without credentials.
	ErrDisabled = errors.New("catalog client disabled: credentials not configured")

	// ErrTrackNotFound is returned by Track for an id the catalog does not know.
	ErrTrackNotFound = errors.New("track not found in catalog")

	// ErrUnauthorized is returned when credentials are rejected even after
	// requesting a fresh token.
	ErrUnauthorized = errors.New("catalog rejected credentials")

	// ErrRateLimited is returned when retries are exhausted on 429 responses.
	ErrRateLimited = errors.New("catalog rate limit exceeded")
)

// APIError is a non-success response from the catalog API.
type APIError struct {
	StatusCode int
	Message    string

	// retryAfter is the server-requested delay on 429 responses.
	retryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog API returned status %d: %s", e.StatusCode, e.Message)
}

// clientError reports whether the error is a 4xx the caller caused. Those do
// not count against the circuit breaker.
func clientError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500
	}
	return errors.Is(err, ErrTrackNotFound)
}
