// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/tomtom215/tracksim/internal/recommend"
)

// Error codes returned in models.APIError.Code.
const (
	CodeValidation            = "VALIDATION_ERROR"
	CodeInvalidArgument       = "INVALID_ARGUMENT"
	CodeInsufficientNeighbors = "INSUFFICIENT_NEIGHBORS"
	CodeModelNotReady         = "MODEL_NOT_READY"
	CodeDatabase              = "DATABASE_ERROR"
	CodeTimeout               = "TIMEOUT"
	CodeInternal              = "INTERNAL_ERROR"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeUnavailable           = "SERVICE_UNAVAILABLE"
)

// ErrEventsUnavailable is returned when an admin action needs the event bus
// and none is configured.
var ErrEventsUnavailable = errors.New("event bus not configured")

// engineErrorStatus maps an error from the recommendation engine to an HTTP
// status and error code.
func engineErrorStatus(err error) (int, string) {
	var notReady *recommend.ModelNotReadyError
	var invalid *recommend.InvalidArgumentError

	switch {
	case errors.As(err, &notReady):
		return http.StatusServiceUnavailable, CodeModelNotReady
	case errors.As(err, &invalid):
		return http.StatusBadRequest, CodeInvalidArgument
	case errors.Is(err, recommend.ErrInsufficientNeighbors):
		return http.StatusUnprocessableEntity, CodeInsufficientNeighbors
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
