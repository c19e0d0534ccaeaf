// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/tracksim/internal/events"
	"github.com/tomtom215/tracksim/internal/logging"
)

// RetrainRequest is the optional body of POST /api/v1/admin/retrain.
type RetrainRequest struct {
	Reason     string `json:"reason" validate:"omitempty,max=256"`
	Dimensions int    `json:"dimensions" validate:"omitempty,min=1"`
	LeafSize   int    `json:"leaf_size" validate:"omitempty,min=1"`
}

// RetrainAccepted is returned once the retrain request is queued.
type RetrainAccepted struct {
	EventID string `json:"event_id"`
	Reason  string `json:"reason"`
}

// AdminRetrain queues a model rebuild and answers 202 Accepted. The rebuild
// itself runs in the recommend service.
func (h *Handler) AdminRetrain(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.events == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, ErrEventsUnavailable.Error(), nil)
		return
	}

	var req RetrainRequest
	if r.ContentLength != 0 {
		if err := decodeJSONBody(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
			respondError(w, r, http.StatusBadRequest, CodeValidation, "Invalid request body: "+err.Error(), nil)
			return
		}
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	if req.Reason == "" {
		req.Reason = "admin request"
	}

	eventID, err := h.events.PublishRetrainWith(r.Context(), events.RetrainRequest{
		Reason:     req.Reason,
		Dimensions: req.Dimensions,
		LeafSize:   req.LeafSize,
	})
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "Failed to queue retrain", err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("event_id", eventID).
		Str("reason", sanitizeLogValue(req.Reason)).
		Msg("Retrain requested")

	respondSuccess(w, r, http.StatusAccepted, RetrainAccepted{EventID: eventID, Reason: req.Reason}, start)
}

// AdminPerformance returns per-route latency statistics.
func (h *Handler) AdminPerformance(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.perfMon.GetStats(), time.Now())
}
