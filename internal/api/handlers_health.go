// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/tracksim/internal/models"
	"github.com/tomtom215/tracksim/internal/recommend"
)

// pingTimeout bounds the database check of health endpoints.
const pingTimeout = 2 * time.Second

// Health reports database connectivity and the model state. It always
// answers 200; Status is "degraded" when either is unavailable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	dbConnected := h.databaseUp(r.Context())
	modelState := h.engine.Status().State

	status := "healthy"
	if !dbConnected || modelState != recommend.StateReady.String() {
		status = "degraded"
	}

	respondSuccess(w, r, http.StatusOK, models.HealthStatus{
		Status:            status,
		Version:           Version,
		DatabaseConnected: dbConnected,
		ModelState:        modelState,
		CatalogEnabled:    h.links != nil,
		Uptime:            time.Since(h.startTime).Seconds(),
	}, start)
}

// HealthLive is the Kubernetes liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady is the readiness probe: 503 until the database answers and the
// model serves queries.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.databaseUp(r.Context()) {
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable, "database not reachable", nil)
		return
	}
	if state := h.engine.Status().State; state != recommend.StateReady.String() {
		respondError(w, r, http.StatusServiceUnavailable, CodeModelNotReady, "model is not ready (state: "+state+")", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "ready"}, time.Now())
}

// APITest answers the legacy connectivity probe with a bare JSON object.
func (h *Handler) APITest(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"api_status": "works fine"})
}

// ModelStatus returns the engine status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.engine.Status(), time.Now())
}

func (h *Handler) databaseUp(ctx context.Context) bool {
	if h.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.store.Ping(ctx) == nil
}
