// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package api

import (
	"context"
	"time"

	"github.com/tomtom215/tracksim/internal/config"
	"github.com/tomtom215/tracksim/internal/events"
	"github.com/tomtom215/tracksim/internal/middleware"
	"github.com/tomtom215/tracksim/internal/models"
	"github.com/tomtom215/tracksim/internal/recommend"
)

// Version is reported by the health endpoint. It is set at build time.
var Version = "dev"

// Recommender answers similarity queries. *recommend.Engine implements it.
type Recommender interface {
	Recommend(ctx context.Context, ids []string, nRecs int) ([]recommend.Result, error)
	Status() recommend.Status
}

// TrackStore reads display data for tracks. *database.DB implements it.
type TrackStore interface {
	SummariesByID(ctx context.Context, ids []string) (map[string]models.TrackSummary, error)
	Autocomplete(ctx context.Context, q string, limit int) ([]models.TrackSummary, error)
	Ping(ctx context.Context) error
}

// LinkResolver looks up catalog links for tracks. *catalog.Client implements it.
type LinkResolver interface {
	Links(ctx context.Context, ids []string) (map[string]models.Link, error)
}

// RetrainPublisher queues model rebuilds. *events.Bus implements it.
type RetrainPublisher interface {
	PublishRetrainWith(ctx context.Context, req events.RetrainRequest) (string, error)
}

// Deps groups the collaborators of a Handler. Links and Events are optional.
type Deps struct {
	Engine  Recommender
	Store   TrackStore
	Links   LinkResolver
	Events  RetrainPublisher
	PerfMon *middleware.PerformanceMonitor
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_recommend.go: recommend and autocomplete
//   - handlers_health.go: health, readiness, model status
//   - handlers_admin.go: retrain and performance
type Handler struct {
	engine    Recommender
	store     TrackStore
	links     LinkResolver
	events    RetrainPublisher
	config    *config.Config
	perfMon   *middleware.PerformanceMonitor
	startTime time.Time
}

// NewHandler creates a handler. A nil PerfMon gets a monitor sized for the
// last 1000 requests.
func NewHandler(cfg *config.Config, deps Deps) *Handler {
	perfMon := deps.PerfMon
	if perfMon == nil {
		perfMon = middleware.NewPerformanceMonitor(1000)
	}
	return &Handler{
		engine:    deps.Engine,
		store:     deps.Store,
		links:     deps.Links,
		events:    deps.Events,
		config:    cfg,
		perfMon:   perfMon,
		startTime: time.Now(),
	}
}

// PerformanceMonitor returns the monitor fed by the router middleware.
func (h *Handler) PerformanceMonitor() *middleware.PerformanceMonitor {
	return h.perfMon
}

func (h *Handler) maxQueryIDs() int {
	if h.config == nil || h.config.Recommend.MaxQueryIDs <= 0 {
		return 50
	}
	return h.config.Recommend.MaxQueryIDs
}

