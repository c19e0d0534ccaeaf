// Tracksim - Audio Feature Track Similarity Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tracksim

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tracksim/internal/logging"
	"github.com/tomtom215/tracksim/internal/middleware"
)

// Router wires handlers and middleware into a chi mux.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware

	// requestTimeout bounds each request. Zero disables the timeout.
	requestTimeout time.Duration

	// mountAdmin controls whether admin routes exist at all.
	mountAdmin bool
}

// NewRouter creates a router. Admin routes are mounted when a token is
// configured, or outside production when it is not.
func NewRouter(handler *Handler, chiMW *ChiMiddleware) *Router {
	r := &Router{
		handler:       handler,
		chiMiddleware: chiMW,
	}
	if cfg := handler.config; cfg != nil {
		r.requestTimeout = cfg.Server.Timeout
		r.mountAdmin = cfg.Security.AdminToken != "" || !cfg.IsProduction()
	} else {
		r.mountAdmin = chiMW.config.AdminToken != ""
	}
	if !r.mountAdmin {
		logging.Warn().Msg("ADMIN_TOKEN not set in production; admin endpoints are disabled")
	}
	return r
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.handler.perfMon.Middleware)
	if router.requestTimeout > 0 {
		r.Use(chimiddleware.Timeout(router.requestTimeout))
	}

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.Health)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.Compression)

		r.Get("/test", router.handler.APITest)
		r.Get("/model", router.handler.ModelStatus)
		r.Get("/autocomplete", router.handler.Autocomplete)
		r.Post("/recommend", router.handler.Recommend)
	})

	if router.mountAdmin {
		r.Route("/api/v1/admin", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitAdmin())
			r.Use(APISecurityHeaders())
			r.Use(router.chiMiddleware.AdminAuth())

			r.Post("/retrain", router.handler.AdminRetrain)
			r.Get("/performance", router.handler.AdminPerformance)
		})
	}

	r.Handle("/metrics", promhttp.Handler())

	return r
}
