// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/cubescope/internal/middleware"
)

// Router assembles the HTTP surface from handlers and middleware.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter returns a router for the given handler set.
func NewRouter(handler *Handler, mw *Middleware) *Router {
	return &Router{handler: handler, middleware: mw}
}

// SetupChi wires all routes onto a chi mux and returns it.
func (rt *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Forwarded headers are only honored when the deployment declares a
	// proxy in front of the server.
	if len(rt.middleware.cfg.Security.TrustedProxies) > 0 {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(rt.middleware.SecurityHeaders)
	r.Use(rt.middleware.CORS())

	r.Get("/", rt.handler.HandleRoot)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", withPathValues(rt.handler.HandleWebSocket))

	r.Group(func(r chi.Router) {
		r.Use(rt.middleware.RateLimitHealth())
		r.Use(rt.middleware.AccessLog)
		r.Get("/api/health/live", withPathValues(rt.handler.HandleHealthLive))
		r.Get("/api/health/ready", withPathValues(rt.handler.HandleHealthReady))
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.middleware.RateLimit())
		r.Use(rt.middleware.AccessLog)
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))

		r.Get("/api/products", withPathValues(rt.handler.HandleProducts))
		r.Get("/api/products/{product}/datasets", withPathValues(rt.handler.HandleSearchDatasets))
		r.Get("/api/products/{product}/datasets.json", withPathValues(rt.handler.HandleSearchDatasets))
		r.Get("/api/products/{product}/timeline", withPathValues(rt.handler.HandleProductTimeline))
		r.Get("/api/platforms/{platform}/timeline", withPathValues(rt.handler.HandlePlatformTimeline))
		r.Get("/api/datasets/{product}/{period}", withPathValues(rt.handler.HandleMonthDatasets))
		r.Get("/api/datasets/{product}/{period}/poly", withPathValues(rt.handler.HandleMonthFootprint))
		r.Get("/api/datasets/{id}", withPathValues(rt.handler.HandleDataset))
	})

	r.Group(func(r chi.Router) {
		r.Use(rt.middleware.RateLimitAdmin())
		r.Use(rt.middleware.AccessLog)
		r.Post("/api/auth/token", withPathValues(rt.handler.HandleIssueToken))
		r.With(rt.handler.RequireAuth).
			Post("/api/admin/summaries/refresh", withPathValues(rt.handler.HandleRefreshSummaries))
	})

	return r
}

// withPathValues copies chi route parameters into the request's native
// path values so handlers stay mux-agnostic.
func withPathValues(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				r.SetPathValue(key, rctx.URLParams.Values[i])
			}
		}
		next(w, r)
	}
}

// chiMiddleware adapts an http.HandlerFunc middleware to chi's
// http.Handler form.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}
