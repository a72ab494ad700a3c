// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/cubescope/internal/config"
	"github.com/tomtom215/cubescope/internal/logging"
	"github.com/tomtom215/cubescope/internal/middleware"
)

// Middleware builds the HTTP middleware chain from configuration.
type Middleware struct {
	cfg *config.Config
}

// NewMiddleware returns a middleware factory for the given configuration.
func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{cfg: cfg}
}

// CORS returns the cross-origin policy handler. With no configured
// origins, cross-origin requests are denied.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	origins := m.cfg.Security.CORSOrigins
	if len(origins) == 0 {
		origins = []string{}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "If-None-Match", middleware.RequestIDHeader},
		ExposedHeaders:   []string{"ETag", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// RateLimit limits requests per client IP for the general API surface.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	if m.cfg.Security.RateLimitDisabled {
		return passthrough
	}
	return httprate.LimitByIP(m.cfg.Security.RateLimitReqs, m.cfg.Security.RateLimitWindow)
}

// RateLimitHealth allows a higher request rate for health probes, which
// orchestrators poll frequently.
func (m *Middleware) RateLimitHealth() func(http.Handler) http.Handler {
	if m.cfg.Security.RateLimitDisabled {
		return passthrough
	}
	return httprate.LimitByIP(m.cfg.Security.RateLimitReqs*4, m.cfg.Security.RateLimitWindow)
}

// RateLimitAdmin applies a tight limit to admin and token endpoints to
// slow down secret guessing.
func (m *Middleware) RateLimitAdmin() func(http.Handler) http.Handler {
	if m.cfg.Security.RateLimitDisabled {
		return passthrough
	}
	return httprate.LimitByIP(10, time.Minute)
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// SecurityHeaders sets baseline response headers on every route.
func (m *Middleware) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// AccessLog emits one structured log line per request.
func (m *Middleware) AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logger := logging.Ctx(r.Context())
		logger.Debug().
			Str("method", r.Method).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
