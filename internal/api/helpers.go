// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cubescope/internal/logging"
	"github.com/tomtom215/cubescope/internal/models"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeGeoJSON = "application/geo+json"

	// responseMaxAge is the browser cache window for successful responses.
	// Server-side caching has its own, much longer TTL.
	responseMaxAge = 60
)

// respondJSON writes v as a JSON response with an ETag derived from the
// body. Conditional requests that match the ETag get a 304 with no body.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, contentType string, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("Failed to marshal response")
		http.Error(w, `{"status":"error","error":{"code":"SERVICE_ERROR","message":"encoding failure"}}`, http.StatusInternalServerError)
		return
	}

	etag := generateETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", responseMaxAge))
	w.Header().Set("Vary", "Accept-Encoding")
	w.Header().Set("Content-Type", contentType)

	if match := r.Header.Get("If-None-Match"); match != "" && match == etag && status == http.StatusOK {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger := logging.Ctx(r.Context())
		logger.Debug().Err(err).Msg("Failed to write response body")
	}
}

// respondEnvelope wraps data in the standard response envelope before writing.
func respondEnvelope(w http.ResponseWriter, r *http.Request, status int, data interface{}, queryTimeMS int64, cached bool) {
	resp := models.NewSuccessResponse(data, queryTimeMS, cached)
	if id := logging.RequestIDFromContext(r.Context()); id != "" {
		resp.Metadata.RequestID = id
	}
	respondJSON(w, r, status, contentTypeJSON, resp)
}

// respondError writes an error envelope. The message is logged with
// sanitized values so client-supplied strings cannot forge log lines.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	logger := logging.Ctx(r.Context())
	logger.Warn().
		Int("status", status).
		Str("code", code).
		Str("path", sanitizeLogValue(r.URL.Path)).
		Msg(sanitizeLogValue(message))

	resp := models.NewErrorResponse(code, message, details)
	if id := logging.RequestIDFromContext(r.Context()); id != "" {
		resp.Metadata.RequestID = id
	}
	respondJSON(w, r, status, contentTypeJSON, resp)
}

// generateETag produces a strong ETag from the response body using FNV-1a.
func generateETag(body []byte) string {
	h := fnv.New64a()
	h.Write(body)
	return fmt.Sprintf(`"%x"`, h.Sum64())
}

// sanitizeLogValue strips control characters that could be used to inject
// fake entries into log output.
func sanitizeLogValue(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// parseIntParam parses a required integer path or query value.
func parseIntParam(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", name, value)
	}
	return n, nil
}

// acceptsJSON reports whether the request can receive a JSON response.
// A client that only asks for HTML gets a 406 from negotiated routes.
func acceptsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mt := strings.TrimSpace(part)
		if i := strings.Index(mt, ";"); i >= 0 {
			mt = strings.TrimSpace(mt[:i])
		}
		switch mt {
		case "*/*", "application/*", contentTypeJSON, contentTypeGeoJSON:
			return true
		}
	}
	return false
}
