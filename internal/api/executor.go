// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/cubescope/internal/cache"
	"github.com/tomtom215/cubescope/internal/index"
	"github.com/tomtom215/cubescope/internal/models"
	"github.com/tomtom215/cubescope/internal/validation"
)

// cachedQuery describes a read endpoint that serves from the response
// cache before touching the index.
type cachedQuery struct {
	// name is the cache key prefix, unique per endpoint.
	name string
	// params feed the cache key alongside name.
	params interface{}
	// ttl overrides the cache default when non-zero.
	ttl time.Duration
	// contentType overrides application/json when non-empty.
	contentType string
	// raw writes the payload without the response envelope. GeoJSON
	// documents are served raw so clients get a plain FeatureCollection.
	raw bool
	// fetch runs on a cache miss.
	fetch func(ctx context.Context) (interface{}, error)
}

// executeCached serves q from cache when possible, otherwise queries the
// index, stores the result, and responds. Index errors are translated to
// the matching HTTP status.
func (h *Handler) executeCached(w http.ResponseWriter, r *http.Request, q cachedQuery) {
	if h.idx == nil {
		respondError(w, r, http.StatusServiceUnavailable, models.ErrCodeService, "dataset index is unavailable", nil)
		return
	}

	contentType := q.contentType
	if contentType == "" {
		contentType = contentTypeJSON
	}

	key := cache.GenerateKey(q.name, q.params)
	if h.cache != nil {
		if data, ok := h.cache.Get(key); ok {
			h.respondResult(w, r, contentType, q.raw, data, 0, true)
			return
		}
	}

	start := time.Now()
	data, err := q.fetch(r.Context())
	if err != nil {
		h.respondFetchError(w, r, err)
		return
	}
	queryTimeMS := time.Since(start).Milliseconds()

	if h.cache != nil {
		if q.ttl > 0 {
			h.cache.SetWithTTL(key, data, q.ttl)
		} else {
			h.cache.Set(key, data)
		}
	}
	h.respondResult(w, r, contentType, q.raw, data, queryTimeMS, false)
}

func (h *Handler) respondResult(w http.ResponseWriter, r *http.Request, contentType string, raw bool, data interface{}, queryTimeMS int64, cached bool) {
	if raw {
		respondJSON(w, r, http.StatusOK, contentType, data)
		return
	}
	respondEnvelope(w, r, http.StatusOK, data, queryTimeMS, cached)
}

// respondParseError maps request parsing and validation failures to a 400
// with the VALIDATION_ERROR code.
func (h *Handler) respondParseError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
		return
	}
	respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, err.Error(), nil)
}

// respondFetchError maps index and validation failures onto the response
// envelope.
func (h *Handler) respondFetchError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
	case errors.Is(err, index.ErrNotFound):
		respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "no data for the requested resource", nil)
	case errors.Is(err, index.ErrProductUnknown):
		respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "unknown product", nil)
	case errors.Is(err, index.ErrSpatialUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, models.ErrCodeService, "spatial queries are unavailable on this index", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusServiceUnavailable, models.ErrCodeService, "query timed out", nil)
	default:
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeService, "index query failed", nil)
	}
}
