// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cubescope/internal/auth"
	"github.com/tomtom215/cubescope/internal/logging"
	"github.com/tomtom215/cubescope/internal/models"
)

// maxAdminBodyBytes bounds admin request bodies.
const maxAdminBodyBytes = 64 * 1024

type tokenRequest struct {
	Secret string `json:"secret"`
}

// HandleIssueToken exchanges the admin secret for a short-lived bearer
// token. Only registered when auth mode is "token".
func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	if h.tokens == nil {
		respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "token authentication is not enabled", nil)
		return
	}
	var req tokenRequest
	body := http.MaxBytesReader(w, r.Body, maxAdminBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "request body must be JSON with a secret field", nil)
		return
	}
	if err := h.tokens.VerifyAdminSecret(req.Secret); err != nil {
		respondError(w, r, http.StatusUnauthorized, models.ErrCodeUnauthorized, "invalid admin secret", nil)
		return
	}
	token, expiresAt, err := h.tokens.IssueToken()
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeService, "failed to issue token", nil)
		return
	}
	respondEnvelope(w, r, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	}, 0, false)
}

// RequireAuth guards admin endpoints. With auth mode "none" requests pass
// through; otherwise a valid bearer token is required.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}
		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, models.ErrCodeUnauthorized, "missing bearer token", nil)
			return
		}
		if _, err := h.tokens.ValidateToken(token); err != nil {
			respondError(w, r, http.StatusUnauthorized, models.ErrCodeUnauthorized, "invalid or expired token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type refreshRequest struct {
	Products []string `json:"products"`
}

// HandleRefreshSummaries regenerates product summaries on demand. With an
// empty product list every indexed product is refreshed. On completion the
// response cache is cleared and connected clients are notified.
func (h *Handler) HandleRefreshSummaries(w http.ResponseWriter, r *http.Request) {
	if h.idx == nil {
		respondError(w, r, http.StatusServiceUnavailable, models.ErrCodeService, "dataset index is unavailable", nil)
		return
	}

	var req refreshRequest
	if r.Body != nil && r.ContentLength != 0 {
		body := http.MaxBytesReader(w, r.Body, maxAdminBodyBytes)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "request body must be JSON", nil)
			return
		}
	}

	ctx := r.Context()
	products := req.Products
	if len(products) == 0 {
		var err error
		products, err = h.idx.ProductNames(ctx)
		if err != nil {
			respondError(w, r, http.StatusInternalServerError, models.ErrCodeService, "failed to list products", nil)
			return
		}
	} else {
		// Reject unknown products before touching any summary, so a bad
		// list never leaves a partial refresh behind.
		for _, product := range products {
			exists, err := h.idx.ProductExists(ctx, product)
			if err != nil {
				respondError(w, r, http.StatusInternalServerError, models.ErrCodeService, "failed to check products", nil)
				return
			}
			if !exists {
				respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "unknown product: "+sanitizeLogValue(product), nil)
				return
			}
		}
	}

	start := time.Now()
	results := make([]*models.SummaryResult, 0, len(products))
	var failed []string
	for _, product := range products {
		result, err := h.idx.GetOrUpdateSummary(ctx, product)
		if err != nil {
			logger := logging.Ctx(ctx)
			logger.Error().Err(err).Str("product", product).Msg("Summary refresh failed")
			failed = append(failed, product)
			continue
		}
		results = append(results, result)
	}
	durationMS := time.Since(start).Milliseconds()

	h.OnRefreshCompleted(len(results), durationMS)

	respondEnvelope(w, r, http.StatusOK, map[string]interface{}{
		"refreshed":   results,
		"failed":      failed,
		"duration_ms": durationMS,
	}, durationMS, false)
}
