// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/cubescope/internal/models"
)

// HandleProducts lists every indexed product with its dataset count.
func (h *Handler) HandleProducts(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		respondError(w, r, http.StatusNotAcceptable, models.ErrCodeValidation, "only JSON responses are available", nil)
		return
	}
	h.executeCached(w, r, cachedQuery{
		name: "products",
		fetch: func(ctx context.Context) (interface{}, error) {
			return h.idx.Products(ctx)
		},
	})
}
