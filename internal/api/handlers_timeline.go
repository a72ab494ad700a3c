// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/cubescope/internal/index"
	"github.com/tomtom215/cubescope/internal/models"
)

// HandleProductTimeline serves monthly dataset counts for one product.
func (h *Handler) HandleProductTimeline(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		respondError(w, r, http.StatusNotAcceptable, models.ErrCodeValidation, "only JSON responses are available", nil)
		return
	}
	product := r.PathValue("product")
	h.executeCached(w, r, cachedQuery{
		name:   "product_timeline",
		params: product,
		ttl:    h.cfg.Cache.SummaryTTL,
		fetch: func(ctx context.Context) (interface{}, error) {
			exists, err := h.idx.ProductExists(ctx, product)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, errProductNotFound
			}
			buckets, err := h.idx.TimelineYears(ctx, product, index.DefaultTimelineFromYear)
			if err != nil {
				return nil, err
			}
			return models.ProductTimeline{Product: product, Buckets: buckets}, nil
		},
	})
}

// HandlePlatformTimeline serves per-product monthly counts for every
// product captured by one platform.
func (h *Handler) HandlePlatformTimeline(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		respondError(w, r, http.StatusNotAcceptable, models.ErrCodeValidation, "only JSON responses are available", nil)
		return
	}
	platform := r.PathValue("platform")
	h.executeCached(w, r, cachedQuery{
		name:   "platform_timeline",
		params: platform,
		ttl:    h.cfg.Cache.SummaryTTL,
		fetch: func(ctx context.Context) (interface{}, error) {
			timelines, err := h.idx.TimelineByProduct(ctx, platform)
			if err != nil {
				return nil, err
			}
			if len(timelines) == 0 {
				return nil, index.ErrNotFound
			}
			return map[string]interface{}{
				"platform": platform,
				"products": timelines,
			}, nil
		},
	})
}
