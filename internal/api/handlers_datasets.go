// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/cubescope/internal/models"
)

// HandleMonthDatasets serves the dataset footprints for a product month as
// a GeoJSON FeatureCollection. Datasets without a stored extent are
// omitted.
func (h *Handler) HandleMonthDatasets(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		respondError(w, r, http.StatusNotAcceptable, models.ErrCodeValidation, "only GeoJSON responses are available", nil)
		return
	}
	req, err := parseMonthRequest(r)
	if err != nil {
		h.respondParseError(w, r, err)
		return
	}
	h.executeCached(w, r, cachedQuery{
		name:        "month_datasets",
		params:      req,
		ttl:         h.cfg.Cache.SummaryTTL,
		contentType: contentTypeGeoJSON,
		raw:         true,
		fetch: func(ctx context.Context) (interface{}, error) {
			datasets, err := h.idx.DatasetsForMonth(ctx, req.Product, req.Year, req.Month)
			if err != nil {
				return nil, err
			}
			features := make([]models.Feature, 0, len(datasets))
			for _, ds := range datasets {
				features = append(features, datasetFeature(ds))
			}
			return models.NewFeatureCollection(features), nil
		},
	})
}

func datasetFeature(ds models.Dataset) models.Feature {
	props := map[string]interface{}{
		"product": ds.Product,
		"time":    ds.CenterTime.UTC().Format(time.RFC3339),
	}
	if ds.CreationTime != nil {
		props["creation_time"] = ds.CreationTime.UTC().Format(time.RFC3339)
	}
	return models.NewFeature(ds.ID, ds.Extent, props)
}

// HandleMonthFootprint serves the merged footprint of a product month as a
// single GeoJSON Feature carrying the dataset count. The precomputed
// summary row is preferred; months the summary pass has not covered yet
// fall back to a live union. Months with no datasets yield a 404.
func (h *Handler) HandleMonthFootprint(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		respondError(w, r, http.StatusNotAcceptable, models.ErrCodeValidation, "only GeoJSON responses are available", nil)
		return
	}
	req, err := parseMonthRequest(r)
	if err != nil {
		h.respondParseError(w, r, err)
		return
	}
	h.executeCached(w, r, cachedQuery{
		name:        "month_footprint",
		params:      req,
		ttl:         h.cfg.Cache.SummaryTTL,
		contentType: contentTypeGeoJSON,
		raw:         true,
		fetch: func(ctx context.Context) (interface{}, error) {
			fp, err := h.idx.SummaryFootprint(ctx, req.Product, req.Year, req.Month)
			if err != nil {
				fp, err = h.idx.MonthFootprint(ctx, req.Product, req.Year, req.Month)
			}
			if err != nil {
				return nil, err
			}
			feature := models.NewFeature("", fp.Footprint, map[string]interface{}{
				"product":       fp.Product,
				"year":          fp.Year,
				"month":         fp.Month,
				"dataset_count": fp.DatasetCount,
			})
			return feature, nil
		},
	})
}

// HandleSearchDatasets runs a filtered dataset search for one product.
func (h *Handler) HandleSearchDatasets(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		respondError(w, r, http.StatusNotAcceptable, models.ErrCodeValidation, "only JSON responses are available", nil)
		return
	}
	req, err := parseSearchRequest(r)
	if err != nil {
		h.respondParseError(w, r, err)
		return
	}
	h.executeCached(w, r, cachedQuery{
		name:   "dataset_search",
		params: req,
		fetch: func(ctx context.Context) (interface{}, error) {
			exists, err := h.idx.ProductExists(ctx, req.Product)
			if err != nil {
				return nil, err
			}
			if !exists {
				return nil, errProductNotFound
			}
			datasets, err := h.idx.SearchDatasets(ctx, req.filter())
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"product":  req.Product,
				"datasets": datasets,
				"count":    len(datasets),
				"limit":    req.Limit,
				"offset":   req.Offset,
			}, nil
		},
	})
}

// HandleDataset serves one dataset document with its immediate provenance.
func (h *Handler) HandleDataset(w http.ResponseWriter, r *http.Request) {
	if !acceptsJSON(r) {
		respondError(w, r, http.StatusNotAcceptable, models.ErrCodeValidation, "only JSON responses are available", nil)
		return
	}
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidation, "dataset id must be a UUID", nil)
		return
	}
	h.executeCached(w, r, cachedQuery{
		name:   "dataset",
		params: id,
		fetch: func(ctx context.Context) (interface{}, error) {
			return h.idx.Dataset(ctx, id)
		},
	})
}
