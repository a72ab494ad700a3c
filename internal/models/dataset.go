// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package models defines the data structures shared between the index
// store and the API layer.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Product is an entry in the product listing.
type Product struct {
	Name           string          `json:"name"`
	Definition     json.RawMessage `json:"definition,omitempty"`
	DefaultCRS     string          `json:"default_crs,omitempty"`
	TimeResolution string          `json:"time_resolution,omitempty"`
	DatasetCount   int             `json:"dataset_count"`
}

// Dataset is a single indexed dataset.
type Dataset struct {
	ID           string          `json:"id"`
	Product      string          `json:"product"`
	Status       string          `json:"status,omitempty"`
	CenterTime   time.Time       `json:"center_time"`
	CreationTime *time.Time      `json:"creation_time,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Archived     bool            `json:"archived,omitempty"`

	// Extent is the footprint as GeoJSON geometry; nil when the dataset
	// has no recorded extent.
	Extent json.RawMessage `json:"extent,omitempty"`
}

// DatasetDocument is the full single-dataset view including one level of
// lineage in each direction. Sources are keyed by lineage classifier
// ("level1", "ortho", ...).
type DatasetDocument struct {
	Dataset
	Sources map[string]Dataset `json:"sources,omitempty"`
	Derived []Dataset          `json:"derived,omitempty"`
}

// TimelineBucket is one month's dataset count.
type TimelineBucket struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

// ProductTimeline is the monthly timeline of a single product, used by
// the per-platform timeline view.
type ProductTimeline struct {
	Product string           `json:"product"`
	Buckets []TimelineBucket `json:"buckets"`
}

// MonthFootprint is the unioned footprint of a product's datasets within
// one calendar month.
type MonthFootprint struct {
	Product      string          `json:"product"`
	Year         int             `json:"year"`
	Month        int             `json:"month"`
	DatasetCount int             `json:"dataset_count"`
	Footprint    json.RawMessage `json:"footprint"`
}

// SummaryResult reports the outcome of a summary generation run for one
// product.
type SummaryResult struct {
	Product      string    `json:"product"`
	Periods      int       `json:"periods"`
	DatasetCount int       `json:"dataset_count"`
	Refreshed    bool      `json:"refreshed"`
	GeneratedAt  time.Time `json:"generated_at"`
}
