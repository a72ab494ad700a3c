// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package models

import "github.com/goccy/go-json"

// GeoJSON container types. Geometry payloads are kept as raw JSON since
// they come straight out of the spatial extension already encoded.

// Feature is a GeoJSON Feature.
type Feature struct {
	Type       string                 `json:"type"`
	ID         string                 `json:"id,omitempty"`
	Geometry   json.RawMessage        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// FeatureCollection is a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeature builds a Feature with the mandatory type field set.
func NewFeature(id string, geometry json.RawMessage, properties map[string]interface{}) Feature {
	return Feature{
		Type:       "Feature",
		ID:         id,
		Geometry:   geometry,
		Properties: properties,
	}
}

// NewFeatureCollection builds a FeatureCollection; features may be empty
// but never nil so the JSON always carries a features array.
func NewFeatureCollection(features []Feature) FeatureCollection {
	if features == nil {
		features = []Feature{}
	}
	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
