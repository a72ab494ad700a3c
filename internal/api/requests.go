// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/cubescope/internal/index"
	"github.com/tomtom215/cubescope/internal/validation"
)

// monthRequest identifies a product month, parsed from a {year}-{month}
// path segment such as "2017-5".
type monthRequest struct {
	Product string `validate:"required,max=128"`
	Year    int    `validate:"required,min=1970,max=2100"`
	Month   int    `validate:"required,min=1,max=12"`
}

// parseMonthRequest extracts and validates the product and period from the
// request path.
func parseMonthRequest(r *http.Request) (*monthRequest, error) {
	period := r.PathValue("period")
	parts := strings.SplitN(period, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid period: %q is not in year-month form", period)
	}
	year, err := parseIntParam(parts[0], "year")
	if err != nil {
		return nil, err
	}
	month, err := parseIntParam(parts[1], "month")
	if err != nil {
		return nil, err
	}
	req := &monthRequest{
		Product: r.PathValue("product"),
		Year:    year,
		Month:   month,
	}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}

// searchRequest holds the validated query parameters for a dataset search.
type searchRequest struct {
	Product   string     `validate:"required,max=128"`
	TimeBegin *time.Time `validate:"-"`
	TimeEnd   *time.Time `validate:"-"`
	BBox      *[4]float64
	Limit     int `validate:"min=0,max=500"`
	Offset    int `validate:"min=0"`
}

// searchTimeLayouts are the accepted formats for time range bounds, tried
// in order.
var searchTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseSearchTime(value, name string) (*time.Time, error) {
	for _, layout := range searchTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s: %q is not a recognized time", name, value)
}

// parseBBox parses a "west,south,east,north" bounding box in EPSG:4326.
func parseBBox(value string) (*[4]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox: expected 4 comma-separated values, got %d", len(parts))
	}
	var box [4]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid bbox: %q is not a number", part)
		}
		box[i] = f
	}
	if box[0] < -180 || box[2] > 180 || box[1] < -90 || box[3] > 90 {
		return nil, fmt.Errorf("invalid bbox: coordinates out of range")
	}
	if box[1] > box[3] {
		return nil, fmt.Errorf("invalid bbox: south bound exceeds north bound")
	}
	return &box, nil
}

// parseSearchRequest extracts and validates dataset search parameters from
// the request path and query string.
func parseSearchRequest(r *http.Request) (*searchRequest, error) {
	q := r.URL.Query()
	req := &searchRequest{
		Product: r.PathValue("product"),
		Limit:   index.HardSearchLimit,
	}

	if v := q.Get("time_begin"); v != "" {
		t, err := parseSearchTime(v, "time_begin")
		if err != nil {
			return nil, err
		}
		req.TimeBegin = t
	}
	if v := q.Get("time_end"); v != "" {
		t, err := parseSearchTime(v, "time_end")
		if err != nil {
			return nil, err
		}
		req.TimeEnd = t
	}
	if req.TimeBegin != nil && req.TimeEnd != nil && req.TimeEnd.Before(*req.TimeBegin) {
		return nil, fmt.Errorf("invalid time range: time_end precedes time_begin")
	}
	if v := q.Get("bbox"); v != "" {
		box, err := parseBBox(v)
		if err != nil {
			return nil, err
		}
		req.BBox = box
	}
	if v := q.Get("limit"); v != "" {
		n, err := parseIntParam(v, "limit")
		if err != nil {
			return nil, err
		}
		req.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := parseIntParam(v, "offset")
		if err != nil {
			return nil, err
		}
		req.Offset = n
	}

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return req, nil
}

// filter converts the request into an index search filter.
func (req *searchRequest) filter() *index.SearchFilter {
	return &index.SearchFilter{
		Products:  []string{req.Product},
		TimeBegin: req.TimeBegin,
		TimeEnd:   req.TimeEnd,
		BBox:      req.BBox,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
}
