// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package index

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cubescope/internal/metrics"
	"github.com/tomtom215/cubescope/internal/models"
)

// DefaultTimelineFromYear is where timelines start when the caller gives
// no lower bound. Landsat 5 imagery over Australia begins around then.
const DefaultTimelineFromYear = 1986

// TimelineYears returns monthly dataset counts for a product from
// fromYear (DefaultTimelineFromYear when <= 0) up to now. Only months
// with at least one dataset appear; datasets dated in the future do not.
func (s *Store) TimelineYears(ctx context.Context, product string, fromYear int) ([]models.TimelineBucket, error) {
	if fromYear <= 0 {
		fromYear = DefaultTimelineFromYear
	}
	begin := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Now().UTC()

	query := `
		SELECT CAST(date_part('year', center_time) AS INTEGER),
		       CAST(date_part('month', center_time) AS INTEGER),
		       COUNT(*)
		FROM datasets
		WHERE product = ? AND NOT archived AND center_time >= ? AND center_time < ?
		GROUP BY 1, 2
		ORDER BY 1, 2`

	start := time.Now()
	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, product, begin, end)
	metrics.RecordDBQuery("timeline", "datasets", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("computing timeline for %s: %w", product, err)
	}
	defer rows.Close()

	var buckets []models.TimelineBucket
	for rows.Next() {
		var b models.TimelineBucket
		if err := rows.Scan(&b.Year, &b.Month, &b.Count); err != nil {
			return nil, fmt.Errorf("scanning timeline bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// TimelineByProduct returns per-product monthly counts for every product
// whose definition names the given platform, ordered by product then
// time. The same bounds as TimelineYears apply: from the default start
// year up to now.
func (s *Store) TimelineByProduct(ctx context.Context, platform string) ([]models.ProductTimeline, error) {
	if !s.jsonAvailable {
		return nil, fmt.Errorf("platform timeline requires the json extension")
	}
	begin := time.Date(DefaultTimelineFromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Now().UTC()

	query := `
		SELECT d.product,
		       CAST(date_part('year', d.center_time) AS INTEGER),
		       CAST(date_part('month', d.center_time) AS INTEGER),
		       COUNT(*)
		FROM datasets d
		JOIN products p ON p.name = d.product
		WHERE NOT d.archived
		  AND d.center_time >= ? AND d.center_time < ?
		  AND json_extract_string(p.definition, '$.metadata.platform.code') = ?
		GROUP BY 1, 2, 3
		ORDER BY 1, 2, 3`

	start := time.Now()
	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, begin, end, platform)
	metrics.RecordDBQuery("platform_timeline", "datasets", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("computing platform timeline for %s: %w", platform, err)
	}
	defer rows.Close()

	var timelines []models.ProductTimeline
	var current *models.ProductTimeline
	for rows.Next() {
		var product string
		var b models.TimelineBucket
		if err := rows.Scan(&product, &b.Year, &b.Month, &b.Count); err != nil {
			return nil, fmt.Errorf("scanning platform timeline: %w", err)
		}
		if current == nil || current.Product != product {
			timelines = append(timelines, models.ProductTimeline{Product: product})
			current = &timelines[len(timelines)-1]
		}
		current.Buckets = append(current.Buckets, b)
	}
	return timelines, rows.Err()
}
