// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cubescope/internal/metrics"
	"github.com/tomtom215/cubescope/internal/models"
)

// monthBounds returns the UTC civil-month interval [start, end).
func monthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// DatasetsForMonth returns the product's datasets with a recorded extent
// whose center_time falls in the given UTC month.
func (s *Store) DatasetsForMonth(ctx context.Context, product string, year, month int) ([]models.Dataset, error) {
	begin, end := monthBounds(year, month)

	query := fmt.Sprintf(`
		SELECT %s
		FROM datasets
		WHERE product = ?
		  AND NOT archived
		  AND extent IS NOT NULL
		  AND center_time >= ? AND center_time < ?
		ORDER BY center_time, id`, s.datasetColumns(""))

	start := time.Now()
	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx, product, begin, end)
	metrics.RecordDBQuery("month_datasets", "datasets", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("fetching datasets for %s %d-%02d: %w", product, year, month, err)
	}
	defer rows.Close()

	var datasets []models.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

// MonthFootprint returns the unioned footprint of the product's datasets
// in the given UTC month, with the dataset count. Returns ErrNotFound
// when no dataset with an extent exists in the month.
func (s *Store) MonthFootprint(ctx context.Context, product string, year, month int) (*models.MonthFootprint, error) {
	if !s.spatialAvailable {
		return nil, ErrSpatialUnavailable
	}

	begin, end := monthBounds(year, month)

	// The HAVING clause turns an empty month into sql.ErrNoRows instead
	// of a row with a NULL union.
	query := `
		SELECT ST_AsGeoJSON(ST_Union_Agg(extent)), COUNT(*)
		FROM datasets
		WHERE product = ?
		  AND NOT archived
		  AND extent IS NOT NULL
		  AND center_time >= ? AND center_time < ?
		HAVING COUNT(*) > 0`

	start := time.Now()
	stmt, err := s.getStmt(ctx, query)
	if err != nil {
		return nil, err
	}

	var footprint sql.NullString
	var count int
	err = stmt.QueryRowContext(ctx, product, begin, end).Scan(&footprint, &count)
	metrics.RecordDBQuery("month_footprint", "datasets", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("computing footprint for %s %d-%02d: %w", product, year, month, err)
	}

	mf := &models.MonthFootprint{
		Product:      product,
		Year:         year,
		Month:        month,
		DatasetCount: count,
	}
	if footprint.Valid {
		mf.Footprint = json.RawMessage(footprint.String)
	}
	return mf, nil
}
