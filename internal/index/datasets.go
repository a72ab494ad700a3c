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

// HardSearchLimit caps dataset search results regardless of the filter.
const HardSearchLimit = 500

// extentSelectExpr renders an extent column as GeoJSON when spatial is
// loaded; in degraded mode the column already holds text.
func (s *Store) extentSelectExpr(column string) string {
	if s.spatialAvailable {
		return fmt.Sprintf("ST_AsGeoJSON(%s)", column)
	}
	return column
}

// extentInsertExpr is the placeholder wrapper for writing GeoJSON extents.
func (s *Store) extentInsertExpr() string {
	if s.spatialAvailable {
		return "ST_GeomFromGeoJSON(?)"
	}
	return "?"
}

// datasetColumns renders the dataset column list, optionally qualified
// with a table alias.
func (s *Store) datasetColumns(alias string) string {
	p := ""
	if alias != "" {
		p = alias + "."
	}
	return fmt.Sprintf("%[1]sid, %[1]sproduct, %[1]sstatus, %[1]scenter_time, %[1]screation_time, %[1]smetadata, %[2]s, %[1]sarchived",
		p, s.extentSelectExpr(p+"extent"))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (models.Dataset, error) {
	var d models.Dataset
	var status, metadata, extent sql.NullString
	var creationTime sql.NullTime

	err := row.Scan(&d.ID, &d.Product, &status, &d.CenterTime, &creationTime, &metadata, &extent, &d.Archived)
	if err != nil {
		return d, err
	}

	d.Status = status.String
	if creationTime.Valid {
		t := creationTime.Time.UTC()
		d.CreationTime = &t
	}
	if metadata.Valid {
		d.Metadata = json.RawMessage(metadata.String)
	}
	if extent.Valid {
		d.Extent = json.RawMessage(extent.String)
	}
	d.CenterTime = d.CenterTime.UTC()
	return d, nil
}

// SearchDatasets returns datasets matching the filter, ordered by
// center_time then id for a stable paging order. Results are capped at
// HardSearchLimit rows.
func (s *Store) SearchDatasets(ctx context.Context, filter *SearchFilter) ([]models.Dataset, error) {
	whereClause, args := buildFilterWhereClause(filter)

	if filter != nil && filter.BBox != nil {
		if !s.spatialAvailable {
			return nil, ErrSpatialUnavailable
		}
		bbox := filter.BBox
		whereClause += " AND extent IS NOT NULL AND ST_Intersects(extent, ST_MakeEnvelope(?, ?, ?, ?))"
		args = append(args, bbox[0], bbox[1], bbox[2], bbox[3])
	}

	limit := HardSearchLimit
	if filter != nil && filter.Limit > 0 && filter.Limit < HardSearchLimit {
		limit = filter.Limit
	}
	offset := 0
	if filter != nil && filter.Offset > 0 {
		offset = filter.Offset
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM datasets
		WHERE NOT archived AND %s
		ORDER BY center_time, id
		LIMIT ? OFFSET ?`, s.datasetColumns(""), whereClause)
	args = append(args, limit, offset)

	start := time.Now()
	rows, err := s.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("search", "datasets", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("searching datasets: %w", err)
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

// Dataset returns a single dataset with one level of lineage each way.
func (s *Store) Dataset(ctx context.Context, id string) (*models.DatasetDocument, error) {
	query := fmt.Sprintf(`SELECT %s FROM datasets WHERE id = ?`, s.datasetColumns(""))

	start := time.Now()
	row := s.conn.QueryRowContext(ctx, query, id)
	d, err := scanDataset(row)
	metrics.RecordDBQuery("get", "datasets", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching dataset %s: %w", id, err)
	}

	doc := &models.DatasetDocument{Dataset: d}

	doc.Sources, err = s.Sources(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Derived, err = s.Derived(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Sources returns the immediate upstream datasets keyed by lineage
// classifier ("level1", "ortho", ...).
func (s *Store) Sources(ctx context.Context, id string) (map[string]models.Dataset, error) {
	query := fmt.Sprintf(`
		SELECT l.classifier, %s
		FROM dataset_lineage l
		JOIN datasets d ON d.id = l.source_id
		WHERE l.derived_id = ?
		ORDER BY l.classifier`, s.datasetColumns("d"))

	start := time.Now()
	rows, err := s.conn.QueryContext(ctx, query, id)
	metrics.RecordDBQuery("sources", "dataset_lineage", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("fetching sources of %s: %w", id, err)
	}
	defer rows.Close()

	sources := make(map[string]models.Dataset)
	for rows.Next() {
		var classifier string
		var d models.Dataset
		var status, metadata, extent sql.NullString
		var creationTime sql.NullTime
		err := rows.Scan(&classifier, &d.ID, &d.Product, &status, &d.CenterTime,
			&creationTime, &metadata, &extent, &d.Archived)
		if err != nil {
			return nil, fmt.Errorf("scanning source dataset: %w", err)
		}
		d.Status = status.String
		if creationTime.Valid {
			t := creationTime.Time.UTC()
			d.CreationTime = &t
		}
		if metadata.Valid {
			d.Metadata = json.RawMessage(metadata.String)
		}
		if extent.Valid {
			d.Extent = json.RawMessage(extent.String)
		}
		d.CenterTime = d.CenterTime.UTC()
		sources[classifier] = d
	}
	return sources, rows.Err()
}

// Derived returns the immediate downstream datasets, ordered by id.
func (s *Store) Derived(ctx context.Context, id string) ([]models.Dataset, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM dataset_lineage l
		JOIN datasets d ON d.id = l.derived_id
		WHERE l.source_id = ?
		ORDER BY d.id`, s.datasetColumns("d"))

	start := time.Now()
	rows, err := s.conn.QueryContext(ctx, query, id)
	metrics.RecordDBQuery("derived", "dataset_lineage", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("fetching derived of %s: %w", id, err)
	}
	defer rows.Close()

	var derived []models.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning derived dataset: %w", err)
		}
		derived = append(derived, d)
	}
	return derived, rows.Err()
}

// InsertDataset adds a dataset record. The extent, when present, is
// GeoJSON geometry.
func (s *Store) InsertDataset(ctx context.Context, d models.Dataset) error {
	metadata := "{}"
	if len(d.Metadata) > 0 {
		metadata = string(d.Metadata)
	}
	var extent interface{}
	if len(d.Extent) > 0 {
		extent = string(d.Extent)
	}

	query := fmt.Sprintf(`
		INSERT INTO datasets (id, product, status, center_time, creation_time, metadata, extent, archived)
		VALUES (?, ?, ?, ?, ?, ?, %s, ?)`, s.extentInsertExpr())

	_, err := s.conn.ExecContext(ctx, query,
		d.ID, d.Product, d.Status, d.CenterTime.UTC(), d.CreationTime, metadata, extent, d.Archived)
	if err != nil {
		return fmt.Errorf("inserting dataset %s: %w", d.ID, err)
	}
	return nil
}

// AddLineage records a provenance edge from source to derived.
func (s *Store) AddLineage(ctx context.Context, derivedID, sourceID, classifier string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO dataset_lineage (derived_id, source_id, classifier)
		VALUES (?, ?, ?)`, derivedID, sourceID, classifier)
	if err != nil {
		return fmt.Errorf("adding lineage %s -> %s: %w", sourceID, derivedID, err)
	}
	return nil
}
