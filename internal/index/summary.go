// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package index

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/cubescope/internal/logging"
	"github.com/tomtom215/cubescope/internal/metrics"
	"github.com/tomtom215/cubescope/internal/models"
)

// InitProduct prepares a product for summary generation. Idempotent;
// existing summary rows are kept so change detection still works.
func (s *Store) InitProduct(ctx context.Context, product string) error {
	exists, err := s.ProductExists(ctx, product)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrProductUnknown, product)
	}
	return nil
}

// ResetSummaries drops a product's stored summary rows so the next
// GetOrUpdateSummary recomputes every period from scratch.
func (s *Store) ResetSummaries(ctx context.Context, product string) error {
	_, err := s.conn.ExecContext(ctx,
		`DELETE FROM product_summaries WHERE product = ?`, product)
	if err != nil {
		return fmt.Errorf("clearing summaries for %s: %w", product, err)
	}
	return nil
}

// GetOrUpdateSummary recomputes the per-month summary rows (dataset count
// plus unioned footprint) for a product. Refreshed reports whether the
// stored rows actually changed.
func (s *Store) GetOrUpdateSummary(ctx context.Context, product string) (*models.SummaryResult, error) {
	start := time.Now()

	exists, err := s.ProductExists(ctx, product)
	if err != nil {
		return nil, err
	}
	if !exists {
		metrics.RecordSummaryRefresh("unknown_product", time.Since(start))
		return nil, fmt.Errorf("%w: %s", ErrProductUnknown, product)
	}

	var storedPeriods, storedCount int
	err = s.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(dataset_count), 0)
		FROM product_summaries WHERE product = ?`, product).Scan(&storedPeriods, &storedCount)
	if err != nil {
		return nil, fmt.Errorf("reading stored summaries for %s: %w", product, err)
	}

	footprintExpr := "NULL"
	if s.spatialAvailable {
		footprintExpr = "ST_Union_Agg(extent)"
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting summary transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM product_summaries WHERE product = ?`, product); err != nil {
		return nil, fmt.Errorf("clearing summaries for %s: %w", product, err)
	}

	generatedAt := time.Now().UTC()
	insert := fmt.Sprintf(`
		INSERT INTO product_summaries (product, period, dataset_count, footprint, generated_at)
		SELECT product,
		       strftime(date_trunc('month', center_time), '%%Y-%%m'),
		       COUNT(*),
		       %s,
		       ?
		FROM datasets
		WHERE product = ? AND NOT archived
		GROUP BY 1, 2`, footprintExpr)

	if _, err := tx.ExecContext(ctx, insert, generatedAt, product); err != nil {
		metrics.RecordSummaryRefresh("error", time.Since(start))
		return nil, fmt.Errorf("writing summaries for %s: %w", product, err)
	}

	var freshPeriods, freshCount int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(dataset_count), 0)
		FROM product_summaries WHERE product = ?`, product).Scan(&freshPeriods, &freshCount)
	if err != nil {
		return nil, fmt.Errorf("reading fresh summaries for %s: %w", product, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing summaries for %s: %w", product, err)
	}

	refreshed := freshPeriods != storedPeriods || freshCount != storedCount
	outcome := "unchanged"
	if refreshed {
		outcome = "refreshed"
	}
	metrics.RecordSummaryRefresh(outcome, time.Since(start))

	logging.Debug().
		Str("product", product).
		Int("periods", freshPeriods).
		Int("datasets", freshCount).
		Bool("refreshed", refreshed).
		Msg("Summary generated")

	return &models.SummaryResult{
		Product:      product,
		Periods:      freshPeriods,
		DatasetCount: freshCount,
		Refreshed:    refreshed,
		GeneratedAt:  generatedAt,
	}, nil
}

// SummaryFootprint reads a precomputed month footprint from the summary
// table. Falls back to ErrNotFound when the period has no row.
func (s *Store) SummaryFootprint(ctx context.Context, product string, year, month int) (*models.MonthFootprint, error) {
	period := fmt.Sprintf("%04d-%02d", year, month)

	query := fmt.Sprintf(`
		SELECT dataset_count, %s
		FROM product_summaries
		WHERE product = ? AND period = ?`, s.extentSelectExpr("footprint"))

	var count int
	var footprint *string
	err := s.conn.QueryRowContext(ctx, query, product, period).Scan(&count, &footprint)
	if err != nil {
		// Treat both missing rows and scan errors on absent periods the
		// same way; callers fall back to the live computation.
		return nil, ErrNotFound
	}

	mf := &models.MonthFootprint{
		Product:      product,
		Year:         year,
		Month:        month,
		DatasetCount: count,
	}
	if footprint != nil {
		mf.Footprint = []byte(*footprint)
	}
	return mf, nil
}
