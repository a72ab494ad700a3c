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

// Products lists all products with their active dataset counts, ordered
// by name.
func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	start := time.Now()
	query := `
		SELECT p.name, p.definition, p.default_crs, p.time_resolution,
		       COUNT(d.id) AS dataset_count
		FROM products p
		LEFT JOIN datasets d ON d.product = p.name AND NOT d.archived
		GROUP BY p.name, p.definition, p.default_crs, p.time_resolution
		ORDER BY p.name`

	rows, err := s.conn.QueryContext(ctx, query)
	metrics.RecordDBQuery("list", "products", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var definition, crs, resolution sql.NullString
		if err := rows.Scan(&p.Name, &definition, &crs, &resolution, &p.DatasetCount); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		if definition.Valid {
			p.Definition = json.RawMessage(definition.String)
		}
		p.DefaultCRS = crs.String
		p.TimeResolution = resolution.String
		products = append(products, p)
	}
	return products, rows.Err()
}

// ProductNames returns just the product names, for the generate CLI's
// --all mode.
func (s *Store) ProductNames(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing product names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning product name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ProductExists reports whether name is an indexed product.
func (s *Store) ProductExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx,
		`SELECT 1 FROM products WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking product %s: %w", name, err)
	}
	return true, nil
}

// UpsertProduct inserts or replaces a product definition.
func (s *Store) UpsertProduct(ctx context.Context, p models.Product) error {
	definition := "{}"
	if len(p.Definition) > 0 {
		definition = string(p.Definition)
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO products (name, definition, default_crs, time_resolution)
		VALUES (?, ?, ?, ?)`,
		p.Name, definition, p.DefaultCRS, p.TimeResolution)
	if err != nil {
		return fmt.Errorf("upserting product %s: %w", p.Name, err)
	}
	return nil
}
