// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package index

import (
	"fmt"
	"strings"
	"time"
)

// SearchFilter narrows dataset searches. Zero values mean "no constraint";
// Limit is capped by the caller's hard search limit.
type SearchFilter struct {
	Products  []string
	Statuses  []string
	TimeBegin *time.Time
	TimeEnd   *time.Time

	// BBox is west, south, east, north in EPSG:4326. Nil means no
	// spatial constraint.
	BBox *[4]float64

	Limit  int
	Offset int
}

// appendInClause appends an IN (...) condition for a non-empty value list.
func appendInClause(columnName string, values []string, whereClauses *[]string, args *[]interface{}) {
	if len(values) == 0 {
		return
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		*args = append(*args, v)
	}
	*whereClauses = append(*whereClauses,
		fmt.Sprintf("%s IN (%s)", columnName, strings.Join(placeholders, ", ")))
}

// buildFilterConditions converts a filter into WHERE clauses and args.
// The bbox condition requires the spatial extension and is added by the
// caller when available.
func buildFilterConditions(filter *SearchFilter) ([]string, []interface{}) {
	var whereClauses []string
	var args []interface{}

	if filter == nil {
		return whereClauses, args
	}

	appendInClause("product", filter.Products, &whereClauses, &args)
	appendInClause("status", filter.Statuses, &whereClauses, &args)

	if filter.TimeBegin != nil {
		whereClauses = append(whereClauses, "center_time >= ?")
		args = append(args, filter.TimeBegin.UTC())
	}
	if filter.TimeEnd != nil {
		whereClauses = append(whereClauses, "center_time < ?")
		args = append(args, filter.TimeEnd.UTC())
	}

	return whereClauses, args
}

// buildFilterWhereClause renders the conditions as a WHERE body. The "1=1"
// base keeps the query valid with no conditions and makes appending safe.
func buildFilterWhereClause(filter *SearchFilter) (string, []interface{}) {
	whereClauses, args := buildFilterConditions(filter)
	clause := "1=1"
	if len(whereClauses) > 0 {
		clause += " AND " + strings.Join(whereClauses, " AND ")
	}
	return clause, args
}
