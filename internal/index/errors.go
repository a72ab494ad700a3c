// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package index

import "errors"

var (
	// ErrNotFound is returned when a dataset, month, or summary lookup
	// matches nothing.
	ErrNotFound = errors.New("not found")

	// ErrProductUnknown is returned when a named product is not indexed.
	ErrProductUnknown = errors.New("unknown product")

	// ErrSpatialUnavailable is returned by footprint operations when the
	// spatial extension failed to load.
	ErrSpatialUnavailable = errors.New("spatial extension unavailable")
)
