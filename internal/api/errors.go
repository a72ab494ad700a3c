// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"fmt"

	"github.com/tomtom215/cubescope/internal/index"
)

// errProductNotFound marks a search against a product that is not in the
// index. It unwraps to index.ErrProductUnknown so the shared error mapping
// applies.
var errProductNotFound = fmt.Errorf("product not indexed: %w", index.ErrProductUnknown)
