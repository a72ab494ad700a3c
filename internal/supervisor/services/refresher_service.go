// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package services

import (
	"context"
	"time"

	"github.com/tomtom215/cubescope/internal/logging"
)

// RefreshFunc runs one summary refresh pass over the index.
type RefreshFunc func(ctx context.Context) error

// SummaryRefresherService periodically regenerates product summaries so
// footprints and timelines stay close to the index contents. One pass
// runs immediately on startup, then every interval.
type SummaryRefresherService struct {
	interval time.Duration
	refresh  RefreshFunc
	name     string
}

// NewSummaryRefresherService creates a refresher running refresh every
// interval.
func NewSummaryRefresherService(interval time.Duration, refresh RefreshFunc) *SummaryRefresherService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SummaryRefresherService{
		interval: interval,
		refresh:  refresh,
		name:     "summary-refresher",
	}
}

// Serve implements suture.Service. A failing pass is logged and retried
// on the next tick rather than crashing the service, so transient index
// errors do not trip the supervisor's failure threshold.
func (s *SummaryRefresherService) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.name)

	if err := s.refresh(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Initial summary refresh failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Summary refresh failed")
			}
		}
	}
}

// String implements fmt.Stringer. Suture uses it to identify the service
// in log messages.
func (s *SummaryRefresherService) String() string {
	return s.name
}
