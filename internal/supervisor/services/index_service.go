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

// IndexConn matches the *index.Store maintenance methods.
type IndexConn interface {
	Ping(ctx context.Context) error
	Checkpoint(ctx context.Context) error
}

// IndexKeepaliveService pings the index periodically and checkpoints the
// WAL so crash recovery stays cheap. Consecutive ping failures are logged
// but do not restart the service; the index reconnects through the
// database/sql pool on its own.
type IndexKeepaliveService struct {
	idx                IndexConn
	pingInterval       time.Duration
	checkpointInterval time.Duration
	name               string
}

// NewIndexKeepaliveService creates the keepalive with a 30s ping cadence
// and a 15m checkpoint cadence.
func NewIndexKeepaliveService(idx IndexConn) *IndexKeepaliveService {
	return &IndexKeepaliveService{
		idx:                idx,
		pingInterval:       30 * time.Second,
		checkpointInterval: 15 * time.Minute,
		name:               "index-keepalive",
	}
}

// Serve implements suture.Service.
func (s *IndexKeepaliveService) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.name)

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()
	checkpointTicker := time.NewTicker(s.checkpointInterval)
	defer checkpointTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pingTicker.C:
			if err := s.idx.Ping(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Index ping failed")
			}
		case <-checkpointTicker.C:
			if err := s.idx.Checkpoint(ctx); err != nil && ctx.Err() == nil {
				log.Warn().Err(err).Msg("Index checkpoint failed")
			}
		}
	}
}

// String implements fmt.Stringer. Suture uses it to identify the service
// in log messages.
func (s *IndexKeepaliveService) String() string {
	return s.name
}
