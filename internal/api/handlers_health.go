// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/cubescope/internal/models"
)

// HandleHealthLive reports process liveness. It never touches the index.
func (h *Handler) HandleHealthLive(w http.ResponseWriter, r *http.Request) {
	respondEnvelope(w, r, http.StatusOK, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
	}, 0, false)
}

// HandleHealthReady reports readiness to serve queries by pinging the
// index.
func (h *Handler) HandleHealthReady(w http.ResponseWriter, r *http.Request) {
	if h.idx == nil {
		respondError(w, r, http.StatusServiceUnavailable, models.ErrCodeService, "dataset index is unavailable", nil)
		return
	}
	if err := h.idx.Ping(r.Context()); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, models.ErrCodeService, "dataset index is not responding", nil)
		return
	}
	respondEnvelope(w, r, http.StatusOK, map[string]interface{}{
		"ready":      true,
		"ws_clients": h.wsClientCount(),
	}, 0, false)
}

func (h *Handler) wsClientCount() int {
	if h.hub == nil {
		return 0
	}
	return h.hub.GetClientCount()
}
