// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package services

import (
	"context"
)

// ContextHub matches *websocket.Hub's RunWithContext method without
// importing the websocket package.
type ContextHub interface {
	RunWithContext(ctx context.Context)
}

// WebSocketHubService wraps the WebSocket hub as a supervised service.
type WebSocketHubService struct {
	hub  ContextHub
	name string
}

// NewWebSocketHubService creates a new WebSocket hub service wrapper.
func NewWebSocketHubService(hub ContextHub) *WebSocketHubService {
	return &WebSocketHubService{
		hub:  hub,
		name: "websocket-hub",
	}
}

// Serve implements suture.Service. RunWithContext processes client
// registration and broadcasts until the context is canceled, closing all
// clients on the way out.
func (w *WebSocketHubService) Serve(ctx context.Context) error {
	w.hub.RunWithContext(ctx)
	return ctx.Err()
}

// String implements fmt.Stringer. Suture uses it to identify the service
// in log messages.
func (w *WebSocketHubService) String() string {
	return w.name
}
