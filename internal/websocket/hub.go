// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package websocket maintains a hub of connected clients and broadcasts
// summary refresh notifications to them.
package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/cubescope/internal/logging"
	"github.com/tomtom215/cubescope/internal/metrics"
)

// Message types sent over the wire.
const (
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
	MessageTypeSummaryRefreshed = "summary_refreshed"
)

// Message is the JSON frame exchanged with clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub tracks connected clients and fans broadcast messages out to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an idle hub. Run it with RunWithContext.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext processes lifecycle and broadcast events until the
// context is canceled. Lifecycle events take priority over broadcasts so
// a disconnecting client never receives further messages.
func (h *Hub) RunWithContext(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return
		default:
		}

		select {
		case <-ctx.Done():
			h.closeAllClients()
			return
		case client := <-h.Register:
			h.registerClient(client)
		case client := <-h.Unregister:
			h.unregisterClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.TrackWSConnection(true)
	logging.Debug().Uint64("client_id", client.ID()).Int("clients", count).Msg("WebSocket client connected")
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	client.closeSend()
	metrics.TrackWSConnection(false)
	logging.Debug().Uint64("client_id", client.ID()).Int("clients", count).Msg("WebSocket client disconnected")
}

// broadcastToClients delivers a message to every client, dropping clients
// whose send buffers are full. Clients are visited in ID order so
// delivery order is deterministic.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].ID() < clients[j].ID() })

	var toRemove []*Client
	for _, client := range clients {
		if !client.trySend(message) {
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		logging.Warn().Uint64("client_id", client.ID()).Msg("Dropping slow WebSocket client")
		h.unregisterClient(client)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
		metrics.TrackWSConnection(false)
	}
	h.mu.Unlock()
	logging.Info().Msg("WebSocket hub stopped, all clients closed")
}

// BroadcastJSON queues a message for all clients without blocking. When
// the broadcast buffer is full the message is dropped with a warning;
// refresh notifications are advisory.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	select {
	case h.broadcast <- Message{Type: messageType, Data: data}:
	default:
		logging.Warn().Str("type", messageType).Msg("Broadcast channel full, message dropped")
	}
}

// BroadcastSummaryRefreshed notifies clients that product summaries were
// regenerated.
func (h *Hub) BroadcastSummaryRefreshed(products int, durationMs int64) {
	h.BroadcastJSON(MessageTypeSummaryRefreshed, map[string]interface{}{
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"products":    products,
		"duration_ms": durationMs,
	})
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
