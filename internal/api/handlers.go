// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"github.com/tomtom215/cubescope/internal/auth"
	"github.com/tomtom215/cubescope/internal/cache"
	"github.com/tomtom215/cubescope/internal/config"
	"github.com/tomtom215/cubescope/internal/index"
	"github.com/tomtom215/cubescope/internal/logging"
	"github.com/tomtom215/cubescope/internal/models"
	"github.com/tomtom215/cubescope/internal/websocket"
)

// Index is the view of the dataset index the HTTP layer depends on.
// *index.Store implements it; tests substitute a stub.
type Index interface {
	Ping(ctx context.Context) error
	Products(ctx context.Context) ([]models.Product, error)
	ProductExists(ctx context.Context, name string) (bool, error)
	ProductNames(ctx context.Context) ([]string, error)
	SearchDatasets(ctx context.Context, filter *index.SearchFilter) ([]models.Dataset, error)
	DatasetsForMonth(ctx context.Context, product string, year, month int) ([]models.Dataset, error)
	MonthFootprint(ctx context.Context, product string, year, month int) (*models.MonthFootprint, error)
	SummaryFootprint(ctx context.Context, product string, year, month int) (*models.MonthFootprint, error)
	TimelineYears(ctx context.Context, product string, fromYear int) ([]models.TimelineBucket, error)
	TimelineByProduct(ctx context.Context, platform string) ([]models.ProductTimeline, error)
	Dataset(ctx context.Context, id string) (*models.DatasetDocument, error)
	GetOrUpdateSummary(ctx context.Context, product string) (*models.SummaryResult, error)
}

// Handler carries the shared dependencies of all HTTP endpoints.
type Handler struct {
	idx       Index
	cache     *cache.Cache
	hub       *websocket.Hub
	tokens    *auth.TokenManager
	cfg       *config.Config
	startTime time.Time
}

// NewHandler builds the endpoint handler set. idx may be nil when the
// index failed to open; affected endpoints then return 503 instead of
// taking the whole process down. tokens is nil when auth mode is "none".
func NewHandler(idx Index, c *cache.Cache, hub *websocket.Hub, tokens *auth.TokenManager, cfg *config.Config) *Handler {
	return &Handler{
		idx:       idx,
		cache:     c,
		hub:       hub,
		tokens:    tokens,
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// ClearCache drops all cached responses, forcing fresh index queries.
func (h *Handler) ClearCache() {
	if h.cache != nil {
		h.cache.Clear()
	}
}

// OnRefreshCompleted is invoked after a summary refresh pass finishes. It
// invalidates cached responses and notifies connected clients.
func (h *Handler) OnRefreshCompleted(products int, durationMS int64) {
	h.ClearCache()
	if h.hub != nil {
		h.hub.BroadcastSummaryRefreshed(products, durationMS)
	}
	logger := logging.Logger()
	logger.Info().
		Int("products", products).
		Int64("duration_ms", durationMS).
		Msg("Summary refresh completed, response cache cleared")
}

// HandleRoot redirects to the dataset listing of the configured default
// product.
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	product := h.cfg.Server.DefaultProduct
	if product == "" {
		product = "ls7_level1_scene"
	}
	target := "/api/products/" + url.PathEscape(product) + "/datasets"
	http.Redirect(w, r, target, http.StatusFound)
}

var wsUpgrader = gorillaws.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	CheckOrigin:      checkWebSocketOrigin,
}

// checkWebSocketOrigin rejects cross-origin upgrade attempts. Browsers
// always send Origin; a missing header means a non-browser client, which
// is refused as well.
func checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// HandleWebSocket upgrades the connection and hands it to the hub.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, r, http.StatusServiceUnavailable, models.ErrCodeService, "websocket hub not running", nil)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger := logging.Ctx(r.Context())
		logger.Debug().Err(err).Msg("WebSocket upgrade rejected")
		return
	}
	client := websocket.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
