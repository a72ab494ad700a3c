// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package main is the entry point for the Cubescope explorer server.
//
// Cubescope is a self-hosted web explorer for an Earth observation dataset
// index. It serves product listings, dataset footprints as GeoJSON,
// acquisition timelines, and dataset provenance over a REST API, with
// WebSocket notifications when summaries are regenerated.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Index: Open DuckDB with the spatial extension for footprint queries
//  3. WebSocket Hub: Enable real-time refresh notifications to connected clients
//  4. Authentication: Configure token auth or no-auth mode
//  5. HTTP Server: REST API behind a Chi router
//
// All long-running components run under a suture supervisor tree, so a
// crashing refresher restarts without taking the API down.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables
//   - Config file (config.yaml)
//   - Built-in defaults
//
// For token authentication:
//   - AUTH_MODE=token
//   - JWT_SECRET: 32+ character secret for token signing
//   - ADMIN_SECRET_HASH: bcrypt hash of the admin secret
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Closes WebSocket clients and the index connection
//
// # Example Usage
//
// Development against a local index:
//
//	export DB_PATH=./data/index.duckdb
//	export AUTH_MODE=none
//	./cubescope
//
// Production with token auth and periodic refresh:
//
//	export DB_PATH=/data/index.duckdb
//	export AUTH_MODE=token
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export ADMIN_SECRET_HASH='$2a$10$...'
//	export REFRESH_ENABLED=true
//	export REFRESH_INTERVAL=6h
//	./cubescope
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cubescope/internal/api"
	"github.com/tomtom215/cubescope/internal/auth"
	"github.com/tomtom215/cubescope/internal/cache"
	"github.com/tomtom215/cubescope/internal/config"
	"github.com/tomtom215/cubescope/internal/generate"
	"github.com/tomtom215/cubescope/internal/index"
	"github.com/tomtom215/cubescope/internal/logging"
	"github.com/tomtom215/cubescope/internal/supervisor"
	"github.com/tomtom215/cubescope/internal/supervisor/services"
	ws "github.com/tomtom215/cubescope/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Cubescope with supervisor tree")
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("default_product", cfg.Server.DefaultProduct).
		Msg("Configuration loaded")

	// Open the dataset index. A failed open is not fatal: the server still
	// comes up and reports 503 from index-backed endpoints so health probes
	// and /metrics keep working.
	var idx api.Index
	store, err := index.New(&cfg.Database)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open dataset index, serving degraded")
	} else {
		idx = store
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing index")
			}
		}()
		logging.Info().
			Bool("spatial", store.IsSpatialAvailable()).
			Msg("Dataset index opened")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	wsHub := ws.NewHub()

	var tokenManager *auth.TokenManager
	switch cfg.Security.AuthMode {
	case "token":
		tokenManager, err = auth.NewTokenManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize token manager")
		}
		logging.Info().Msg("Token authentication enabled")
	case "none":
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none)")
		logging.Warn().Msg("Admin endpoints are publicly accessible. Use only on isolated networks.")
	}

	responseCache := cache.New(cfg.Cache.DefaultTTL)
	defer responseCache.Stop()

	handler := api.NewHandler(idx, responseCache, wsHub, tokenManager, cfg)
	router := api.NewRouter(handler, api.NewMiddleware(cfg))

	// Reload logging settings and drop cached responses when the config
	// file changes. Other settings need a restart.
	unwatch, err := config.WatchConfigFile(func(next *config.Config) {
		logging.Init(logging.Config{
			Level:  next.Logging.Level,
			Format: next.Logging.Format,
			Caller: next.Logging.Caller,
		})
		handler.ClearCache()
	})
	if err != nil {
		logging.Error().Err(err).Msg("Config file watch unavailable")
	} else {
		defer unwatch()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	logging.Info().Msg("WebSocket hub added to supervisor tree")

	if store != nil {
		tree.AddDataService(services.NewIndexKeepaliveService(store))
	}

	if cfg.Refresh.Enabled && store != nil {
		runner := generate.NewRunner(store, generate.Options{
			Workers:       cfg.Refresh.Workers,
			RatePerSecond: cfg.Refresh.RatePerSecond,
		})
		refresh := func(ctx context.Context) error {
			report, err := runner.Run(ctx, nil)
			if err != nil {
				return err
			}
			handler.OnRefreshCompleted(report.Completed, report.Duration.Milliseconds())
			return nil
		}
		tree.AddDataService(services.NewSummaryRefresherService(cfg.Refresh.Interval, refresh))
		logging.Info().
			Dur("interval", cfg.Refresh.Interval).
			Int("workers", cfg.Refresh.Workers).
			Msg("Summary refresher added to supervisor tree")
	} else {
		logging.Info().Msg("Periodic summary refresh disabled")
	}

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
