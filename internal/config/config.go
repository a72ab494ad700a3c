// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package config loads and validates application configuration.
//
// Configuration is layered via Koanf v2 (highest priority wins):
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application settings.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Refresh  RefreshConfig  `koanf:"refresh"`
	API      APIConfig      `koanf:"api"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production"

	// DefaultProduct is where GET / redirects when no product is named.
	DefaultProduct string `koanf:"default_product"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = use NumCPU
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
	SkipIndexes            bool   `koanf:"skip_indexes"` // skip index creation for fast test setup
}

// CacheConfig holds response cache settings.
//
// SummaryTTL covers footprint, timeline, and dataset-month payloads, which
// only change when summaries are regenerated. The default matches the
// summary refresh cadence: 18 hours.
type CacheConfig struct {
	SummaryTTL      time.Duration `koanf:"summary_ttl"`
	DefaultTTL      time.Duration `koanf:"default_ttl"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// RefreshConfig holds periodic summary refresh settings.
type RefreshConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"`
	Workers  int           `koanf:"workers"` // parallel products per refresh pass

	// RatePerSecond throttles GetOrUpdateSummary calls across workers.
	// Zero disables throttling.
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// APIConfig holds API pagination and response limits.
type APIConfig struct {
	// SearchLimit caps dataset search results regardless of client input.
	SearchLimit     int `koanf:"search_limit"`
	DefaultPageSize int `koanf:"default_page_size"`
}

// SecurityConfig holds authentication and rate limiting settings.
type SecurityConfig struct {
	// AuthMode is "none" (default) or "token". Token mode guards the
	// admin refresh route with HS256 bearer tokens.
	AuthMode string `koanf:"auth_mode"`

	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	// AdminSecretHash is the bcrypt hash of the shared admin secret
	// exchanged for a token at /api/auth/token.
	AdminSecretHash string `koanf:"admin_secret_hash"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // trace, debug, info, warn, error
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development" || c.Server.Environment == ""
}

// Validate checks cross-field constraints that the struct tags cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}

	switch c.Security.AuthMode {
	case "none":
	case "token":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("jwt secret must be at least 32 characters in token auth mode")
		}
		if c.Security.AdminSecretHash == "" {
			return fmt.Errorf("admin secret hash is required in token auth mode")
		}
	default:
		return fmt.Errorf("auth mode must be \"none\" or \"token\", got %q", c.Security.AuthMode)
	}

	if c.Cache.SummaryTTL <= 0 {
		return fmt.Errorf("cache summary TTL must be positive, got %s", c.Cache.SummaryTTL)
	}
	if c.API.SearchLimit < 1 {
		return fmt.Errorf("api search limit must be at least 1, got %d", c.API.SearchLimit)
	}
	if c.Refresh.Enabled && c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh interval must be positive when refresh is enabled")
	}
	if c.Refresh.Workers < 1 {
		return fmt.Errorf("refresh workers must be at least 1, got %d", c.Refresh.Workers)
	}
	return nil
}
