// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/cubescope/internal/logging"
)

// DefaultConfigPaths are checked in order when CONFIG_PATH is not set.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/cubescope/config.yaml",
}

// sliceConfigPaths are koanf paths whose env values are comma-separated lists.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"security.trusted_proxies",
}

// defaultConfig returns the built-in defaults, the lowest priority layer.
func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			Timeout:        30 * time.Second,
			Environment:    "development",
			DefaultProduct: "ls7_level1_scene",
		},
		Database: DatabaseConfig{
			Path:                   "data/cubescope.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,
			PreserveInsertionOrder: true,
		},
		Cache: CacheConfig{
			SummaryTTL:      time.Duration(60*60*18) * time.Second,
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Refresh: RefreshConfig{
			Enabled:  false,
			Interval: 18 * time.Hour,
			Workers:  3,
		},
		API: APIConfig{
			SearchLimit:     500,
			DefaultPageSize: 100,
		},
		Security: SecurityConfig{
			AuthMode:        "none",
			TokenTTL:        24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf(koanf.New("."))
}

// LoadWithKoanf loads into the given koanf instance. Split out so tests can
// inspect the merged key set.
func LoadWithKoanf(k *koanf.Koanf) (*Config, error) {
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
		logging.Info().Str("path", path).Msg("Loaded config file")
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	processSliceFields(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first readable config file path, or "".
// CONFIG_PATH takes precedence over the default search paths.
func findConfigFile() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		logging.Warn().Str("path", path).Msg("CONFIG_PATH set but file not readable")
		return ""
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are skipped, which keeps unrelated
// environment noise out of the config tree.
func envTransformFunc(s string) string {
	mapping := map[string]string{
		"port":                "server.port",
		"host":                "server.host",
		"server_timeout":      "server.timeout",
		"environment":         "server.environment",
		"default_product":     "server.default_product",
		"db_path":             "database.path",
		"db_max_memory":       "database.max_memory",
		"db_threads":          "database.threads",
		"db_skip_indexes":     "database.skip_indexes",
		"cache_summary_ttl":   "cache.summary_ttl",
		"cache_default_ttl":   "cache.default_ttl",
		"refresh_enabled":     "refresh.enabled",
		"refresh_interval":    "refresh.interval",
		"refresh_workers":     "refresh.workers",
		"refresh_rate":        "refresh.rate_per_second",
		"search_limit":        "api.search_limit",
		"auth_mode":           "security.auth_mode",
		"jwt_secret":          "security.jwt_secret",
		"token_ttl":           "security.token_ttl",
		"admin_secret_hash":   "security.admin_secret_hash",
		"rate_limit_reqs":     "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",
		"trusted_proxies":     "security.trusted_proxies",
		"log_level":           "logging.level",
		"log_format":          "logging.format",
		"log_caller":          "logging.caller",
	}
	if path, ok := mapping[strings.ToLower(s)]; ok {
		return path
	}
	return ""
}

// processSliceFields normalizes comma-separated env values into slices.
// Env providers deliver "a,b,c" as a single string; slice-typed fields
// need it split before unmarshaling.
func processSliceFields(k *koanf.Koanf) {
	for _, path := range sliceConfigPaths {
		raw := k.Get(path)
		s, ok := raw.(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				values = append(values, trimmed)
			}
		}
		_ = k.Set(path, values)
	}
}

// WatchConfigFile re-runs onChange whenever the config file is modified.
// Returns a no-op cancel func when no config file is in use.
func WatchConfigFile(onChange func(*Config)) (func(), error) {
	path := findConfigFile()
	if path == "" {
		return func() {}, nil
	}

	f := file.Provider(path)
	err := f.Watch(func(_ interface{}, err error) {
		if err != nil {
			logging.Error().Err(err).Msg("Config file watch error")
			return
		}
		cfg, err := Load()
		if err != nil {
			logging.Error().Err(err).Msg("Config reload failed, keeping previous configuration")
			return
		}
		logging.Info().Str("path", path).Msg("Config file reloaded")
		onChange(cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("watching config file: %w", err)
	}
	return func() { _ = f.Unwatch() }, nil
}
