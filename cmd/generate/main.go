// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

// Package main is the summary generation CLI.
//
// It regenerates the precomputed product summaries (time-bucketed counts
// and merged month footprints) that the explorer serves. Run it after bulk
// indexing, or on a schedule when the server's built-in refresher is
// disabled.
//
// Usage:
//
//	cubescope-generate [flags] [product ...]
//
// With no products listed, --all is required and every indexed product is
// summarized. The exit code is the number of products that failed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/cubescope/internal/config"
	"github.com/tomtom215/cubescope/internal/generate"
	"github.com/tomtom215/cubescope/internal/index"
	"github.com/tomtom215/cubescope/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		all          = flag.Bool("all", false, "summarize every indexed product")
		workers      = flag.Int("j", generate.DefaultWorkers, "number of products summarized concurrently")
		rate         = flag.Float64("rate", 0, "max product starts per second, 0 for unthrottled")
		force        = flag.Bool("force", false, "drop stored summaries and recompute every period")
		eventLogFile = flag.String("event-log-file", "", "append structured logs to this file instead of stderr")
	)
	flag.Parse()

	products := flag.Args()
	if len(products) == 0 && !*all {
		fmt.Fprintln(os.Stderr, "no products given; pass product names or --all")
		flag.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	}
	if *eventLogFile != "" {
		f, err := os.OpenFile(*eventLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening event log file: %v\n", err)
			return 2
		}
		defer f.Close()
		logCfg.Output = f
		logCfg.Format = "json"
	}
	logging.Init(logCfg)

	store, err := index.New(&cfg.Database)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to open dataset index")
		return 2
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing index")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner := generate.NewRunner(store, generate.Options{
		Workers:       *workers,
		RatePerSecond: *rate,
		Force:         *force,
	})
	report, err := runner.Run(ctx, products)
	if err != nil {
		logging.Error().Err(err).Msg("Generation run interrupted")
		if report == nil {
			return 2
		}
	}

	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", res.Product, res.Err)
		}
	}
	fmt.Printf("summarized %d products, %d failed in %s\n",
		report.Completed, report.Failed, report.Duration.Round(time.Millisecond))

	return report.Failed
}
