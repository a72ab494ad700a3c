// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package generate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/cubescope/internal/logging"
	"github.com/tomtom215/cubescope/internal/models"
)

// DefaultWorkers is the summary generation concurrency when none is
// configured.
const DefaultWorkers = 3

// Summarizer is the slice of the index the runner needs. *index.Store
// implements it.
type Summarizer interface {
	ProductNames(ctx context.Context) ([]string, error)
	InitProduct(ctx context.Context, product string) error
	ResetSummaries(ctx context.Context, product string) error
	GetOrUpdateSummary(ctx context.Context, product string) (*models.SummaryResult, error)
}

// Options tunes a generation run.
type Options struct {
	// Workers is the number of products summarized concurrently.
	Workers int
	// RatePerSecond throttles product starts across all workers. Zero
	// means unthrottled.
	RatePerSecond float64
	// Force drops each product's stored summaries before regenerating,
	// so every period is recomputed from the datasets table.
	Force bool
}

// Result is the outcome for one product.
type Result struct {
	Product string
	Summary *models.SummaryResult
	Err     error
}

// Report aggregates a whole generation run.
type Report struct {
	Completed int
	Failed    int
	Results   []Result
	Duration  time.Duration
}

// Runner regenerates product summaries with a bounded worker pool.
type Runner struct {
	summarizer Summarizer
	opts       Options
}

// NewRunner creates a runner over the given summarizer.
func NewRunner(summarizer Summarizer, opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Runner{summarizer: summarizer, opts: opts}
}

// Run summarizes the named products, or every indexed product when the
// list is empty. Results are ordered by product name. The run stops
// early only on context cancellation; per-product failures are recorded
// and the remaining products still run.
func (r *Runner) Run(ctx context.Context, products []string) (*Report, error) {
	start := time.Now()

	if len(products) == 0 {
		var err error
		products, err = r.summarizer.ProductNames(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing products: %w", err)
		}
	}

	var limiter *rate.Limiter
	if r.opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.opts.RatePerSecond), 1)
	}

	log := logging.WithComponent("summary-runner")
	log.Info().Int("products", len(products)).Int("workers", r.opts.Workers).Msg("Starting summary generation")

	jobs := make(chan string)
	results := make(chan Result, len(products))

	var wg sync.WaitGroup
	for i := 0; i < r.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for product := range jobs {
				results <- r.runOne(ctx, limiter, product)
			}
		}()
	}

feed:
	for _, product := range products {
		select {
		case jobs <- product:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	report := &Report{Results: make([]Result, 0, len(products))}
	for res := range results {
		if res.Err != nil {
			report.Failed++
		} else {
			report.Completed++
		}
		report.Results = append(report.Results, res)
	}
	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Product < report.Results[j].Product
	})
	report.Duration = time.Since(start)

	log.Info().
		Int("completed", report.Completed).
		Int("failed", report.Failed).
		Dur("duration", report.Duration).
		Msg("Summary generation finished")
	return report, ctx.Err()
}

func (r *Runner) runOne(ctx context.Context, limiter *rate.Limiter, product string) Result {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return Result{Product: product, Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{Product: product, Err: err}
	}

	log := logging.WithComponent("summary-runner")
	start := time.Now()
	if err := r.summarizer.InitProduct(ctx, product); err != nil {
		log.Error().Err(err).Str("product", product).Msg("Product init failed")
		return Result{Product: product, Err: err}
	}
	if r.opts.Force {
		if err := r.summarizer.ResetSummaries(ctx, product); err != nil {
			log.Error().Err(err).Str("product", product).Msg("Summary reset failed")
			return Result{Product: product, Err: err}
		}
	}
	summary, err := r.summarizer.GetOrUpdateSummary(ctx, product)
	if err != nil {
		log.Error().Err(err).Str("product", product).Msg("Summary generation failed")
		return Result{Product: product, Err: err}
	}
	log.Info().
		Str("product", product).
		Int("periods", summary.Periods).
		Int("datasets", summary.DatasetCount).
		Bool("refreshed", summary.Refreshed).
		Dur("duration", time.Since(start)).
		Msg("Product summarized")
	return Result{Product: product, Summary: summary}
}
