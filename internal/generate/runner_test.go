// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package generate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/cubescope/internal/models"
)

type stubSummarizer struct {
	mu       sync.Mutex
	products []string
	failing  map[string]bool
	calls    []string
	inits    []string
	resets   []string
}

func (s *stubSummarizer) ProductNames(ctx context.Context) ([]string, error) {
	return s.products, nil
}

func (s *stubSummarizer) InitProduct(ctx context.Context, product string) error {
	s.mu.Lock()
	s.inits = append(s.inits, product)
	s.mu.Unlock()
	return nil
}

func (s *stubSummarizer) ResetSummaries(ctx context.Context, product string) error {
	s.mu.Lock()
	s.resets = append(s.resets, product)
	s.mu.Unlock()
	return nil
}

func (s *stubSummarizer) GetOrUpdateSummary(ctx context.Context, product string) (*models.SummaryResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, product)
	s.mu.Unlock()

	if s.failing[product] {
		return nil, errors.New("summary failed")
	}
	return &models.SummaryResult{
		Product:      product,
		Periods:      2,
		DatasetCount: 10,
		Refreshed:    true,
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

func TestRunnerSummarizesAllProducts(t *testing.T) {
	t.Parallel()

	stub := &stubSummarizer{products: []string{"c", "a", "b"}}
	runner := NewRunner(stub, Options{Workers: 2})

	report, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Completed != 3 || report.Failed != 0 {
		t.Errorf("completed = %d failed = %d, want 3/0", report.Completed, report.Failed)
	}
	if len(report.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(report.Results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if report.Results[i].Product != want {
			t.Errorf("results[%d] = %q, want %q", i, report.Results[i].Product, want)
		}
	}
}

func TestRunnerExplicitProducts(t *testing.T) {
	t.Parallel()

	stub := &stubSummarizer{products: []string{"a", "b", "c"}}
	runner := NewRunner(stub, Options{})

	report, err := runner.Run(context.Background(), []string{"b"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Completed != 1 {
		t.Errorf("completed = %d, want 1", report.Completed)
	}
	if len(stub.calls) != 1 || stub.calls[0] != "b" {
		t.Errorf("calls = %v, want [b]", stub.calls)
	}
}

func TestRunnerRecordsFailures(t *testing.T) {
	t.Parallel()

	stub := &stubSummarizer{
		products: []string{"good", "bad"},
		failing:  map[string]bool{"bad": true},
	}
	runner := NewRunner(stub, Options{Workers: 1})

	report, err := runner.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Completed != 1 || report.Failed != 1 {
		t.Errorf("completed = %d failed = %d, want 1/1", report.Completed, report.Failed)
	}
	for _, res := range report.Results {
		if res.Product == "bad" && res.Err == nil {
			t.Error("failing product has no error")
		}
		if res.Product == "good" && res.Summary == nil {
			t.Error("successful product has no summary")
		}
	}
}

func TestRunnerCanceledContext(t *testing.T) {
	t.Parallel()

	stub := &stubSummarizer{products: []string{"a", "b", "c"}}
	runner := NewRunner(stub, Options{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runner.Run(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestRunnerInitsEveryProduct(t *testing.T) {
	t.Parallel()

	stub := &stubSummarizer{products: []string{"a", "b"}}
	runner := NewRunner(stub, Options{Workers: 1})

	if _, err := runner.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stub.inits) != 2 {
		t.Errorf("inits = %v, want both products", stub.inits)
	}
	if len(stub.resets) != 0 {
		t.Errorf("resets = %v, want none without force", stub.resets)
	}
}

func TestRunnerForceResetsSummaries(t *testing.T) {
	t.Parallel()

	stub := &stubSummarizer{products: []string{"a", "b"}}
	runner := NewRunner(stub, Options{Workers: 1, Force: true})

	if _, err := runner.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stub.inits) != 2 {
		t.Errorf("inits = %v, want both products", stub.inits)
	}
	if len(stub.resets) != 2 {
		t.Errorf("resets = %v, want both products", stub.resets)
	}
}

func TestRunnerDefaultWorkers(t *testing.T) {
	t.Parallel()

	runner := NewRunner(&stubSummarizer{}, Options{})
	if runner.opts.Workers != DefaultWorkers {
		t.Errorf("workers = %d, want %d", runner.opts.Workers, DefaultWorkers)
	}
}
