// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cubescope/internal/cache"
	"github.com/tomtom215/cubescope/internal/config"
	"github.com/tomtom215/cubescope/internal/index"
	"github.com/tomtom215/cubescope/internal/models"
)

type stubIndex struct {
	products         []models.Product
	datasets         []models.Dataset
	footprint        *models.MonthFootprint
	summaryFootprint *models.MonthFootprint
	buckets          []models.TimelineBucket
	timelines        []models.ProductTimeline
	document         *models.DatasetDocument
	summary          *models.SummaryResult
	pingErr          error
	searchCalls      int
	footprintCalls   int
	summaryCalls     int
}

func (s *stubIndex) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubIndex) Products(ctx context.Context) ([]models.Product, error) {
	return s.products, nil
}

func (s *stubIndex) ProductExists(ctx context.Context, name string) (bool, error) {
	for _, p := range s.products {
		if p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubIndex) ProductNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.products))
	for _, p := range s.products {
		names = append(names, p.Name)
	}
	return names, nil
}

func (s *stubIndex) SearchDatasets(ctx context.Context, filter *index.SearchFilter) ([]models.Dataset, error) {
	s.searchCalls++
	end := filter.Offset + filter.Limit
	if filter.Offset >= len(s.datasets) {
		return nil, nil
	}
	if end > len(s.datasets) {
		end = len(s.datasets)
	}
	return s.datasets[filter.Offset:end], nil
}

func (s *stubIndex) DatasetsForMonth(ctx context.Context, product string, year, month int) ([]models.Dataset, error) {
	return s.datasets, nil
}

func (s *stubIndex) MonthFootprint(ctx context.Context, product string, year, month int) (*models.MonthFootprint, error) {
	s.footprintCalls++
	if s.footprint == nil {
		return nil, index.ErrNotFound
	}
	return s.footprint, nil
}

func (s *stubIndex) SummaryFootprint(ctx context.Context, product string, year, month int) (*models.MonthFootprint, error) {
	if s.summaryFootprint == nil {
		return nil, index.ErrNotFound
	}
	return s.summaryFootprint, nil
}

func (s *stubIndex) TimelineYears(ctx context.Context, product string, fromYear int) ([]models.TimelineBucket, error) {
	return s.buckets, nil
}

func (s *stubIndex) TimelineByProduct(ctx context.Context, platform string) ([]models.ProductTimeline, error) {
	return s.timelines, nil
}

func (s *stubIndex) Dataset(ctx context.Context, id string) (*models.DatasetDocument, error) {
	if s.document == nil {
		return nil, index.ErrNotFound
	}
	return s.document, nil
}

func (s *stubIndex) GetOrUpdateSummary(ctx context.Context, product string) (*models.SummaryResult, error) {
	s.summaryCalls++
	if s.summary == nil {
		return nil, index.ErrProductUnknown
	}
	return s.summary, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           8080,
			Host:           "127.0.0.1",
			Timeout:        15 * time.Second,
			DefaultProduct: "ls7_level1_scene",
		},
		Cache: config.CacheConfig{
			SummaryTTL:      18 * time.Hour,
			DefaultTTL:      5 * time.Minute,
			CleanupInterval: time.Minute,
		},
		API: config.APIConfig{SearchLimit: 500, DefaultPageSize: 100},
		Security: config.SecurityConfig{
			AuthMode:        "none",
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
		},
	}
}

func newTestStub() *stubIndex {
	center := time.Date(2017, 5, 10, 23, 30, 0, 0, time.UTC)
	return &stubIndex{
		products: []models.Product{
			{Name: "ls7_level1_scene", TimeResolution: "month", DatasetCount: 3},
			{Name: "ls8_nbar_scene", TimeResolution: "month", DatasetCount: 1},
		},
		datasets: []models.Dataset{
			{
				ID:         "5a8a4e65-32a2-4a68-962e-c4f38e1a7a48",
				Product:    "ls7_level1_scene",
				Status:     "active",
				CenterTime: center,
				Extent:     json.RawMessage(`{"type":"Polygon","coordinates":[[[146,-35],[147,-35],[147,-34],[146,-34],[146,-35]]]}`),
			},
			{
				ID:         "7c65d2e1-04bb-4bcb-8d28-c0c43e6a0a11",
				Product:    "ls7_level1_scene",
				Status:     "active",
				CenterTime: center.Add(24 * time.Hour),
			},
		},
		footprint: &models.MonthFootprint{
			Product:      "ls7_level1_scene",
			Year:         2017,
			Month:        5,
			DatasetCount: 3,
			Footprint:    json.RawMessage(`{"type":"Polygon","coordinates":[[[146,-35],[148,-35],[148,-33],[146,-33],[146,-35]]]}`),
		},
		buckets: []models.TimelineBucket{
			{Year: 2017, Month: 5, Count: 3},
			{Year: 2017, Month: 6, Count: 2},
		},
		timelines: []models.ProductTimeline{
			{Product: "ls7_level1_scene", Buckets: []models.TimelineBucket{{Year: 2017, Month: 5, Count: 3}}},
		},
		summary: &models.SummaryResult{
			Product:      "ls7_level1_scene",
			Periods:      2,
			DatasetCount: 5,
			Refreshed:    true,
			GeneratedAt:  time.Now().UTC(),
		},
	}
}

func newTestHandler(t *testing.T, stub *stubIndex, cfg *config.Config) *Handler {
	t.Helper()

	c := cache.New(cfg.Cache.DefaultTTL)
	t.Cleanup(c.Stop)
	return NewHandler(stub, c, nil, nil, cfg)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding envelope: %v\nbody: %s", err, rec.Body.String())
	}
	return &resp
}

func TestHandleProducts(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	h.HandleProducts(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Status != "success" {
		t.Errorf("status = %q, want success", resp.Status)
	}
	products, ok := resp.Data.([]interface{})
	if !ok || len(products) != 2 {
		t.Fatalf("data = %T with %v, want 2 products", resp.Data, resp.Data)
	}
}

func TestHandleProductsRejectsHTMLOnly(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	h.HandleProducts(rec, req)

	if rec.Code != http.StatusNotAcceptable {
		t.Fatalf("status = %d, want 406", rec.Code)
	}
}

func TestHandleMonthDatasetsGeoJSON(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/ls7_level1_scene/2017-5", nil)
	req.SetPathValue("product", "ls7_level1_scene")
	req.SetPathValue("period", "2017-5")
	rec := httptest.NewRecorder()
	h.HandleMonthDatasets(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != contentTypeGeoJSON {
		t.Errorf("content type = %q, want %q", got, contentTypeGeoJSON)
	}
	var fc models.FeatureCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decoding FeatureCollection: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %q, want FeatureCollection", fc.Type)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}
	if fc.Features[0].Properties["product"] != "ls7_level1_scene" {
		t.Errorf("feature product = %v", fc.Features[0].Properties["product"])
	}
}

func TestHandleMonthDatasetsInvalidPeriod(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	for _, period := range []string{"2017", "2017-13", "1800-5", "abc-def"} {
		req := httptest.NewRequest(http.MethodGet, "/api/datasets/ls7_level1_scene/"+period, nil)
		req.SetPathValue("product", "ls7_level1_scene")
		req.SetPathValue("period", period)
		rec := httptest.NewRecorder()
		h.HandleMonthDatasets(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("period %q: status = %d, want 400", period, rec.Code)
		}
	}
}

func TestHandleMonthFootprint(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/ls7_level1_scene/2017-5/poly", nil)
	req.SetPathValue("product", "ls7_level1_scene")
	req.SetPathValue("period", "2017-5")
	rec := httptest.NewRecorder()
	h.HandleMonthFootprint(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var feature models.Feature
	if err := json.Unmarshal(rec.Body.Bytes(), &feature); err != nil {
		t.Fatalf("decoding Feature: %v", err)
	}
	if feature.Type != "Feature" {
		t.Errorf("type = %q, want Feature", feature.Type)
	}
	if got := feature.Properties["dataset_count"]; got != float64(3) {
		t.Errorf("dataset_count = %v, want 3", got)
	}
}

func TestHandleMonthFootprintPrefersSummary(t *testing.T) {
	t.Parallel()

	stub := newTestStub()
	stub.summaryFootprint = &models.MonthFootprint{
		Product:      "ls7_level1_scene",
		Year:         2017,
		Month:        5,
		DatasetCount: 7,
		Footprint:    json.RawMessage(`{"type":"Polygon","coordinates":[[[146,-35],[148,-35],[148,-33],[146,-33],[146,-35]]]}`),
	}
	h := newTestHandler(t, stub, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/ls7_level1_scene/2017-5/poly", nil)
	req.SetPathValue("product", "ls7_level1_scene")
	req.SetPathValue("period", "2017-5")
	rec := httptest.NewRecorder()
	h.HandleMonthFootprint(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	var feature models.Feature
	if err := json.Unmarshal(rec.Body.Bytes(), &feature); err != nil {
		t.Fatalf("decoding Feature: %v", err)
	}
	if got := feature.Properties["dataset_count"]; got != float64(7) {
		t.Errorf("dataset_count = %v, want 7 from the summary row", got)
	}
	if stub.footprintCalls != 0 {
		t.Errorf("live union ran %d times, want 0 when the summary row exists", stub.footprintCalls)
	}
}

func TestHandleMonthFootprintEmptyMonth(t *testing.T) {
	t.Parallel()

	stub := newTestStub()
	stub.footprint = nil
	h := newTestHandler(t, stub, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/ls7_level1_scene/2001-1/poly", nil)
	req.SetPathValue("product", "ls7_level1_scene")
	req.SetPathValue("period", "2001-1")
	rec := httptest.NewRecorder()
	h.HandleMonthFootprint(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != models.ErrCodeNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", resp.Error)
	}
}

func TestHandleSearchDatasets(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/products/ls7_level1_scene/datasets?limit=1&offset=1", nil)
	req.SetPathValue("product", "ls7_level1_scene")
	rec := httptest.NewRecorder()
	h.HandleSearchDatasets(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	if got := data["count"]; got != float64(1) {
		t.Errorf("count = %v, want 1", got)
	}
	if got := data["offset"]; got != float64(1) {
		t.Errorf("offset = %v, want 1", got)
	}
}

func TestHandleSearchDatasetsUnknownProduct(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/products/no_such_product/datasets", nil)
	req.SetPathValue("product", "no_such_product")
	rec := httptest.NewRecorder()
	h.HandleSearchDatasets(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSearchDatasetsRejectsBadParams(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	cases := []string{
		"limit=501",
		"offset=-1",
		"bbox=1,2,3",
		"bbox=200,0,210,10",
		"time_begin=yesterday",
		"time_begin=2018-01-01&time_end=2017-01-01",
	}
	for _, query := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/products/ls7_level1_scene/datasets?"+query, nil)
		req.SetPathValue("product", "ls7_level1_scene")
		rec := httptest.NewRecorder()
		h.HandleSearchDatasets(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("query %q: status = %d, want 400", query, rec.Code)
		}
	}
}

func TestHandleProductTimeline(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/products/ls7_level1_scene/timeline", nil)
	req.SetPathValue("product", "ls7_level1_scene")
	rec := httptest.NewRecorder()
	h.HandleProductTimeline(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	data := resp.Data.(map[string]interface{})
	buckets := data["buckets"].([]interface{})
	if len(buckets) != 2 {
		t.Errorf("buckets = %d, want 2", len(buckets))
	}
}

func TestHandlePlatformTimelineUnknown(t *testing.T) {
	t.Parallel()

	stub := newTestStub()
	stub.timelines = nil
	h := newTestHandler(t, stub, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/platforms/SENTINEL_2/timeline", nil)
	req.SetPathValue("platform", "SENTINEL_2")
	rec := httptest.NewRecorder()
	h.HandlePlatformTimeline(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleDatasetRejectsNonUUID(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/not-a-uuid", nil)
	req.SetPathValue("id", "not-a-uuid")
	rec := httptest.NewRecorder()
	h.HandleDataset(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExecutorServesFromCache(t *testing.T) {
	t.Parallel()

	stub := newTestStub()
	h := newTestHandler(t, stub, testConfig())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/products/ls7_level1_scene/datasets", nil)
		req.SetPathValue("product", "ls7_level1_scene")
		rec := httptest.NewRecorder()
		h.HandleSearchDatasets(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
		resp := decodeEnvelope(t, rec)
		wantCached := i == 1
		if resp.Metadata.Cached != wantCached {
			t.Errorf("request %d: cached = %v, want %v", i, resp.Metadata.Cached, wantCached)
		}
	}
	if stub.searchCalls != 1 {
		t.Errorf("searchCalls = %d, want 1", stub.searchCalls)
	}
}

func TestExecutorNilIndex(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	c := cache.New(cfg.Cache.DefaultTTL)
	t.Cleanup(c.Stop)
	h := NewHandler(nil, c, nil, nil, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	h.HandleProducts(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != models.ErrCodeService {
		t.Errorf("error = %+v, want SERVICE_ERROR", resp.Error)
	}
}

func TestRespondJSONETag(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	h.HandleProducts(rec, req)

	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("no ETag header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.HandleProducts(rec, req)

	if rec.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("304 carried a body of %d bytes", rec.Body.Len())
	}
}

func TestHandleRefreshSummariesUnknownProductTouchesNothing(t *testing.T) {
	t.Parallel()

	stub := newTestStub()
	h := newTestHandler(t, stub, testConfig())
	body := strings.NewReader(`{"products":["ls7_level1_scene","no_such_product"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/summaries/refresh", body)
	rec := httptest.NewRecorder()
	h.HandleRefreshSummaries(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if stub.summaryCalls != 0 {
		t.Errorf("refreshed %d products before rejecting the list, want 0", stub.summaryCalls)
	}
}

func TestHandleRefreshSummariesExplicitList(t *testing.T) {
	t.Parallel()

	stub := newTestStub()
	h := newTestHandler(t, stub, testConfig())
	body := strings.NewReader(`{"products":["ls7_level1_scene","ls8_nbar_scene"]}`)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/summaries/refresh", body)
	rec := httptest.NewRecorder()
	h.HandleRefreshSummaries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", rec.Code, rec.Body.String())
	}
	if stub.summaryCalls != 2 {
		t.Errorf("refreshed %d products, want 2", stub.summaryCalls)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())

	rec := httptest.NewRecorder()
	h.HandleHealthLive(rec, httptest.NewRequest(http.MethodGet, "/api/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.HandleHealthReady(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("ready status = %d, want 200", rec.Code)
	}

	stub := newTestStub()
	stub.pingErr = fmt.Errorf("connection refused")
	h = newTestHandler(t, stub, testConfig())
	rec = httptest.NewRecorder()
	h.HandleHealthReady(rec, httptest.NewRequest(http.MethodGet, "/api/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready status with failing ping = %d, want 503", rec.Code)
	}
}

func TestHandleRoot(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newTestStub(), testConfig())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.HandleRoot(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/products/ls7_level1_scene/datasets" {
		t.Errorf("location = %q", loc)
	}
}

func TestAcceptsJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		accept string
		want   bool
	}{
		{"", true},
		{"*/*", true},
		{"application/json", true},
		{"application/geo+json", true},
		{"text/html,application/xhtml+xml", false},
		{"text/html, application/json;q=0.9", true},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.accept != "" {
			req.Header.Set("Accept", tc.accept)
		}
		if got := acceptsJSON(req); got != tc.want {
			t.Errorf("acceptsJSON(%q) = %v, want %v", tc.accept, got, tc.want)
		}
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	in := "line1\nline2\r\x00\x1b[31m"
	out := sanitizeLogValue(in)
	if strings.ContainsAny(out, "\n\r\x00\x1b") {
		t.Errorf("control characters survived: %q", out)
	}
}
