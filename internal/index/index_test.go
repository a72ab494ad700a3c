// Cubescope - Earth Observation Dataset Index Explorer
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cubescope

package index

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/cubescope/internal/config"
	"github.com/tomtom215/cubescope/internal/models"
)

// newTestStore opens an in-memory index with a small seed:
// two products, five ls7 datasets across May/June 2017, one ls8 dataset,
// and a lineage edge from the first ls7 dataset to the ls8 one.
func newTestStore(t *testing.T) (*Store, []string) {
	t.Helper()

	s, err := New(&config.DatabaseConfig{
		Path:        ":memory:",
		MaxMemory:   "500MB",
		Threads:     1,
		SkipIndexes: true,
	})
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()

	ls7Def := json.RawMessage(`{"metadata":{"platform":{"code":"LANDSAT_7"}}}`)
	ls8Def := json.RawMessage(`{"metadata":{"platform":{"code":"LANDSAT_8"}}}`)
	products := []models.Product{
		{Name: "ls7_level1_scene", Definition: ls7Def, DefaultCRS: "EPSG:4326", TimeResolution: "1M"},
		{Name: "ls8_nbar_scene", Definition: ls8Def, DefaultCRS: "EPSG:4326", TimeResolution: "1M"},
	}
	for _, p := range products {
		if err := s.UpsertProduct(ctx, p); err != nil {
			t.Fatalf("seeding product %s: %v", p.Name, err)
		}
	}

	extent := json.RawMessage(`{"type":"Polygon","coordinates":[[[148,-35],[149,-35],[149,-34],[148,-34],[148,-35]]]}`)
	var ids []string
	for i := 0; i < 5; i++ {
		id := uuid.NewString()
		ids = append(ids, id)
		month := 5
		if i >= 3 {
			month = 6
		}
		d := models.Dataset{
			ID:         id,
			Product:    "ls7_level1_scene",
			Status:     "indexed",
			CenterTime: time.Date(2017, time.Month(month), 2+i, 10, 0, 0, 0, time.UTC),
			Metadata:   json.RawMessage(fmt.Sprintf(`{"seq":%d}`, i)),
			Extent:     extent,
		}
		if err := s.InsertDataset(ctx, d); err != nil {
			t.Fatalf("seeding dataset %d: %v", i, err)
		}
	}

	derivedID := uuid.NewString()
	ids = append(ids, derivedID)
	if err := s.InsertDataset(ctx, models.Dataset{
		ID:         derivedID,
		Product:    "ls8_nbar_scene",
		Status:     "indexed",
		CenterTime: time.Date(2017, 5, 10, 10, 0, 0, 0, time.UTC),
		Extent:     extent,
	}); err != nil {
		t.Fatalf("seeding derived dataset: %v", err)
	}
	if err := s.AddLineage(ctx, derivedID, ids[0], "level1"); err != nil {
		t.Fatalf("seeding lineage: %v", err)
	}

	return s, ids
}

func TestProducts(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	products, err := s.Products(context.Background())
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
	// Ordered by name.
	if products[0].Name != "ls7_level1_scene" || products[1].Name != "ls8_nbar_scene" {
		t.Errorf("product order wrong: %s, %s", products[0].Name, products[1].Name)
	}
	if products[0].DatasetCount != 5 {
		t.Errorf("ls7 dataset count = %d, want 5", products[0].DatasetCount)
	}
	if products[1].DatasetCount != 1 {
		t.Errorf("ls8 dataset count = %d, want 1", products[1].DatasetCount)
	}
}

func TestProductExists(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := s.ProductExists(ctx, "ls7_level1_scene")
	if err != nil || !ok {
		t.Errorf("ls7_level1_scene should exist, ok=%v err=%v", ok, err)
	}
	ok, err = s.ProductExists(ctx, "nonexistent")
	if err != nil || ok {
		t.Errorf("nonexistent should not exist, ok=%v err=%v", ok, err)
	}
}

func TestSearchDatasetsByProduct(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	datasets, err := s.SearchDatasets(context.Background(), &SearchFilter{
		Products: []string{"ls7_level1_scene"},
	})
	if err != nil {
		t.Fatalf("SearchDatasets: %v", err)
	}
	if len(datasets) != 5 {
		t.Fatalf("got %d datasets, want 5", len(datasets))
	}
	for i := 1; i < len(datasets); i++ {
		if datasets[i].CenterTime.Before(datasets[i-1].CenterTime) {
			t.Error("datasets not ordered by center_time")
		}
	}
}

func TestSearchDatasetsTimeRange(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	begin := time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC)
	datasets, err := s.SearchDatasets(context.Background(), &SearchFilter{
		Products:  []string{"ls7_level1_scene"},
		TimeBegin: &begin,
		TimeEnd:   &end,
	})
	if err != nil {
		t.Fatalf("SearchDatasets: %v", err)
	}
	if len(datasets) != 2 {
		t.Errorf("got %d June datasets, want 2", len(datasets))
	}
}

func TestSearchDatasetsLimitOffset(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	page1, err := s.SearchDatasets(ctx, &SearchFilter{Limit: 2})
	if err != nil {
		t.Fatalf("page1: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("page1 len = %d, want 2", len(page1))
	}

	page2, err := s.SearchDatasets(ctx, &SearchFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("page2: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("page2 len = %d, want 2", len(page2))
	}
	if page1[0].ID == page2[0].ID {
		t.Error("offset paging returned the same first row")
	}
}

func TestDatasetsForMonth(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	may, err := s.DatasetsForMonth(ctx, "ls7_level1_scene", 2017, 5)
	if err != nil {
		t.Fatalf("DatasetsForMonth: %v", err)
	}
	if len(may) != 3 {
		t.Errorf("May datasets = %d, want 3", len(may))
	}

	empty, err := s.DatasetsForMonth(ctx, "ls7_level1_scene", 2017, 1)
	if err != nil {
		t.Fatalf("empty month: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("January datasets = %d, want 0", len(empty))
	}
}

func TestMonthFootprint(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	if !s.IsSpatialAvailable() {
		t.Skip("spatial extension not available")
	}
	ctx := context.Background()

	mf, err := s.MonthFootprint(ctx, "ls7_level1_scene", 2017, 5)
	if err != nil {
		t.Fatalf("MonthFootprint: %v", err)
	}
	if mf.DatasetCount != 3 {
		t.Errorf("dataset count = %d, want 3", mf.DatasetCount)
	}
	if len(mf.Footprint) == 0 {
		t.Error("footprint geometry is empty")
	}

	_, err = s.MonthFootprint(ctx, "ls7_level1_scene", 2017, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("empty month error = %v, want ErrNotFound", err)
	}
}

func TestTimelineYears(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	buckets, err := s.TimelineYears(context.Background(), "ls7_level1_scene", 0)
	if err != nil {
		t.Fatalf("TimelineYears: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2 (May and June)", len(buckets))
	}
	if buckets[0].Year != 2017 || buckets[0].Month != 5 || buckets[0].Count != 3 {
		t.Errorf("first bucket = %+v, want 2017-05 count 3", buckets[0])
	}
	if buckets[1].Month != 6 || buckets[1].Count != 2 {
		t.Errorf("second bucket = %+v, want 2017-06 count 2", buckets[1])
	}
}

func TestTimelineExcludesFutureDatasets(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	future := models.Dataset{
		ID:         uuid.NewString(),
		Product:    "ls7_level1_scene",
		Status:     "indexed",
		CenterTime: time.Now().UTC().AddDate(3, 0, 0),
	}
	if err := s.InsertDataset(ctx, future); err != nil {
		t.Fatalf("seeding future dataset: %v", err)
	}

	buckets, err := s.TimelineYears(ctx, "ls7_level1_scene", 0)
	if err != nil {
		t.Fatalf("TimelineYears: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("buckets = %d, want 2 (future-dated dataset must not add one)", len(buckets))
	}
	for _, b := range buckets {
		if b.Year != 2017 {
			t.Errorf("unexpected bucket year %d", b.Year)
		}
	}

	if s.jsonAvailable {
		timelines, err := s.TimelineByProduct(ctx, "LANDSAT_7")
		if err != nil {
			t.Fatalf("TimelineByProduct: %v", err)
		}
		if len(timelines) != 1 {
			t.Fatalf("timelines = %d, want 1", len(timelines))
		}
		for _, b := range timelines[0].Buckets {
			if b.Year != 2017 {
				t.Errorf("unexpected timeline bucket year %d", b.Year)
			}
		}
	}
}

func TestDatasetWithLineage(t *testing.T) {
	t.Parallel()

	s, ids := newTestStore(t)
	ctx := context.Background()
	sourceID, derivedID := ids[0], ids[5]

	doc, err := s.Dataset(ctx, derivedID)
	if err != nil {
		t.Fatalf("Dataset(derived): %v", err)
	}
	src, ok := doc.Sources["level1"]
	if !ok {
		t.Fatalf("derived dataset should have a level1 source, got %+v", doc.Sources)
	}
	if src.ID != sourceID {
		t.Errorf("source id = %s, want %s", src.ID, sourceID)
	}
	if len(doc.Derived) != 0 {
		t.Errorf("derived of derived = %d, want 0", len(doc.Derived))
	}

	doc, err = s.Dataset(ctx, sourceID)
	if err != nil {
		t.Fatalf("Dataset(source): %v", err)
	}
	if len(doc.Derived) != 1 || doc.Derived[0].ID != derivedID {
		t.Errorf("source should list the derived dataset, got %+v", doc.Derived)
	}
}

func TestDatasetNotFound(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	_, err := s.Dataset(context.Background(), uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestGetOrUpdateSummary(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	result, err := s.GetOrUpdateSummary(ctx, "ls7_level1_scene")
	if err != nil {
		t.Fatalf("GetOrUpdateSummary: %v", err)
	}
	if result.Periods != 2 {
		t.Errorf("periods = %d, want 2", result.Periods)
	}
	if result.DatasetCount != 5 {
		t.Errorf("dataset count = %d, want 5", result.DatasetCount)
	}
	if !result.Refreshed {
		t.Error("first run should report refreshed")
	}

	again, err := s.GetOrUpdateSummary(ctx, "ls7_level1_scene")
	if err != nil {
		t.Fatalf("second GetOrUpdateSummary: %v", err)
	}
	if again.Refreshed {
		t.Error("unchanged data should not report refreshed")
	}
}

func TestSummaryFootprint(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	// Nothing summarized yet.
	_, err := s.SummaryFootprint(ctx, "ls7_level1_scene", 2017, 5)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("before summary run: error = %v, want ErrNotFound", err)
	}

	if _, err := s.GetOrUpdateSummary(ctx, "ls7_level1_scene"); err != nil {
		t.Fatalf("GetOrUpdateSummary: %v", err)
	}

	mf, err := s.SummaryFootprint(ctx, "ls7_level1_scene", 2017, 5)
	if err != nil {
		t.Fatalf("SummaryFootprint: %v", err)
	}
	if mf.DatasetCount != 3 {
		t.Errorf("dataset count = %d, want 3", mf.DatasetCount)
	}
	if s.IsSpatialAvailable() && len(mf.Footprint) == 0 {
		t.Error("footprint geometry is empty")
	}

	_, err = s.SummaryFootprint(ctx, "ls7_level1_scene", 2017, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("empty month error = %v, want ErrNotFound", err)
	}
}

func TestGetOrUpdateSummaryUnknownProduct(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	_, err := s.GetOrUpdateSummary(context.Background(), "nope")
	if !errors.Is(err, ErrProductUnknown) {
		t.Errorf("error = %v, want ErrProductUnknown", err)
	}
}

func TestInitProductUnknown(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	err := s.InitProduct(context.Background(), "nope")
	if !errors.Is(err, ErrProductUnknown) {
		t.Errorf("error = %v, want ErrProductUnknown", err)
	}
}

func TestInitProductKeepsSummaries(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetOrUpdateSummary(ctx, "ls7_level1_scene"); err != nil {
		t.Fatalf("GetOrUpdateSummary: %v", err)
	}
	if err := s.InitProduct(ctx, "ls7_level1_scene"); err != nil {
		t.Fatalf("InitProduct: %v", err)
	}
	if _, err := s.SummaryFootprint(ctx, "ls7_level1_scene", 2017, 5); err != nil {
		t.Errorf("summary row gone after init: %v", err)
	}

	if err := s.ResetSummaries(ctx, "ls7_level1_scene"); err != nil {
		t.Fatalf("ResetSummaries: %v", err)
	}
	if _, err := s.SummaryFootprint(ctx, "ls7_level1_scene", 2017, 5); !errors.Is(err, ErrNotFound) {
		t.Errorf("summary row survived reset: error = %v, want ErrNotFound", err)
	}
}

func TestTimelineByProduct(t *testing.T) {
	t.Parallel()

	s, _ := newTestStore(t)
	if !s.jsonAvailable {
		t.Skip("json extension not available")
	}

	timelines, err := s.TimelineByProduct(context.Background(), "LANDSAT_7")
	if err != nil {
		t.Fatalf("TimelineByProduct: %v", err)
	}
	if len(timelines) != 1 {
		t.Fatalf("timelines = %d, want 1", len(timelines))
	}
	if timelines[0].Product != "ls7_level1_scene" {
		t.Errorf("product = %s", timelines[0].Product)
	}
	total := 0
	for _, b := range timelines[0].Buckets {
		total += b.Count
	}
	if total != 5 {
		t.Errorf("total datasets in timeline = %d, want 5", total)
	}
}
