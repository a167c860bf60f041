package tests

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voyage/internal/domain"
	"voyage/internal/service"
)

// ──────────────────────────────────────────────
// 1. ENRICHMENT CACHING AND SINGLE-FLIGHT
// ──────────────────────────────────────────────

func completedPlan(tripID string) *domain.TripPlan {
	return &domain.TripPlan{
		TripID:       tripID,
		Destination:  "Rome",
		Status:       domain.GenerationCompleted,
		GenerationID: "gen-1",
		Itinerary:    json.RawMessage(`{"Day 1": ["Colosseum", "Vatican Museums"]}`),
		StartedAt:    time.Now().Add(-time.Minute),
	}
}

func sampleEnriched() *domain.EnrichedItinerary {
	return &domain.EnrichedItinerary{
		Days: map[string]domain.EnrichedDay{
			"Day 1": {
				Date:     "2026-05-01",
				District: "Rome",
				Activities: []domain.Activity{
					{Name: "Colosseum", Time: "09:00", Category: "attraction", Lat: 41.8902, Lng: 12.4922, SearchMethod: domain.SearchMethodName},
					{Name: "Vatican Museums", Time: "11:00", Category: "museum", Lat: 41.9065, Lng: 12.4536, SearchMethod: domain.SearchMethodAddress},
				},
			},
		},
		DayOrder:    []string{"Day 1"},
		Destination: domain.DestinationCoords{Lat: 41.9028, Lng: 12.4964, CityName: "Rome"},
	}
}

func newEnrichmentFixture() (*service.EnrichmentService, *MockPlanRepository, *MockPipeline, *MockCacheStore, *MockLockStore, *MockMarkerStore) {
	planRepo := NewMockPlanRepository()
	pipeline := &MockPipeline{Enriched: sampleEnriched()}
	cache := NewMockCacheStore()
	locks := NewMockLockStore()
	markers := NewMockMarkerStore()
	svc := service.NewEnrichmentService(planRepo, pipeline, cache, locks, markers, zerolog.Nop())
	return svc, planRepo, pipeline, cache, locks, markers
}

func TestEnrichment_PipelineRunsOnceThenCached(t *testing.T) {
	t.Parallel()

	svc, planRepo, pipeline, cache, _, markers := newEnrichmentFixture()
	planRepo.AddPlan(completedPlan("trip-1"))

	first, err := svc.Enriched(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pipeline.CallCount != 1 {
		t.Fatalf("expected 1 pipeline run, got %d", pipeline.CallCount)
	}
	if cache.Size() != 1 {
		t.Errorf("expected 1 cache entry, got %d", cache.Size())
	}
	if markers.MarkerCount("trip-1") != 2 {
		t.Errorf("expected 2 markers indexed, got %d", markers.MarkerCount("trip-1"))
	}

	second, err := svc.Enriched(context.Background(), "trip-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pipeline.CallCount != 1 {
		t.Errorf("cached hit must not re-run the pipeline, got %d runs", pipeline.CallCount)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cached result differs from the original")
	}
}

func TestEnrichment_LockHeldElsewhere(t *testing.T) {
	t.Parallel()

	svc, planRepo, _, _, locks, _ := newEnrichmentFixture()
	planRepo.AddPlan(completedPlan("trip-1"))
	locks.ForceBusy = true

	if _, err := svc.Enriched(context.Background(), "trip-1"); !errors.Is(err, service.ErrEnrichmentInProgress) {
		t.Errorf("expected ErrEnrichmentInProgress, got %v", err)
	}
}

func TestEnrichment_LockReleasedAfterRun(t *testing.T) {
	t.Parallel()

	svc, planRepo, _, cache, _, _ := newEnrichmentFixture()
	planRepo.AddPlan(completedPlan("trip-1"))

	if _, err := svc.Enriched(context.Background(), "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Invalidate and run again; a leaked lock would block this.
	if err := svc.Invalidate(context.Background(), "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.Size() != 0 {
		t.Fatalf("invalidation left %d entries", cache.Size())
	}
	if _, err := svc.Enriched(context.Background(), "trip-1"); err != nil {
		t.Errorf("second run blocked: %v", err)
	}
}

func TestEnrichment_StatusGates(t *testing.T) {
	t.Parallel()

	svc, planRepo, _, _, _, _ := newEnrichmentFixture()

	planRepo.AddPlan(&domain.TripPlan{
		TripID: "processing", Destination: "Rome", Status: domain.GenerationProcessing,
	})
	planRepo.AddPlan(&domain.TripPlan{
		TripID: "failed", Destination: "Rome", Status: domain.GenerationFailed, FailureMsg: "quota exceeded",
	})

	if _, err := svc.Enriched(context.Background(), "processing"); !errors.Is(err, service.ErrStillGenerating) {
		t.Errorf("expected ErrStillGenerating, got %v", err)
	}
	if _, err := svc.Enriched(context.Background(), "failed"); !errors.Is(err, service.ErrGenerationFailed) {
		t.Errorf("expected ErrGenerationFailed, got %v", err)
	}
	if _, err := svc.Enriched(context.Background(), "missing"); !errors.Is(err, service.ErrNoItinerary) {
		t.Errorf("expected ErrNoItinerary, got %v", err)
	}
	if _, err := svc.Enriched(context.Background(), ""); !errors.Is(err, service.ErrInvalidTripID) {
		t.Errorf("expected ErrInvalidTripID, got %v", err)
	}
}

func TestEnrichment_WarmFillsCache(t *testing.T) {
	t.Parallel()

	svc, planRepo, pipeline, cache, _, _ := newEnrichmentFixture()
	planRepo.AddPlan(completedPlan("trip-1"))

	raw := domain.RawItinerary{"Day 1": json.RawMessage(`["Colosseum"]`)}
	if err := svc.Warm(context.Background(), "trip-1", "Rome", raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.Size() != 1 {
		t.Fatalf("warm-up did not fill the cache")
	}

	// A follow-up read is a pure cache hit.
	if _, err := svc.Enriched(context.Background(), "trip-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pipeline.CallCount != 1 {
		t.Errorf("expected 1 pipeline run, got %d", pipeline.CallCount)
	}
}
