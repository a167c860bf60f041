package tests

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"voyage/internal/domain"
	"voyage/internal/geocode"
	"voyage/internal/planner"
	"voyage/internal/redis"
	"voyage/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK PLAN REPOSITORY
// ──────────────────────────────────────────────

// MockPlanRepository is a mock implementation of PlanRepository.
type MockPlanRepository struct {
	mu    sync.RWMutex
	plans map[string]*domain.TripPlan

	// Counters for verification
	StartCallCount int32

	// Error injection
	GetError   error
	StartError error
}

// NewMockPlanRepository creates a new mock plan repository.
func NewMockPlanRepository() *MockPlanRepository {
	return &MockPlanRepository{
		plans: make(map[string]*domain.TripPlan),
	}
}

// AddPlan seeds a plan into the mock repository.
func (m *MockPlanRepository) AddPlan(plan *domain.TripPlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.TripID] = plan
}

func (m *MockPlanRepository) GetByID(ctx context.Context, tripID string) (*domain.TripPlan, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	plan, ok := m.plans[tripID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *plan
	return &copy, nil
}

func (m *MockPlanRepository) StartGeneration(ctx context.Context, plan *domain.TripPlan) error {
	atomic.AddInt32(&m.StartCallCount, 1)
	if m.StartError != nil {
		return m.StartError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *plan
	stored.Itinerary = nil
	stored.FailureMsg = ""
	stored.UpdatedAt = time.Now()
	m.plans[plan.TripID] = &stored
	return nil
}

func (m *MockPlanRepository) CompleteGeneration(ctx context.Context, tripID, generationID string, itinerary json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[tripID]
	if !ok || plan.GenerationID != generationID {
		return repository.ErrNotFound
	}
	plan.Status = domain.GenerationCompleted
	plan.Itinerary = itinerary
	plan.FailureMsg = ""
	plan.UpdatedAt = time.Now()
	return nil
}

func (m *MockPlanRepository) FailGeneration(ctx context.Context, tripID, generationID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	plan, ok := m.plans[tripID]
	if !ok || plan.GenerationID != generationID {
		return repository.ErrNotFound
	}
	plan.Status = domain.GenerationFailed
	plan.FailureMsg = message
	plan.UpdatedAt = time.Now()
	return nil
}

func (m *MockPlanRepository) Clear(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[tripID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.plans, tripID)
	return nil
}

// HasPlan reports whether a plan exists.
func (m *MockPlanRepository) HasPlan(tripID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.plans[tripID]
	return ok
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockCacheStore is an in-memory implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu      sync.RWMutex
	entries map[string]*redis.CachedEnrichment

	GetCallCount int32
	SetCallCount int32
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		entries: make(map[string]*redis.CachedEnrichment),
	}
}

func cacheKey(tripID, destination string) string {
	return tripID + "|" + destination
}

func (m *MockCacheStore) GetEnrichment(ctx context.Context, tripID, destination string) (*redis.CachedEnrichment, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.entries[cacheKey(tripID, destination)], nil
}

func (m *MockCacheStore) SetEnrichment(ctx context.Context, tripID, destination string, enrichment *redis.CachedEnrichment) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey(tripID, destination)] = enrichment
	return nil
}

func (m *MockCacheStore) InvalidateEnrichment(ctx context.Context, tripID, destination string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, cacheKey(tripID, destination))
	return nil
}

func (m *MockCacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if len(key) > len(tripID) && key[:len(tripID)+1] == tripID+"|" {
			delete(m.entries, key)
		}
	}
	return nil
}

// Size returns the number of cached entries.
func (m *MockCacheStore) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// MockLockStore is an in-memory implementation of LockStoreInterface.
type MockLockStore struct {
	mu   sync.Mutex
	held map[string]bool

	// ForceBusy makes every acquisition fail, simulating a lock held
	// by another instance.
	ForceBusy bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{held: make(map[string]bool)}
}

func (m *MockLockStore) AcquireEnrichLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceBusy || m.held[tripID] {
		return false, nil
	}
	m.held[tripID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseEnrichLock(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, tripID)
	return nil
}

// MockMarkerStore is an in-memory implementation of MarkerStoreInterface.
type MockMarkerStore struct {
	mu      sync.RWMutex
	markers map[string][]redis.ActivityMarker
}

// NewMockMarkerStore creates a new mock marker store.
func NewMockMarkerStore() *MockMarkerStore {
	return &MockMarkerStore{markers: make(map[string][]redis.ActivityMarker)}
}

func (m *MockMarkerStore) SetMarkers(ctx context.Context, tripID string, markers []redis.ActivityMarker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers[tripID] = markers
	return nil
}

func (m *MockMarkerStore) NearbyMarkers(ctx context.Context, tripID string, lat, lng, radiusKm float64) ([]redis.ActivityMarker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.markers[tripID], nil
}

func (m *MockMarkerStore) RemoveMarkers(ctx context.Context, tripID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, tripID)
	return nil
}

// MarkerCount returns the number of indexed markers for a trip.
func (m *MockMarkerStore) MarkerCount(tripID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.markers[tripID])
}

// ──────────────────────────────────────────────
// MOCK PLANNER AND PIPELINE
// ──────────────────────────────────────────────

// MockPlanner is a mock implementation of PlannerClient.
type MockPlanner struct {
	Result json.RawMessage
	Err    error
	Delay  time.Duration

	CallCount int32
}

func (m *MockPlanner) Generate(ctx context.Context, req planner.Request) (json.RawMessage, error) {
	atomic.AddInt32(&m.CallCount, 1)
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Result, nil
}

// MockPipeline is a mock implementation of EnrichPipeline.
type MockPipeline struct {
	Enriched *domain.EnrichedItinerary
	Err      error

	CallCount int32
}

func (m *MockPipeline) Enrich(ctx context.Context, raw domain.RawItinerary, destination string) (*domain.EnrichedItinerary, error) {
	atomic.AddInt32(&m.CallCount, 1)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Enriched, nil
}

// ──────────────────────────────────────────────
// MOCK MAP BACKENDS
// ──────────────────────────────────────────────

// MockSearchBackend is a mock implementation of SearchBackend.
type MockSearchBackend struct {
	Results []geocode.Result
	Err     error
}

func (m *MockSearchBackend) Search(ctx context.Context, query string) ([]geocode.Result, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}

// MockNearbyBackend is a mock implementation of NearbyBackend.
type MockNearbyBackend struct {
	POIs []geocode.POI
	Err  error
}

func (m *MockNearbyBackend) Nearby(ctx context.Context, lat, lng float64, radius int) ([]geocode.POI, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.POIs, nil
}
