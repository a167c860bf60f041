package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"voyage/internal/config"
	"voyage/internal/domain"
	"voyage/internal/geo"
	"voyage/internal/geocode"
)

// fakeSearch serves canned results per exact query and records every
// query it sees.
type fakeSearch struct {
	mu      sync.Mutex
	results map[string][]geocode.Result
	err     error
	queries []string
}

func (f *fakeSearch) Search(ctx context.Context, query string) ([]geocode.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.results[query], nil
}

func (f *fakeSearch) seen(query string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, q := range f.queries {
		if q == query {
			return true
		}
	}
	return false
}

func testConfig() config.EnrichConfig {
	return config.EnrichConfig{
		CityRadiusKm:           15,
		DistrictRadiusKm:       5,
		DistrictSearchRadiusKm: 10,
		FallbackLat:            41.3851,
		FallbackLng:            2.1734,
	}
}

func newTestPipeline(search geocode.SearchClient) *Pipeline {
	logger := zerolog.Nop()
	return NewPipeline(geocode.NewResolver(search, logger), search, testConfig(), logger)
}

const (
	romeLat = 41.9028
	romeLng = 12.4964
)

func romeSearch() *fakeSearch {
	return &fakeSearch{results: map[string][]geocode.Result{
		"Rome": {{Name: "Rome", Lat: romeLat, Lng: romeLng}},
	}}
}

func TestEnrich_AddressPreferredOverName(t *testing.T) {
	t.Parallel()

	search := romeSearch()
	search.results["Piazza del Colosseo 1, Rome"] = []geocode.Result{
		{Name: "Colosseum", Lat: 41.8902, Lng: 12.4922},
	}
	search.results["Colosseum, Rome"] = []geocode.Result{
		{Name: "Somewhere else", Lat: 41.80, Lng: 12.40},
	}

	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`[{"title": "Colosseum", "address": "Piazza del Colosseo 1"}]`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	activity := enriched.Days["Day 1"].Activities[0]
	if activity.SearchMethod != domain.SearchMethodAddress {
		t.Errorf("expected address method, got %q", activity.SearchMethod)
	}
	if math.Abs(activity.Lat-41.8902) > 0.001 || math.Abs(activity.Lng-12.4922) > 0.001 {
		t.Errorf("coordinates too far from the address match: %f,%f", activity.Lat, activity.Lng)
	}
}

func TestEnrich_ShortAddressSkipsAddressTier(t *testing.T) {
	t.Parallel()

	search := romeSearch()
	search.results["Pantheon, Rome"] = []geocode.Result{
		{Name: "Pantheon", Lat: 41.8986, Lng: 12.4769},
	}

	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`[{"title": "Pantheon", "address": "N/A"}]`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if search.seen("N/A, Rome") {
		t.Error("junk address should not be queried")
	}
	activity := enriched.Days["Day 1"].Activities[0]
	if activity.SearchMethod != domain.SearchMethodName {
		t.Errorf("expected name method, got %q", activity.SearchMethod)
	}
}

func TestEnrich_EmptyDayOmitted(t *testing.T) {
	t.Parallel()

	search := romeSearch()
	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`["Colosseum"]`),
		"Day 2": json.RawMessage(`[]`),
		"Day 3": json.RawMessage(`["Pantheon"]`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := enriched.Days["Day 2"]; ok {
		t.Error("empty day should be omitted")
	}
	if len(enriched.DayOrder) != 2 || enriched.DayOrder[0] != "Day 1" || enriched.DayOrder[1] != "Day 3" {
		t.Errorf("unexpected day order: %v", enriched.DayOrder)
	}
}

func TestEnrich_UnresolvedActivitySynthesized(t *testing.T) {
	t.Parallel()

	search := romeSearch()
	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`["Totally Unknown Place"]`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	activity := enriched.Days["Day 1"].Activities[0]
	if activity.SearchMethod != domain.SearchMethodFallback {
		t.Errorf("expected fallback method, got %q", activity.SearchMethod)
	}

	offset := geo.DistrictOffset("Rome", 0)
	if math.Abs(activity.Lat-(romeLat+offset.Lat)) > 1e-9 {
		t.Errorf("fallback lat not deterministic: got %f", activity.Lat)
	}
	if math.Abs(activity.Lng-(romeLng+offset.Lng)) > 1e-9 {
		t.Errorf("fallback lng not deterministic: got %f", activity.Lng)
	}
}

func TestEnrich_TransportErrorTagged(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{err: errors.New("connection refused")}
	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`["Colosseum"]`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("enrichment must not abort on geocoder failure: %v", err)
	}

	// Destination lookup failed too, so the default reference point
	// anchors everything.
	if math.Abs(enriched.Destination.Lat-41.3851) > 1e-9 {
		t.Errorf("expected default reference point, got %f", enriched.Destination.Lat)
	}

	activity := enriched.Days["Day 1"].Activities[0]
	if activity.SearchMethod != domain.SearchMethodError {
		t.Errorf("expected error method, got %q", activity.SearchMethod)
	}
}

func TestEnrich_FarResultRejected(t *testing.T) {
	t.Parallel()

	search := romeSearch()
	// Naples is ~190 km from Rome, well outside the city radius.
	search.results["Colosseum, Rome"] = []geocode.Result{
		{Name: "Wrong Colosseum", Lat: 40.8518, Lng: 14.2681},
	}

	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`["Colosseum"]`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	activity := enriched.Days["Day 1"].Activities[0]
	if activity.SearchMethod != domain.SearchMethodFallback {
		t.Errorf("out-of-radius match must fall through, got %q", activity.SearchMethod)
	}
}

func TestEnrich_DuplicateMarkersNudgedApart(t *testing.T) {
	t.Parallel()

	search := romeSearch()
	// Both activities resolve to the exact same point.
	point := []geocode.Result{{Name: "Piazza Navona", Lat: 41.8992, Lng: 12.4731}}
	search.results["Fountain Tour, Rome"] = point
	search.results["Street Artists, Rome"] = point

	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`["Fountain Tour", "Street Artists"]`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	activities := enriched.Days["Day 1"].Activities
	if len(activities) != 2 {
		t.Fatalf("expected 2 activities, got %d", len(activities))
	}

	dLat := math.Abs(activities[0].Lat - activities[1].Lat)
	dLng := math.Abs(activities[0].Lng - activities[1].Lng)
	if dLat < 0.0001 && dLng < 0.0001 {
		t.Errorf("markers still overlap: dLat=%f dLng=%f", dLat, dLng)
	}
}

func TestEnrich_WrapperEnvelopeUnwrapped(t *testing.T) {
	t.Parallel()

	search := romeSearch()
	raw := domain.RawItinerary{
		"itinerary": json.RawMessage(`{"Day 1": ["Colosseum"]}`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(enriched.DayOrder) != 1 || enriched.DayOrder[0] != "Day 1" {
		t.Errorf("envelope not unwrapped: %v", enriched.DayOrder)
	}
}

func TestEnrich_DistrictScopesValidation(t *testing.T) {
	t.Parallel()

	search := romeSearch()
	search.results["Trastevere, Rome"] = []geocode.Result{
		{Name: "Trastevere", Lat: 41.8897, Lng: 12.4694},
	}
	search.results["Dar Poeta, Trastevere, Rome"] = []geocode.Result{
		{Name: "Dar Poeta", Lat: 41.8900, Lng: 12.4680},
	}

	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`{"district": "Trastevere", "activities": ["Dar Poeta"]}`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !search.seen("Trastevere, Rome") {
		t.Error("district was never resolved")
	}

	activity := enriched.Days["Day 1"].Activities[0]
	if activity.SearchMethod != domain.SearchMethodName {
		t.Errorf("expected name method, got %q", activity.SearchMethod)
	}
	if activity.District != "Trastevere" {
		t.Errorf("district not propagated: %q", activity.District)
	}
}

func TestEnrich_TimeKeyedDayResolved(t *testing.T) {
	t.Parallel()

	search := &fakeSearch{results: map[string][]geocode.Result{
		"Rome, Italy": {{Name: "Rome", Lat: romeLat, Lng: romeLng}},
		"Piazza del Colosseo, 1, Roma, Rome, Italy": {
			{Name: "Colosseum", Lat: 41.8902, Lng: 12.4922},
		},
	}}

	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`{"09:00": {"title": "Colosseum", "address": "Piazza del Colosseo, 1, Roma"}}`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome, Italy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	activities := enriched.Days["Day 1"].Activities
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(activities))
	}

	activity := activities[0]
	if activity.Name != "Colosseum" {
		t.Errorf("unexpected name: %q", activity.Name)
	}
	if activity.Time != "09:00" {
		t.Errorf("time label lost: %q", activity.Time)
	}
	if activity.SearchMethod != domain.SearchMethodAddress {
		t.Errorf("expected address method, got %q", activity.SearchMethod)
	}
	if activity.Lat == 0 || activity.Lng == 0 {
		t.Error("coordinates not resolved")
	}
	if geo.Distance(activity.Lat, activity.Lng, romeLat, romeLng) > 15_000 {
		t.Error("activity placed outside the city radius")
	}
}

func TestEnrich_DefaultTimesAndCategories(t *testing.T) {
	t.Parallel()

	search := romeSearch()
	raw := domain.RawItinerary{
		"Day 1": json.RawMessage(`["Vatican Museum", "Trattoria da Enzo"]`),
	}

	enriched, err := newTestPipeline(search).Enrich(context.Background(), raw, "Rome")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	activities := enriched.Days["Day 1"].Activities
	if activities[0].Time != "09:00" || activities[1].Time != "11:00" {
		t.Errorf("default time slots wrong: %q, %q", activities[0].Time, activities[1].Time)
	}
	if activities[0].Category != "museum" || activities[1].Category != "restaurant" {
		t.Errorf("categories wrong: %q, %q", activities[0].Category, activities[1].Category)
	}
}
