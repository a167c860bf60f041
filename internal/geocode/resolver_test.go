package geocode

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"voyage/internal/domain"
)

type stubSearch struct {
	results map[string][]Result
	errs    map[string]error
	queries []string
}

func (s *stubSearch) Search(ctx context.Context, query string) ([]Result, error) {
	s.queries = append(s.queries, query)
	if err := s.errs[query]; err != nil {
		return nil, err
	}
	return s.results[query], nil
}

var romeCenter = domain.Coordinates{Lat: 41.9028, Lng: 12.4964}

func TestResolve_FirstVariantWins(t *testing.T) {
	t.Parallel()

	search := &stubSearch{results: map[string][]Result{
		"specific query": {{Lat: 41.9000, Lng: 12.4900}},
		"broad query":    {{Lat: 41.8500, Lng: 12.5000}},
	}}
	resolver := NewResolver(search, zerolog.Nop())

	cand, err := resolver.Resolve(context.Background(), []string{"specific query", "broad query"}, romeCenter, 15, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand == nil {
		t.Fatal("expected a candidate")
	}
	if math.Abs(cand.Lat-41.9000) > 1e-9 {
		t.Errorf("wrong variant accepted: %f", cand.Lat)
	}
	if len(search.queries) != 1 {
		t.Errorf("later variants should not be queried, saw %v", search.queries)
	}
}

func TestResolve_EmptyResultsFallThrough(t *testing.T) {
	t.Parallel()

	search := &stubSearch{results: map[string][]Result{
		"broad query": {{Lat: 41.9000, Lng: 12.4900}},
	}}
	resolver := NewResolver(search, zerolog.Nop())

	cand, err := resolver.Resolve(context.Background(), []string{"specific query", "broad query"}, romeCenter, 15, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand == nil {
		t.Fatal("expected the second variant to resolve")
	}
}

func TestResolve_ClosestOfTopThree(t *testing.T) {
	t.Parallel()

	// Results arrive unordered; only the three closest are inspected
	// and the nearest in-radius one wins.
	search := &stubSearch{results: map[string][]Result{
		"q": {
			{Lat: 40.8518, Lng: 14.2681}, // Naples, far
			{Lat: 41.9100, Lng: 12.5000}, // close
			{Lat: 41.8000, Lng: 12.4000}, // in radius, farther
			{Lat: 43.7696, Lng: 11.2558}, // Florence, far
		},
	}}
	resolver := NewResolver(search, zerolog.Nop())

	cand, err := resolver.Resolve(context.Background(), []string{"q"}, romeCenter, 15, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cand == nil {
		t.Fatal("expected a candidate")
	}
	if math.Abs(cand.Lat-41.9100) > 1e-9 {
		t.Errorf("expected the closest result, got %f,%f", cand.Lat, cand.Lng)
	}
}

func TestResolve_AllOutOfRadius(t *testing.T) {
	t.Parallel()

	search := &stubSearch{results: map[string][]Result{
		"q": {{Lat: 40.8518, Lng: 14.2681}},
	}}
	resolver := NewResolver(search, zerolog.Nop())

	cand, err := resolver.Resolve(context.Background(), []string{"q"}, romeCenter, 15, 0)
	if cand != nil {
		t.Fatalf("out-of-radius candidate accepted: %+v", cand)
	}
	if err != nil {
		t.Errorf("a clean miss must not report an error, got %v", err)
	}
}

func TestResolve_TransportErrorSurfaces(t *testing.T) {
	t.Parallel()

	search := &stubSearch{errs: map[string]error{
		"q1": errors.New("timeout"),
		"q2": errors.New("timeout"),
	}}
	resolver := NewResolver(search, zerolog.Nop())

	cand, err := resolver.Resolve(context.Background(), []string{"q1", "q2"}, romeCenter, 15, 0)
	if cand != nil {
		t.Fatalf("unexpected candidate: %+v", cand)
	}
	if err == nil {
		t.Error("expected the transport error to surface")
	}
}

func TestResolve_JitterBounded(t *testing.T) {
	t.Parallel()

	search := &stubSearch{results: map[string][]Result{
		"q": {{Lat: 41.9000, Lng: 12.4900}},
	}}
	resolver := NewResolver(search, zerolog.Nop())

	for i := 0; i < 50; i++ {
		cand, err := resolver.Resolve(context.Background(), []string{"q"}, romeCenter, 15, 0.0002)
		if err != nil || cand == nil {
			t.Fatalf("unexpected miss: %v", err)
		}
		if math.Abs(cand.Lat-41.9000) > 0.0001 || math.Abs(cand.Lng-12.4900) > 0.0001 {
			t.Fatalf("jitter out of bounds: %f,%f", cand.Lat, cand.Lng)
		}
	}
}

func TestResolve_DistanceReportedPreJitter(t *testing.T) {
	t.Parallel()

	search := &stubSearch{results: map[string][]Result{
		"q": {{Lat: romeCenter.Lat, Lng: romeCenter.Lng}},
	}}
	resolver := NewResolver(search, zerolog.Nop())

	cand, err := resolver.Resolve(context.Background(), []string{"q"}, romeCenter, 15, 0.0002)
	if err != nil || cand == nil {
		t.Fatalf("unexpected miss: %v", err)
	}
	if cand.DistanceFromCenter != 0 {
		t.Errorf("distance should be measured before jitter, got %f", cand.DistanceFromCenter)
	}
}
