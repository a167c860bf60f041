package geocode

import (
	"context"
	"math/rand"
	"sort"

	"github.com/rs/zerolog"

	"voyage/internal/domain"
	"voyage/internal/geo"
)

// topCandidates is how many of the closest results are inspected per query.
const topCandidates = 3

// SearchClient abstracts the geocoding backend for the resolver.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Candidate is an accepted geocoding match.
type Candidate struct {
	Lat                float64
	Lng                float64
	DistanceFromCenter float64 // meters from the reference point, pre-jitter
}

// Resolver turns an ordered list of query variants into a validated
// coordinate. Candidates are ranked by distance from a reference point
// and rejected beyond the validation radius. Transport errors and empty
// result sets are equivalent: the next variant is tried.
type Resolver struct {
	client SearchClient
	log    zerolog.Logger
}

// NewResolver creates a resolver over the given search backend.
func NewResolver(client SearchClient, logger zerolog.Logger) *Resolver {
	return &Resolver{
		client: client,
		log:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve tries each query variant in order, most specific first. For
// each non-empty result set it sorts candidates by distance from ref,
// inspects the closest topCandidates, and accepts the first within
// radiusKm. The accepted point is jittered by up to ±jitterDeg/2 per axis
// to break exact marker overlaps. A nil candidate means every variant was
// exhausted; the error is non-nil only when at least one variant failed
// at the transport level, so callers can tag the fallback accordingly.
func (r *Resolver) Resolve(ctx context.Context, queries []string, ref domain.Coordinates, radiusKm, jitterDeg float64) (*Candidate, error) {
	var lastErr error
	for _, query := range queries {
		if query == "" {
			continue
		}

		results, err := r.client.Search(ctx, query)
		if err != nil {
			r.log.Warn().Err(err).Str("query", query).Msg("search failed, trying next variant")
			lastErr = err
			continue
		}
		if len(results) == 0 {
			continue
		}

		ranked := rankByDistance(results, ref)
		if len(ranked) > topCandidates {
			ranked = ranked[:topCandidates]
		}

		for _, cand := range ranked {
			if cand.DistanceFromCenter > radiusKm*1000 {
				continue
			}
			r.log.Debug().Str("query", query).
				Float64("distance_km", cand.DistanceFromCenter/1000).
				Msg("candidate accepted")
			return &Candidate{
				Lat:                cand.Lat + jitter(jitterDeg),
				Lng:                cand.Lng + jitter(jitterDeg),
				DistanceFromCenter: cand.DistanceFromCenter,
			}, nil
		}

		r.log.Debug().Str("query", query).Msg("all candidates failed validation")
	}

	return nil, lastErr
}

// rankByDistance annotates results with their distance from ref and
// sorts ascending.
func rankByDistance(results []Result, ref domain.Coordinates) []Candidate {
	ranked := make([]Candidate, 0, len(results))
	for _, res := range results {
		ranked = append(ranked, Candidate{
			Lat:                res.Lat,
			Lng:                res.Lng,
			DistanceFromCenter: geo.Distance(res.Lat, res.Lng, ref.Lat, ref.Lng),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].DistanceFromCenter < ranked[j].DistanceFromCenter
	})
	return ranked
}

// jitter returns a uniform offset in (-magnitude/2, magnitude/2).
func jitter(magnitude float64) float64 {
	if magnitude <= 0 {
		return 0
	}
	return (rand.Float64() - 0.5) * magnitude
}
