package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"voyage/internal/domain"
	"voyage/internal/redis"
	"voyage/internal/repository"
)

// enrichLockTTL bounds how long one enrichment run can hold the
// single-flight lock. A run that dies mid-flight unblocks after this.
const enrichLockTTL = 10 * time.Minute

// EnrichPipeline resolves coordinates for a raw itinerary.
type EnrichPipeline interface {
	Enrich(ctx context.Context, raw domain.RawItinerary, destination string) (*domain.EnrichedItinerary, error)
}

// EnrichmentService serves enriched itineraries, cache-first. A miss
// runs the enrichment pipeline under a per-trip lock so concurrent
// requests for the same trip do exactly one geocoding pass.
type EnrichmentService struct {
	planRepo repository.PlanRepository
	pipeline EnrichPipeline
	cache    redis.CacheStoreInterface
	locks    redis.LockStoreInterface
	markers  redis.MarkerStoreInterface
	log      zerolog.Logger
}

// NewEnrichmentService creates a new EnrichmentService.
func NewEnrichmentService(
	planRepo repository.PlanRepository,
	pipeline EnrichPipeline,
	cache redis.CacheStoreInterface,
	locks redis.LockStoreInterface,
	markers redis.MarkerStoreInterface,
	logger zerolog.Logger,
) *EnrichmentService {
	return &EnrichmentService{
		planRepo: planRepo,
		pipeline: pipeline,
		cache:    cache,
		locks:    locks,
		markers:  markers,
		log:      logger.With().Str("component", "enrichment").Logger(),
	}
}

// Enriched returns the trip's enriched itinerary, running the pipeline
// on a cache miss.
func (s *EnrichmentService) Enriched(ctx context.Context, tripID string) (*domain.EnrichedItinerary, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	plan, err := s.planRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoItinerary
		}
		return nil, err
	}

	switch plan.Status {
	case domain.GenerationPending, domain.GenerationProcessing:
		return nil, ErrStillGenerating
	case domain.GenerationFailed:
		return nil, ErrGenerationFailed
	}
	if len(plan.Itinerary) == 0 {
		return nil, ErrNoItinerary
	}

	cached, err := s.cache.GetEnrichment(ctx, tripID, plan.Destination)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return fromCached(cached), nil
	}

	var raw domain.RawItinerary
	if err := json.Unmarshal(plan.Itinerary, &raw); err != nil {
		return nil, fmt.Errorf("decode itinerary: %w", err)
	}

	return s.enrichAndStore(ctx, tripID, plan.Destination, raw)
}

// Warm runs enrichment for a freshly generated itinerary so the first
// map request hits the cache. Used by the generation watcher.
func (s *EnrichmentService) Warm(ctx context.Context, tripID, destination string, raw domain.RawItinerary) error {
	_, err := s.enrichAndStore(ctx, tripID, destination, raw)
	if errors.Is(err, ErrEnrichmentInProgress) {
		return nil // someone else is already warming it
	}
	return err
}

// Invalidate drops every cached enrichment and marker index for a trip.
func (s *EnrichmentService) Invalidate(ctx context.Context, tripID string) error {
	if tripID == "" {
		return ErrInvalidTripID
	}
	if err := s.cache.InvalidateTrip(ctx, tripID); err != nil {
		return err
	}
	return s.markers.RemoveMarkers(ctx, tripID)
}

func (s *EnrichmentService) enrichAndStore(ctx context.Context, tripID, destination string, raw domain.RawItinerary) (*domain.EnrichedItinerary, error) {
	ok, err := s.locks.AcquireEnrichLock(ctx, tripID, enrichLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEnrichmentInProgress
	}
	defer func() {
		if err := s.locks.ReleaseEnrichLock(ctx, tripID); err != nil {
			s.log.Warn().Err(err).Str("trip_id", tripID).Msg("failed to release enrich lock")
		}
	}()

	// Another run may have filled the cache while we waited on the lock.
	cached, err := s.cache.GetEnrichment(ctx, tripID, destination)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return fromCached(cached), nil
	}

	enriched, err := s.pipeline.Enrich(ctx, raw, destination)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetEnrichment(ctx, tripID, destination, toCached(enriched)); err != nil {
		s.log.Warn().Err(err).Str("trip_id", tripID).Msg("failed to cache enrichment")
	}
	if err := s.markers.SetMarkers(ctx, tripID, toMarkers(enriched)); err != nil {
		s.log.Warn().Err(err).Str("trip_id", tripID).Msg("failed to index markers")
	}

	return enriched, nil
}

func toCached(enriched *domain.EnrichedItinerary) *redis.CachedEnrichment {
	return &redis.CachedEnrichment{
		Days:        enriched.Days,
		DayOrder:    enriched.DayOrder,
		Destination: enriched.Destination,
	}
}

func fromCached(cached *redis.CachedEnrichment) *domain.EnrichedItinerary {
	return &domain.EnrichedItinerary{
		Days:        cached.Days,
		DayOrder:    cached.DayOrder,
		Destination: cached.Destination,
	}
}

func toMarkers(enriched *domain.EnrichedItinerary) []redis.ActivityMarker {
	var markers []redis.ActivityMarker
	for _, dayKey := range enriched.DayOrder {
		for _, activity := range enriched.Days[dayKey].Activities {
			markers = append(markers, redis.ActivityMarker{
				Name: activity.Name,
				Lat:  activity.Lat,
				Lng:  activity.Lng,
			})
		}
	}
	return markers
}
