package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voyage/internal/domain"
	"voyage/internal/planner"
	"voyage/internal/poller"
	"voyage/internal/repository"
)

// expectedGenerationMinutes feeds the status ETA: the planner usually
// finishes within ten minutes, so the estimate counts down from there.
const expectedGenerationMinutes = 10

// PlannerClient generates a raw itinerary for a trip.
type PlannerClient interface {
	Generate(ctx context.Context, req planner.Request) (json.RawMessage, error)
}

// GenerationService owns the itinerary generation lifecycle: starting a
// planner run, reporting its status, and serving the raw result. Each
// started run arms a watch that pre-warms the enrichment cache on
// completion.
type GenerationService struct {
	planRepo   repository.PlanRepository
	planner    PlannerClient
	watcher    *poller.Poller
	enrichment *EnrichmentService
	log        zerolog.Logger
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(
	planRepo repository.PlanRepository,
	plannerClient PlannerClient,
	watcher *poller.Poller,
	enrichment *EnrichmentService,
	logger zerolog.Logger,
) *GenerationService {
	return &GenerationService{
		planRepo:   planRepo,
		planner:    plannerClient,
		watcher:    watcher,
		enrichment: enrichment,
		log:        logger.With().Str("component", "generation").Logger(),
	}
}

// StartGenerationRequest contains the parameters for starting generation.
type StartGenerationRequest struct {
	TripID      string
	Destination string
	StartDate   string
	EndDate     string
	Budget      float64
	Preferences []domain.Preference
}

// StartGeneration kicks off an itinerary generation run for the trip.
// Generation happens in the background; callers follow up via Status.
func (s *GenerationService) StartGeneration(ctx context.Context, req StartGenerationRequest) (*domain.TripPlan, error) {
	if req.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if req.Destination == "" {
		return nil, ErrInvalidDestination
	}
	if req.StartDate != "" && req.EndDate != "" && req.EndDate < req.StartDate {
		return nil, ErrInvalidDates
	}

	existing, err := s.planRepo.GetByID(ctx, req.TripID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == domain.GenerationProcessing {
		return nil, ErrGenerationInProgress
	}

	plan := &domain.TripPlan{
		TripID:       req.TripID,
		Destination:  req.Destination,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Budget:       req.Budget,
		Status:       domain.GenerationProcessing,
		GenerationID: uuid.New().String(),
		StartedAt:    time.Now(),
	}

	if err := s.planRepo.StartGeneration(ctx, plan); err != nil {
		return nil, err
	}

	// Regeneration makes any previous enrichment stale.
	if err := s.enrichment.Invalidate(ctx, req.TripID); err != nil {
		s.log.Warn().Err(err).Str("trip_id", req.TripID).Msg("failed to invalidate enrichment")
	}

	go s.runGeneration(plan, req.Preferences)
	s.armWatch(req.TripID, req.Destination)

	s.log.Info().Str("trip_id", req.TripID).Str("destination", req.Destination).
		Str("generation_id", plan.GenerationID).Msg("generation started")
	return plan, nil
}

// runGeneration calls the planner and persists the outcome. It runs
// detached from the request context; generation outlives the request.
func (s *GenerationService) runGeneration(plan *domain.TripPlan, preferences []domain.Preference) {
	ctx := context.Background()

	itinerary, err := s.planner.Generate(ctx, planner.Request{
		Destination: plan.Destination,
		StartDate:   plan.StartDate,
		EndDate:     plan.EndDate,
		Budget:      plan.Budget,
		Preferences: preferences,
	})
	if err != nil {
		s.log.Error().Err(err).Str("trip_id", plan.TripID).Msg("generation failed")
		if ferr := s.planRepo.FailGeneration(ctx, plan.TripID, plan.GenerationID, err.Error()); ferr != nil {
			s.log.Error().Err(ferr).Str("trip_id", plan.TripID).Msg("failed to record generation failure")
		}
		return
	}

	if err := s.planRepo.CompleteGeneration(ctx, plan.TripID, plan.GenerationID, itinerary); err != nil {
		s.log.Error().Err(err).Str("trip_id", plan.TripID).Msg("failed to record generation result")
	}
}

// armWatch starts the status watch that pre-warms the enrichment cache
// once generation completes.
func (s *GenerationService) armWatch(tripID, destination string) {
	_, err := s.watcher.Watch(context.Background(), tripID, func(outcome poller.Outcome) {
		if outcome.State != domain.GenerationCompleted {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), enrichLockTTL)
		defer cancel()
		if err := s.enrichment.Warm(ctx, tripID, destination, outcome.Itinerary); err != nil {
			s.log.Warn().Err(err).Str("trip_id", tripID).Msg("enrichment warm-up failed")
		}
	})
	if err != nil {
		s.log.Debug().Err(err).Str("trip_id", tripID).Msg("watch not armed")
	}
}

// StatusResponse reports a trip's generation progress.
type StatusResponse struct {
	TripID     string `json:"trip_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	ETAMinutes int    `json:"eta_minutes,omitempty"`
}

// Status reports the trip's generation state. Trips with no plan are
// idle, not missing; the client may simply not have generated yet.
func (s *GenerationService) Status(ctx context.Context, tripID string) (*StatusResponse, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	plan, err := s.planRepo.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &StatusResponse{TripID: tripID, Status: "idle"}, nil
		}
		return nil, err
	}

	resp := &StatusResponse{TripID: tripID, Status: string(plan.Status)}
	switch plan.Status {
	case domain.GenerationPending, domain.GenerationProcessing:
		resp.Status = string(domain.GenerationProcessing)
		resp.ETAMinutes = etaMinutes(plan.StartedAt)
	case domain.GenerationFailed:
		resp.Message = "Generation failed: " + plan.FailureMsg
	}
	return resp, nil
}

// etaMinutes counts down from the expected duration, never below one.
func etaMinutes(startedAt time.Time) int {
	elapsed := int(time.Since(startedAt).Minutes())
	if eta := expectedGenerationMinutes - elapsed; eta > 1 {
		return eta
	}
	return 1
}

// Itinerary returns the raw generated itinerary for a trip.
func (s *GenerationService) Itinerary(ctx context.Context, tripID string) (json.RawMessage, error) {
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

	return plan.Itinerary, nil
}

// Clear cancels any active watch and removes the trip's plan, cached
// enrichment and marker index.
func (s *GenerationService) Clear(ctx context.Context, tripID string) error {
	if tripID == "" {
		return ErrInvalidTripID
	}

	s.watcher.Cancel(tripID)

	if err := s.enrichment.Invalidate(ctx, tripID); err != nil {
		s.log.Warn().Err(err).Str("trip_id", tripID).Msg("failed to invalidate enrichment")
	}

	if err := s.planRepo.Clear(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoItinerary
		}
		return err
	}

	s.log.Info().Str("trip_id", tripID).Msg("trip plan cleared")
	return nil
}

// PlanSource adapts the plan repository to the watcher's Source
// interface.
type PlanSource struct {
	planRepo repository.PlanRepository
}

// NewPlanSource creates a watch source over the plan repository.
func NewPlanSource(planRepo repository.PlanRepository) *PlanSource {
	return &PlanSource{planRepo: planRepo}
}

// GenerationStatus reads the trip's current generation state.
func (s *PlanSource) GenerationStatus(ctx context.Context, tripID string) (poller.Status, error) {
	plan, err := s.planRepo.GetByID(ctx, tripID)
	if err != nil {
		return poller.Status{}, err
	}
	return poller.Status{
		State:   plan.Status,
		Message: plan.FailureMsg,
		ETA:     etaMinutes(plan.StartedAt),
	}, nil
}

// FetchItinerary reads the trip's raw itinerary, decoded to day keys.
func (s *PlanSource) FetchItinerary(ctx context.Context, tripID string) (domain.RawItinerary, error) {
	plan, err := s.planRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(plan.Itinerary) == 0 {
		return nil, ErrNoItinerary
	}

	var raw domain.RawItinerary
	if err := json.Unmarshal(plan.Itinerary, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

var _ poller.Source = (*PlanSource)(nil)
