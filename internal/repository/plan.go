package repository

import (
	"context"
	"encoding/json"

	"voyage/internal/domain"
)

// PlanRepository defines the persistence operations for trip plans.
type PlanRepository interface {
	// GetByID retrieves a trip plan by trip ID.
	GetByID(ctx context.Context, tripID string) (*domain.TripPlan, error)

	// StartGeneration persists a plan entering generation. The row is
	// created on first use and reset on regeneration.
	StartGeneration(ctx context.Context, plan *domain.TripPlan) error

	// CompleteGeneration stores the generated itinerary and marks the
	// plan completed.
	CompleteGeneration(ctx context.Context, tripID, generationID string, itinerary json.RawMessage) error

	// FailGeneration marks the plan failed with a message.
	FailGeneration(ctx context.Context, tripID, generationID, message string) error

	// Clear removes the plan's itinerary and generation state.
	Clear(ctx context.Context, tripID string) error
}
