package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"voyage/internal/domain"
	"voyage/internal/repository"
)

// PlanRepository is a PostgreSQL implementation of repository.PlanRepository.
type PlanRepository struct {
	q Querier
}

// NewPlanRepository creates a new PostgreSQL plan repository.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{q: db}
}

// NewPlanRepositoryWithTx creates a plan repository using a transaction.
func NewPlanRepositoryWithTx(tx *sql.Tx) *PlanRepository {
	return &PlanRepository{q: tx}
}

// GetByID retrieves a trip plan by trip ID.
func (r *PlanRepository) GetByID(ctx context.Context, tripID string) (*domain.TripPlan, error) {
	query := `
		SELECT trip_id, destination, start_date, end_date, budget, generation_status,
		       generation_id, itinerary, generation_message, generation_started_at, generation_updated_at
		FROM trip_plans WHERE trip_id = $1
	`

	var plan domain.TripPlan
	var generationID sql.NullString
	var itinerary []byte
	var message sql.NullString
	var startedAt sql.NullTime

	err := r.q.QueryRowContext(ctx, query, tripID).Scan(
		&plan.TripID,
		&plan.Destination,
		&plan.StartDate,
		&plan.EndDate,
		&plan.Budget,
		&plan.Status,
		&generationID,
		&itinerary,
		&message,
		&startedAt,
		&plan.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	if generationID.Valid {
		plan.GenerationID = generationID.String
	}
	if len(itinerary) > 0 {
		plan.Itinerary = json.RawMessage(itinerary)
	}
	if message.Valid {
		plan.FailureMsg = message.String
	}
	if startedAt.Valid {
		plan.StartedAt = startedAt.Time
	}

	return &plan, nil
}

// StartGeneration persists a plan entering generation. Regenerating an
// existing trip resets its itinerary and failure state.
func (r *PlanRepository) StartGeneration(ctx context.Context, plan *domain.TripPlan) error {
	query := `
		INSERT INTO trip_plans (trip_id, destination, start_date, end_date, budget, generation_status,
		                        generation_id, itinerary, generation_message, generation_started_at, generation_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, NULL, $8, $8)
		ON CONFLICT (trip_id) DO UPDATE SET
			destination = EXCLUDED.destination,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			budget = EXCLUDED.budget,
			generation_status = EXCLUDED.generation_status,
			generation_id = EXCLUDED.generation_id,
			itinerary = NULL,
			generation_message = NULL,
			generation_started_at = EXCLUDED.generation_started_at,
			generation_updated_at = EXCLUDED.generation_updated_at
	`

	now := time.Now()
	if !plan.StartedAt.IsZero() {
		now = plan.StartedAt
	}

	_, err := r.q.ExecContext(ctx, query,
		plan.TripID,
		plan.Destination,
		plan.StartDate,
		plan.EndDate,
		plan.Budget,
		plan.Status,
		plan.GenerationID,
		now,
	)

	return err
}

// CompleteGeneration stores the generated itinerary and marks the plan
// completed. The generation ID guards against a stale run overwriting a
// newer one.
func (r *PlanRepository) CompleteGeneration(ctx context.Context, tripID, generationID string, itinerary json.RawMessage) error {
	query := `
		UPDATE trip_plans
		SET generation_status = $1, itinerary = $2, generation_message = NULL, generation_updated_at = $3
		WHERE trip_id = $4 AND generation_id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.GenerationCompleted,
		[]byte(itinerary),
		time.Now(),
		tripID,
		generationID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// FailGeneration marks the plan failed with a message.
func (r *PlanRepository) FailGeneration(ctx context.Context, tripID, generationID, message string) error {
	query := `
		UPDATE trip_plans
		SET generation_status = $1, generation_message = $2, generation_updated_at = $3
		WHERE trip_id = $4 AND generation_id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.GenerationFailed,
		message,
		time.Now(),
		tripID,
		generationID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Clear removes the plan's itinerary and generation state.
func (r *PlanRepository) Clear(ctx context.Context, tripID string) error {
	query := `DELETE FROM trip_plans WHERE trip_id = $1`

	result, err := r.q.ExecContext(ctx, query, tripID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}

	return nil
}
