package domain

import (
	"encoding/json"
	"time"
)

// GenerationStatus represents the current status of itinerary generation for a trip.
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// Preference is a weighted user preference forwarded to the planner.
type Preference struct {
	Value  string `json:"value"`
	Weight int    `json:"weight"`
}

// TripPlan holds the per-trip generation state owned by this service.
// The trip itself is owned by the trip CRUD backend; we only keep the
// fields needed to drive generation and enrichment.
type TripPlan struct {
	TripID       string
	Destination  string
	StartDate    string
	EndDate      string
	Budget       float64
	Status       GenerationStatus
	GenerationID string
	Itinerary    json.RawMessage // raw planner output, nil until completed
	FailureMsg   string
	StartedAt    time.Time
	UpdatedAt    time.Time
}
