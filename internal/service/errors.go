package service

import "errors"

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidDestination is returned when destination is empty.
	ErrInvalidDestination = errors.New("invalid destination")

	// ErrInvalidDates is returned when the trip date range is malformed.
	ErrInvalidDates = errors.New("invalid trip dates")

	// ErrNoItinerary is returned when a trip has no generated itinerary.
	ErrNoItinerary = errors.New("no itinerary for trip")

	// ErrStillGenerating is returned when the itinerary is not ready yet.
	ErrStillGenerating = errors.New("itinerary generation in progress")

	// ErrGenerationFailed is returned when the last generation attempt failed.
	ErrGenerationFailed = errors.New("itinerary generation failed")

	// ErrGenerationInProgress is returned when starting generation for a
	// trip that is already generating.
	ErrGenerationInProgress = errors.New("generation already in progress")

	// ErrEnrichmentInProgress is returned when another request is
	// already enriching the same trip.
	ErrEnrichmentInProgress = errors.New("enrichment already in progress")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrEmptyQuery is returned when a search query is empty.
	ErrEmptyQuery = errors.New("empty search query")
)
