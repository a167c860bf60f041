package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"voyage/internal/domain"
	"voyage/internal/service"
)

// ItineraryHandler handles HTTP requests for itinerary generation.
type ItineraryHandler struct {
	generationService *service.GenerationService
}

// NewItineraryHandler creates a new ItineraryHandler.
func NewItineraryHandler(generationService *service.GenerationService) *ItineraryHandler {
	return &ItineraryHandler{generationService: generationService}
}

// GenerateRequest is the HTTP request body for starting generation.
type GenerateRequest struct {
	Destination string              `json:"destination" binding:"required"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Budget      float64             `json:"budget"`
	Preferences []domain.Preference `json:"preferences"`
}

// GenerateResponse is the HTTP response for starting generation.
type GenerateResponse struct {
	TripID       string `json:"trip_id"`
	GenerationID string `json:"generation_id"`
	Status       string `json:"status"`
}

// Generate handles POST /v1/itinerary/:tripId/generate
func (h *ItineraryHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidDestination)
		return
	}

	plan, err := h.generationService.StartGeneration(c.Request.Context(), service.StartGenerationRequest{
		TripID:      c.Param("tripId"),
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Budget:      req.Budget,
		Preferences: req.Preferences,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusAccepted, GenerateResponse{
		TripID:       plan.TripID,
		GenerationID: plan.GenerationID,
		Status:       string(plan.Status),
	})
}

// Status handles GET /v1/itinerary/:tripId/status
func (h *ItineraryHandler) Status(c *gin.Context) {
	status, err := h.generationService.Status(c.Request.Context(), c.Param("tripId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, status)
}

// ItineraryResponse is the HTTP response for the raw itinerary.
type ItineraryResponse struct {
	TripID    string          `json:"trip_id"`
	Itinerary json.RawMessage `json:"itinerary"`
}

// Itinerary handles GET /v1/itinerary/:tripId
func (h *ItineraryHandler) Itinerary(c *gin.Context) {
	tripID := c.Param("tripId")

	itinerary, err := h.generationService.Itinerary(c.Request.Context(), tripID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, ItineraryResponse{
		TripID:    tripID,
		Itinerary: itinerary,
	})
}

// Clear handles DELETE /v1/itinerary/:tripId
func (h *ItineraryHandler) Clear(c *gin.Context) {
	if err := h.generationService.Clear(c.Request.Context(), c.Param("tripId")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
