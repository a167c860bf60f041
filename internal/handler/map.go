package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voyage/internal/service"
)

// MapHandler handles HTTP requests for map views.
type MapHandler struct {
	mapService *service.MapService
}

// NewMapHandler creates a new MapHandler.
func NewMapHandler(mapService *service.MapService) *MapHandler {
	return &MapHandler{mapService: mapService}
}

// Search handles GET /v1/map/search?query=
func (h *MapHandler) Search(c *gin.Context) {
	results, err := h.mapService.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"results": results})
}

// NearbyRequest is the HTTP request body for nearby-POI queries.
type NearbyRequest struct {
	Lat    float64 `json:"lat" binding:"required"`
	Lng    float64 `json:"lng" binding:"required"`
	Radius int     `json:"radius"`
	TripID string  `json:"trip_id"`
}

// Nearby handles POST /v1/map/nearby
func (h *MapHandler) Nearby(c *gin.Context) {
	var req NearbyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.ErrInvalidLocation)
		return
	}

	result, err := h.mapService.Nearby(c.Request.Context(), service.NearbyRequest{
		Lat:    req.Lat,
		Lng:    req.Lng,
		Radius: req.Radius,
		TripID: req.TripID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, result)
}

// TripMap handles GET /v1/map/trip/:tripId
func (h *MapHandler) TripMap(c *gin.Context) {
	view, err := h.mapService.TripMap(c.Request.Context(), c.Param("tripId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, view)
}

// ClearTripMap handles DELETE /v1/map/trip/:tripId
func (h *MapHandler) ClearTripMap(c *gin.Context) {
	if err := h.mapService.InvalidateTrip(c.Request.Context(), c.Param("tripId")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
