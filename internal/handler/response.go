package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"voyage/internal/repository"
	"voyage/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrNoItinerary):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidDestination),
		errors.Is(err, service.ErrInvalidDates),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrEmptyQuery):
		return http.StatusBadRequest

	// Not ready yet
	case errors.Is(err, service.ErrStillGenerating):
		return http.StatusAccepted

	// Conflict errors
	case errors.Is(err, service.ErrGenerationInProgress),
		errors.Is(err, service.ErrEnrichmentInProgress):
		return http.StatusConflict

	// The generation itself failed; the request was fine.
	case errors.Is(err, service.ErrGenerationFailed):
		return http.StatusUnprocessableEntity

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
