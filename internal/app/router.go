package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"voyage/internal/config"
	"voyage/internal/handler"
	"voyage/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	ItineraryHandler *handler.ItineraryHandler
	MapHandler       *handler.MapHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
	AuthConfig       config.AuthConfig
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(deps.AuthConfig))
	{
		// Itinerary generation routes.
		itinerary := v1.Group("/itinerary")
		{
			itinerary.POST("/:tripId/generate", deps.ItineraryHandler.Generate)
			itinerary.GET("/:tripId/status", deps.ItineraryHandler.Status)
			itinerary.GET("/:tripId", deps.ItineraryHandler.Itinerary)
			itinerary.DELETE("/:tripId", deps.ItineraryHandler.Clear)
		}

		// Map routes.
		maps := v1.Group("/map")
		{
			maps.GET("/search", deps.MapHandler.Search)
			maps.POST("/nearby", deps.MapHandler.Nearby)
			maps.GET("/trip/:tripId", deps.MapHandler.TripMap)
			maps.DELETE("/trip/:tripId", deps.MapHandler.ClearTripMap)
		}
	}

	return router
}
