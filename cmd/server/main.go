package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"voyage/internal/app"
	"voyage/internal/config"
	"voyage/internal/enrich"
	"voyage/internal/geocode"
	"voyage/internal/handler"
	"voyage/internal/planner"
	"voyage/internal/poller"
	internalRedis "voyage/internal/redis"
	"voyage/internal/repository/postgres"
	"voyage/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server := wireServer(db, redisClient, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Initialize Redis stores.
	cacheStore := internalRedis.NewCacheStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	markerStore := internalRedis.NewMarkerStore(redisClient)

	// Initialize repositories.
	planRepo := postgres.NewPlanRepository(db)

	// Initialize external clients.
	searchClient := geocode.NewClient(cfg.Geocode, logger)
	nearbyClient := geocode.NewNearbyClient(cfg.Geocode, logger)
	plannerClient := planner.NewClient(cfg.Planner, logger)

	// Initialize enrichment.
	resolver := geocode.NewResolver(searchClient, logger)
	pipeline := enrich.NewPipeline(resolver, searchClient, cfg.Enrich, logger)

	// Initialize services.
	enrichmentService := service.NewEnrichmentService(planRepo, pipeline, cacheStore, lockStore, markerStore, logger)
	watcher := poller.New(service.NewPlanSource(planRepo), cfg.Poll, logger)
	generationService := service.NewGenerationService(planRepo, plannerClient, watcher, enrichmentService, logger)
	mapService := service.NewMapService(searchClient, nearbyClient, markerStore, enrichmentService, logger)

	// Initialize handlers.
	itineraryHandler := handler.NewItineraryHandler(generationService)
	mapHandler := handler.NewMapHandler(mapService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		ItineraryHandler: itineraryHandler,
		MapHandler:       mapHandler,
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
		AuthConfig:       cfg.Auth,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
