package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Auth     AuthConfig
	Geocode  GeocodeConfig
	Planner  PlannerConfig
	Enrich   EnrichConfig
	Poll     PollConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// AuthConfig holds bearer-token verification configuration.
type AuthConfig struct {
	JWTSecret string
	Enabled   bool
}

// GeocodeConfig holds geocoding and nearby-POI backend configuration.
type GeocodeConfig struct {
	SearchURL   string // Nominatim-compatible search endpoint
	OverpassURL string
	UserAgent   string
	QueryDelay  time.Duration // politeness delay between successive queries
	Timeout     time.Duration
}

// PlannerConfig holds the external itinerary planner configuration.
type PlannerConfig struct {
	BaseURL string
	Timeout time.Duration
}

// EnrichConfig holds the coordinate enrichment tunables. The validation
// radii are deliberately unified here instead of living as scattered
// literals next to each resolution path.
type EnrichConfig struct {
	CityRadiusKm           float64 // activity validated against the city center
	DistrictRadiusKm       float64 // activity validated against a district point
	DistrictSearchRadiusKm float64 // the district point itself
	ActivityDelay          time.Duration
	FallbackLat            float64 // used when the destination cannot be resolved at all
	FallbackLng            float64
}

// PollConfig holds the generation watcher configuration.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "traveldb"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "itinerary-map-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Enabled:   getBoolEnv("AUTH_ENABLED", true),
		},
		Geocode: GeocodeConfig{
			SearchURL:   getEnv("GEOCODE_SEARCH_URL", "https://nominatim.openstreetmap.org/search"),
			OverpassURL: getEnv("GEOCODE_OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
			UserAgent:   getEnv("GEOCODE_USER_AGENT", "TravelPlannerApp/1.0"),
			QueryDelay:  getDurationEnv("GEOCODE_QUERY_DELAY", 100*time.Millisecond),
			Timeout:     getDurationEnv("GEOCODE_TIMEOUT", 10*time.Second),
		},
		Planner: PlannerConfig{
			BaseURL: getEnv("PLANNER_URL", "http://localhost:8003"),
			Timeout: getDurationEnv("PLANNER_TIMEOUT", 10*time.Minute),
		},
		Enrich: EnrichConfig{
			CityRadiusKm:           getFloatEnv("ENRICH_CITY_RADIUS_KM", 15),
			DistrictRadiusKm:       getFloatEnv("ENRICH_DISTRICT_RADIUS_KM", 5),
			DistrictSearchRadiusKm: getFloatEnv("ENRICH_DISTRICT_SEARCH_RADIUS_KM", 10),
			ActivityDelay:          getDurationEnv("ENRICH_ACTIVITY_DELAY", 300*time.Millisecond),
			FallbackLat:            getFloatEnv("ENRICH_FALLBACK_LAT", 41.3851),
			FallbackLng:            getFloatEnv("ENRICH_FALLBACK_LNG", 2.1734),
		},
		Poll: PollConfig{
			Interval:    getDurationEnv("POLL_INTERVAL", 3*time.Second),
			MaxAttempts: getIntEnv("POLL_MAX_ATTEMPTS", 100),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
