package redis

import (
	"context"
	"time"
)

// CacheStoreInterface defines the interface for enrichment caching.
type CacheStoreInterface interface {
	GetEnrichment(ctx context.Context, tripID, destination string) (*CachedEnrichment, error)
	SetEnrichment(ctx context.Context, tripID, destination string, enrichment *CachedEnrichment) error
	InvalidateEnrichment(ctx context.Context, tripID, destination string) error
	InvalidateTrip(ctx context.Context, tripID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireEnrichLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error)
	ReleaseEnrichLock(ctx context.Context, tripID string) error
}

// MarkerStoreInterface defines the interface for trip marker geo queries.
type MarkerStoreInterface interface {
	SetMarkers(ctx context.Context, tripID string, markers []ActivityMarker) error
	NearbyMarkers(ctx context.Context, tripID string, lat, lng, radiusKm float64) ([]ActivityMarker, error)
	RemoveMarkers(ctx context.Context, tripID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ CacheStoreInterface  = (*CacheStore)(nil)
	_ LockStoreInterface   = (*LockStore)(nil)
	_ MarkerStoreInterface = (*MarkerStore)(nil)
)
