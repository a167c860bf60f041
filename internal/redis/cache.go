package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"voyage/internal/domain"
)

// CacheStore handles enriched itinerary caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Key prefixes
const (
	enrichCachePrefix = "cache:enrich:"
	enrichTripsPrefix = "cache:enrich:trips:"
)

// CachedEnrichment is the cached form of an enriched itinerary.
type CachedEnrichment struct {
	Days        map[string]domain.EnrichedDay `json:"days"`
	DayOrder    []string                      `json:"day_order"`
	Destination domain.DestinationCoords      `json:"destination"`
}

func enrichKey(tripID, destination string) string {
	return fmt.Sprintf("%s%s:%s", enrichCachePrefix, tripID, destination)
}

// GetEnrichment retrieves an enriched itinerary from cache.
// A nil result with nil error is a cache miss.
func (s *CacheStore) GetEnrichment(ctx context.Context, tripID, destination string) (*CachedEnrichment, error) {
	data, err := s.client.Get(ctx, enrichKey(tripID, destination)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedEnrichment
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// SetEnrichment stores an enriched itinerary in cache. Entries carry no
// TTL; they live until the trip is explicitly invalidated. The key is
// also tracked in a per-trip set so InvalidateTrip can clear every
// destination variant at once.
func (s *CacheStore) SetEnrichment(ctx context.Context, tripID, destination string, enrichment *CachedEnrichment) error {
	data, err := json.Marshal(enrichment)
	if err != nil {
		return err
	}

	key := enrichKey(tripID, destination)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.SAdd(ctx, enrichTripsPrefix+tripID, key)
	_, err = pipe.Exec(ctx)
	return err
}

// InvalidateEnrichment removes a single (trip, destination) entry.
func (s *CacheStore) InvalidateEnrichment(ctx context.Context, tripID, destination string) error {
	key := enrichKey(tripID, destination)
	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, enrichTripsPrefix+tripID, key)
	_, err := pipe.Exec(ctx)
	return err
}

// InvalidateTrip removes every cached enrichment for a trip.
func (s *CacheStore) InvalidateTrip(ctx context.Context, tripID string) error {
	setKey := enrichTripsPrefix + tripID
	keys, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	pipe.Del(ctx, setKey)
	_, err = pipe.Exec(ctx)
	return err
}
