package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireEnrichLock attempts to acquire the enrichment lock for a trip.
// Returns true if the lock was acquired, false if another enrichment run
// already holds it.
func (s *LockStore) AcquireEnrichLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:enrich:%s", tripID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseEnrichLock releases the enrichment lock for a trip.
func (s *LockStore) ReleaseEnrichLock(ctx context.Context, tripID string) error {
	key := fmt.Sprintf("lock:enrich:%s", tripID)

	return s.client.Del(ctx, key).Err()
}
