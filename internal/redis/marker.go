package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const markerKeyPrefix = "trip:markers:"

// ActivityMarker is an activity's position in a trip's geo index.
type ActivityMarker struct {
	Name string
	Lat  float64
	Lng  float64
}

// MarkerStore indexes enriched activity positions per trip so map views
// can answer proximity queries without re-running enrichment.
type MarkerStore struct {
	client *redis.Client
}

// NewMarkerStore creates a new MarkerStore.
func NewMarkerStore(client *redis.Client) *MarkerStore {
	return &MarkerStore{client: client}
}

// SetMarkers replaces a trip's geo index with the given markers.
func (s *MarkerStore) SetMarkers(ctx context.Context, tripID string, markers []ActivityMarker) error {
	key := markerKeyPrefix + tripID

	pipe := s.client.Pipeline()
	pipe.Del(ctx, key)
	for _, m := range markers {
		pipe.GeoAdd(ctx, key, &redis.GeoLocation{
			Name:      m.Name,
			Longitude: m.Lng,
			Latitude:  m.Lat,
		})
	}
	_, err := pipe.Exec(ctx)
	return err
}

// NearbyMarkers returns a trip's activities within the given radius
// (in kilometers), closest first.
func (s *MarkerStore) NearbyMarkers(ctx context.Context, tripID string, lat, lng, radiusKm float64) ([]ActivityMarker, error) {
	results, err := s.client.GeoRadius(ctx, markerKeyPrefix+tripID, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	markers := make([]ActivityMarker, 0, len(results))
	for _, r := range results {
		markers = append(markers, ActivityMarker{
			Name: r.Name,
			Lat:  r.Latitude,
			Lng:  r.Longitude,
		})
	}

	return markers, nil
}

// RemoveMarkers drops a trip's geo index.
func (s *MarkerStore) RemoveMarkers(ctx context.Context, tripID string) error {
	return s.client.Del(ctx, markerKeyPrefix+tripID).Err()
}
