package service

import (
	"context"

	"github.com/rs/zerolog"

	"voyage/internal/domain"
	"voyage/internal/geo"
	"voyage/internal/geocode"
	"voyage/internal/redis"
)

// longDistanceKm flags walking segments better covered by transit.
const longDistanceKm = 3.0

// SearchBackend resolves free-text location queries.
type SearchBackend interface {
	Search(ctx context.Context, query string) ([]geocode.Result, error)
}

// NearbyBackend finds points of interest around a coordinate.
type NearbyBackend interface {
	Nearby(ctx context.Context, lat, lng float64, radius int) ([]geocode.POI, error)
}

// MapService builds the map views: location search, nearby POIs and the
// per-trip route visualization derived from the enriched itinerary.
type MapService struct {
	search     SearchBackend
	nearby     NearbyBackend
	markers    redis.MarkerStoreInterface
	enrichment *EnrichmentService
	log        zerolog.Logger
}

// NewMapService creates a new MapService.
func NewMapService(
	search SearchBackend,
	nearby NearbyBackend,
	markers redis.MarkerStoreInterface,
	enrichment *EnrichmentService,
	logger zerolog.Logger,
) *MapService {
	return &MapService{
		search:     search,
		nearby:     nearby,
		markers:    markers,
		enrichment: enrichment,
		log:        logger.With().Str("component", "map").Logger(),
	}
}

// Search resolves a free-text location query.
func (s *MapService) Search(ctx context.Context, query string) ([]geocode.Result, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return s.search.Search(ctx, query)
}

// NearbyRequest describes a nearby-POI query. TripID is optional; when
// set, the trip's own activities within the radius are included.
type NearbyRequest struct {
	Lat    float64
	Lng    float64
	Radius int // meters
	TripID string
}

// NearbyResult combines external POIs with the trip's own activities.
type NearbyResult struct {
	POIs       []geocode.POI          `json:"pois"`
	Activities []redis.ActivityMarker `json:"activities,omitempty"`
}

// Nearby finds POIs around a point, optionally merged with the trip's
// indexed activity markers.
func (s *MapService) Nearby(ctx context.Context, req NearbyRequest) (*NearbyResult, error) {
	if !validCoordinates(req.Lat, req.Lng) {
		return nil, ErrInvalidLocation
	}

	pois, err := s.nearby.Nearby(ctx, req.Lat, req.Lng, req.Radius)
	if err != nil {
		return nil, err
	}

	result := &NearbyResult{POIs: pois}
	if req.TripID != "" {
		radiusKm := float64(req.Radius) / 1000
		if radiusKm <= 0 {
			radiusKm = 1
		}
		activities, err := s.markers.NearbyMarkers(ctx, req.TripID, req.Lat, req.Lng, radiusKm)
		if err != nil {
			s.log.Warn().Err(err).Str("trip_id", req.TripID).Msg("marker lookup failed")
		} else {
			result.Activities = activities
		}
	}

	return result, nil
}

// Marker is one activity pin on the trip map.
type Marker struct {
	Name               string  `json:"name"`
	Time               string  `json:"time"`
	Category           string  `json:"type"`
	Lat                float64 `json:"lat"`
	Lng                float64 `json:"lng"`
	District           string  `json:"district,omitempty"`
	SearchMethod       string  `json:"search_method"`
	DistanceFromCenter float64 `json:"distance_from_center_m"`
}

// Segment is the walking leg between two consecutive activities.
type Segment struct {
	From         string  `json:"from"`
	To           string  `json:"to"`
	DistanceKm   float64 `json:"distance_km"`
	LongDistance bool    `json:"long_distance"` // consider transit instead of walking
}

// DayRoute is one day's markers and walking legs in visit order.
type DayRoute struct {
	Day      string    `json:"day"`
	Date     string    `json:"date"`
	District string    `json:"district"`
	Markers  []Marker  `json:"markers"`
	Segments []Segment `json:"segments"`
}

// RouteStats aggregates walking and resolution-quality numbers across
// the whole trip.
type RouteStats struct {
	TotalActivities int            `json:"total_activities"`
	TotalWalkingKm  float64        `json:"total_walking_km"`
	AvgPerDayKm     float64        `json:"avg_per_day_km"`
	MaxSegmentKm    float64        `json:"max_segment_km"`
	SearchMethods   map[string]int `json:"search_methods"`
}

// MapView is the complete trip map payload.
type MapView struct {
	TripID string                   `json:"trip_id"`
	Center domain.DestinationCoords `json:"center"`
	Days   []DayRoute               `json:"days"`
	Stats  RouteStats               `json:"stats"`
}

// TripMap builds the route visualization for a trip from its enriched
// itinerary.
func (s *MapService) TripMap(ctx context.Context, tripID string) (*MapView, error) {
	enriched, err := s.enrichment.Enriched(ctx, tripID)
	if err != nil {
		return nil, err
	}

	view := &MapView{
		TripID: tripID,
		Center: enriched.Destination,
		Stats: RouteStats{
			SearchMethods: make(map[string]int),
		},
	}

	for _, dayKey := range enriched.DayOrder {
		day := enriched.Days[dayKey]
		route := DayRoute{
			Day:      dayKey,
			Date:     day.Date,
			District: day.District,
			Markers:  make([]Marker, 0, len(day.Activities)),
		}

		for i, activity := range day.Activities {
			route.Markers = append(route.Markers, Marker{
				Name:               activity.Name,
				Time:               activity.Time,
				Category:           activity.Category,
				Lat:                activity.Lat,
				Lng:                activity.Lng,
				District:           activity.District,
				SearchMethod:       string(activity.SearchMethod),
				DistanceFromCenter: activity.DistanceFromCenter,
			})
			view.Stats.TotalActivities++
			view.Stats.SearchMethods[string(activity.SearchMethod)]++

			if i == 0 {
				continue
			}
			prev := day.Activities[i-1]
			distanceKm := geo.Distance(prev.Lat, prev.Lng, activity.Lat, activity.Lng) / 1000
			route.Segments = append(route.Segments, Segment{
				From:         prev.Name,
				To:           activity.Name,
				DistanceKm:   distanceKm,
				LongDistance: distanceKm > longDistanceKm,
			})

			view.Stats.TotalWalkingKm += distanceKm
			if distanceKm > view.Stats.MaxSegmentKm {
				view.Stats.MaxSegmentKm = distanceKm
			}
		}

		view.Days = append(view.Days, route)
	}

	if len(view.Days) > 0 {
		view.Stats.AvgPerDayKm = view.Stats.TotalWalkingKm / float64(len(view.Days))
	}

	return view, nil
}

// InvalidateTrip drops the trip's cached enrichment so the next map
// request rebuilds it from the current itinerary.
func (s *MapService) InvalidateTrip(ctx context.Context, tripID string) error {
	return s.enrichment.Invalidate(ctx, tripID)
}

func validCoordinates(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
