package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"voyage/internal/config"
	"voyage/internal/domain"
	"voyage/internal/geo"
	"voyage/internal/geocode"
)

// Jitter magnitudes applied to accepted geocoding matches, and the
// thresholds driving per-day marker deduplication. Degrees.
const (
	addressJitterDeg = 0.0002
	nameJitterDeg    = 0.0001
	duplicateEpsilon = 0.0001
	nudgeMagnitude   = 0.002 // ~200 m
)

// minAddressLength filters out junk address strings the planner sometimes
// emits ("N/A", "-").
const minAddressLength = 5

// Pipeline walks a raw itinerary and attaches validated coordinates to
// every activity. Resolution failures never abort the run; each activity
// degrades through address search, name search and finally deterministic
// offset synthesis, which cannot fail.
type Pipeline struct {
	resolver *geocode.Resolver
	search   geocode.SearchClient
	cfg      config.EnrichConfig
	limiter  *rate.Limiter
	log      zerolog.Logger
}

// NewPipeline creates an enrichment pipeline.
func NewPipeline(resolver *geocode.Resolver, search geocode.SearchClient, cfg config.EnrichConfig, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		search:   search,
		cfg:      cfg,
		limiter:  activityLimiter(cfg.ActivityDelay),
		log:      logger.With().Str("component", "enrich").Logger(),
	}
}

// Enrich resolves coordinates for every activity in the itinerary.
// Days with zero resolved activities are omitted. The only returned
// error is context cancellation.
func (p *Pipeline) Enrich(ctx context.Context, raw domain.RawItinerary, destination string) (*domain.EnrichedItinerary, error) {
	itinerary := unwrap(raw)

	destCoords := p.resolveDestination(ctx, destination)
	districtCoords := p.resolveDistricts(ctx, itinerary, destination, destCoords)

	enriched := &domain.EnrichedItinerary{
		Days:        make(map[string]domain.EnrichedDay),
		Destination: destCoords,
	}

	for _, dayKey := range sortedDayKeys(itinerary) {
		day, err := p.enrichDay(ctx, itinerary[dayKey], destination, destCoords, districtCoords)
		if err != nil {
			return nil, err
		}
		if len(day.Activities) == 0 {
			p.log.Debug().Str("day", dayKey).Msg("day produced no activities, omitting")
			continue
		}
		enriched.Days[dayKey] = day
		enriched.DayOrder = append(enriched.DayOrder, dayKey)
	}

	p.log.Info().Str("destination", destination).Int("days", len(enriched.DayOrder)).
		Msg("itinerary enriched")
	return enriched, nil
}

// unwrap strips the optional top-level {"itinerary": {...}} envelope.
func unwrap(raw domain.RawItinerary) domain.RawItinerary {
	inner, ok := raw["itinerary"]
	if !ok {
		return raw
	}
	var unwrapped domain.RawItinerary
	if err := json.Unmarshal(inner, &unwrapped); err != nil {
		return raw
	}
	return unwrapped
}

// resolveDestination fetches the city-level reference point. The first
// search result wins; when the destination cannot be resolved at all the
// configured default point keeps the pipeline going.
func (p *Pipeline) resolveDestination(ctx context.Context, destination string) domain.DestinationCoords {
	fallback := domain.DestinationCoords{
		Lat:      p.cfg.FallbackLat,
		Lng:      p.cfg.FallbackLng,
		CityName: destination,
	}
	if destination == "" {
		fallback.CityName = "Unknown"
		return fallback
	}

	results, err := p.search.Search(ctx, destination)
	if err != nil || len(results) == 0 {
		p.log.Warn().Err(err).Str("destination", destination).
			Msg("destination lookup failed, using default reference point")
		return fallback
	}

	return domain.DestinationCoords{
		Lat:      results[0].Lat,
		Lng:      results[0].Lng,
		CityName: destination,
	}
}

// resolveDistricts collects the distinct non-destination districts across
// all days and resolves each once, scoped to this run. Districts that
// cannot be resolved get a deterministic offset from the city center.
func (p *Pipeline) resolveDistricts(ctx context.Context, itinerary domain.RawItinerary, destination string, destCoords domain.DestinationCoords) map[string]domain.Coordinates {
	seen := make(map[string]struct{})
	var districts []string
	for _, dayKey := range sortedDayKeys(itinerary) {
		district := DecodeDay(itinerary[dayKey]).District
		if district == "" || district == destination {
			continue
		}
		if _, ok := seen[district]; ok {
			continue
		}
		seen[district] = struct{}{}
		districts = append(districts, district)
	}
	sort.Strings(districts)

	ref := domain.Coordinates{Lat: destCoords.Lat, Lng: destCoords.Lng}
	coords := make(map[string]domain.Coordinates, len(districts))
	for _, district := range districts {
		query := fmt.Sprintf("%s, %s", district, destination)
		cand, _ := p.resolver.Resolve(ctx, []string{query}, ref, p.cfg.DistrictSearchRadiusKm, 0)
		if cand != nil {
			coords[district] = domain.Coordinates{Lat: cand.Lat, Lng: cand.Lng}
			continue
		}

		offset := geo.DistrictOffset(district, 0)
		coords[district] = domain.Coordinates{
			Lat: destCoords.Lat + offset.Lat,
			Lng: destCoords.Lng + offset.Lng,
		}
		p.log.Debug().Str("district", district).Msg("district unresolved, using synthesized point")
	}
	return coords
}

// enrichDay normalizes one day and resolves its activities in order.
// Activities resolve sequentially because each dedup check depends on
// the ones already placed.
func (p *Pipeline) enrichDay(ctx context.Context, rawDay []byte, destination string, destCoords domain.DestinationCoords, districtCoords map[string]domain.Coordinates) (domain.EnrichedDay, error) {
	payload := DecodeDay(rawDay)

	district := payload.District
	if district == "" {
		district = destination
	}

	day := domain.EnrichedDay{
		Date:     payload.Date,
		District: district,
	}
	if day.Date == "" {
		day.Date = time.Now().Format("2006-01-02")
	}

	for i, activity := range payload.Activities {
		if err := p.limiter.Wait(ctx); err != nil {
			return domain.EnrichedDay{}, err
		}

		res := p.resolveActivity(ctx, activity, i, district, destination, destCoords, districtCoords)

		// Nudge until the point no longer collides with an activity
		// already placed on this day.
		for hasDuplicate(day.Activities, res.lat, res.lng) {
			res.lat += (rand.Float64() - 0.5) * nudgeMagnitude
			res.lng += (rand.Float64() - 0.5) * nudgeMagnitude
		}

		name := activity.DisplayName()
		category := activity.Type
		if category == "" {
			category = guessCategory(name)
		}
		timeSlot := activity.Time
		if timeSlot == "" {
			timeSlot = defaultTimeSlot(i)
		}
		location := activity.Location
		if location == "" {
			location = district
		}

		day.Activities = append(day.Activities, domain.Activity{
			Name:               name,
			Time:               timeSlot,
			Category:           category,
			Lat:                res.lat,
			Lng:                res.lng,
			Location:           location,
			District:           district,
			Address:            activity.Address,
			SearchMethod:       res.method,
			DistanceFromCenter: res.distance,
		})
	}

	return day, nil
}

// resolution is the outcome of one activity's resolution ladder.
type resolution struct {
	lat      float64
	lng      float64
	method   domain.SearchMethod
	distance float64
}

// resolveActivity runs the explicit strategy ladder: address search,
// name search, offset synthesis. First success wins; synthesis always
// succeeds.
func (p *Pipeline) resolveActivity(ctx context.Context, activity domain.RawActivity, index int, district, destination string, destCoords domain.DestinationCoords, districtCoords map[string]domain.Coordinates) resolution {
	ref, radiusKm := p.reference(district, destCoords, districtCoords)

	sawError := false
	strategies := []func() (*resolution, error){
		func() (*resolution, error) {
			return p.byAddress(ctx, activity, destination, ref, radiusKm)
		},
		func() (*resolution, error) {
			return p.byName(ctx, activity, district, destination, ref, radiusKm)
		},
	}

	for _, try := range strategies {
		res, err := try()
		if err != nil {
			sawError = true
		}
		if res != nil {
			return *res
		}
	}

	return p.synthesize(activity, index, district, destCoords, sawError)
}

// reference picks the validation reference point and radius: the
// district point with the tight radius when known, the city center with
// the wide radius otherwise.
func (p *Pipeline) reference(district string, destCoords domain.DestinationCoords, districtCoords map[string]domain.Coordinates) (domain.Coordinates, float64) {
	if coords, ok := districtCoords[district]; ok {
		return coords, p.cfg.DistrictRadiusKm
	}
	return domain.Coordinates{Lat: destCoords.Lat, Lng: destCoords.Lng}, p.cfg.CityRadiusKm
}

func (p *Pipeline) byAddress(ctx context.Context, activity domain.RawActivity, destination string, ref domain.Coordinates, radiusKm float64) (*resolution, error) {
	if len(activity.Address) <= minAddressLength {
		return nil, nil
	}

	queries := []string{
		fmt.Sprintf("%s, %s", activity.Address, destination),
		activity.Address,
		fmt.Sprintf("%s, %s", activity.DisplayName(), destination),
	}
	cand, err := p.resolver.Resolve(ctx, queries, ref, radiusKm, addressJitterDeg)
	if cand == nil {
		return nil, err
	}
	return &resolution{
		lat:      cand.Lat,
		lng:      cand.Lng,
		method:   domain.SearchMethodAddress,
		distance: cand.DistanceFromCenter,
	}, nil
}

func (p *Pipeline) byName(ctx context.Context, activity domain.RawActivity, district, destination string, ref domain.Coordinates, radiusKm float64) (*resolution, error) {
	name := activity.DisplayName()
	queries := []string{
		fmt.Sprintf("%s, %s, %s", name, district, destination),
		fmt.Sprintf("%s, %s", name, destination),
		name,
	}
	cand, err := p.resolver.Resolve(ctx, queries, ref, radiusKm, nameJitterDeg)
	if cand == nil {
		return nil, err
	}
	return &resolution{
		lat:      cand.Lat,
		lng:      cand.Lng,
		method:   domain.SearchMethodName,
		distance: cand.DistanceFromCenter,
	}, nil
}

// synthesize is the terminal tier: a deterministic offset from the city
// center derived from the district name and activity index.
func (p *Pipeline) synthesize(activity domain.RawActivity, index int, district string, destCoords domain.DestinationCoords, sawError bool) resolution {
	offset := geo.DistrictOffset(district, index)
	lat := destCoords.Lat + offset.Lat
	lng := destCoords.Lng + offset.Lng

	method := domain.SearchMethodFallback
	if sawError {
		method = domain.SearchMethodError
	}

	p.log.Debug().Str("activity", activity.DisplayName()).Str("district", district).
		Str("method", string(method)).Msg("using synthesized coordinates")

	return resolution{
		lat:      lat,
		lng:      lng,
		method:   method,
		distance: geo.Distance(lat, lng, destCoords.Lat, destCoords.Lng),
	}
}

// hasDuplicate reports whether a point collides with any already-placed
// activity on the same day.
func hasDuplicate(placed []domain.Activity, lat, lng float64) bool {
	for _, existing := range placed {
		if math.Abs(existing.Lat-lat) < duplicateEpsilon && math.Abs(existing.Lng-lng) < duplicateEpsilon {
			return true
		}
	}
	return false
}

func activityLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
