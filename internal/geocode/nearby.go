package geocode

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"voyage/internal/config"
	"voyage/internal/geo"
)

// maxNearbyRadiusMeters caps nearby searches to keep Overpass queries cheap.
const maxNearbyRadiusMeters = 5000

// POI is a nearby point of interest.
type POI struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Distance float64 `json:"distance"` // meters from the query point
}

type overpassResponse struct {
	Elements []struct {
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// NearbyClient finds points of interest around a coordinate using an
// Overpass-compatible backend.
type NearbyClient struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewNearbyClient creates a nearby-POI client from configuration.
func NewNearbyClient(cfg config.GeocodeConfig, logger zerolog.Logger) *NearbyClient {
	httpClient := resty.New().
		SetBaseURL(cfg.OverpassURL).
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(cfg.Timeout)

	return &NearbyClient{
		http: httpClient,
		log:  logger.With().Str("component", "nearby").Logger(),
	}
}

// Nearby returns POIs within radius meters of the point, sorted by
// distance ascending. Radius is clamped to maxNearbyRadiusMeters.
func (c *NearbyClient) Nearby(ctx context.Context, lat, lng float64, radius int) ([]POI, error) {
	if radius <= 0 {
		radius = 1000
	}
	if radius > maxNearbyRadiusMeters {
		radius = maxNearbyRadiusMeters
	}

	query := fmt.Sprintf(`[out:json];
(
  node["tourism"](around:%d,%f,%f);
  node["amenity"="restaurant"](around:%d,%f,%f);
  node["amenity"="cafe"](around:%d,%f,%f);
  node["historic"](around:%d,%f,%f);
  node["leisure"="park"](around:%d,%f,%f);
);
out body;`,
		radius, lat, lng, radius, lat, lng, radius, lat, lng, radius, lat, lng, radius, lat, lng)

	var decoded overpassResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"data": query}).
		SetResult(&decoded).
		Post("")
	if err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("nearby search: unexpected status %d", resp.StatusCode())
	}

	pois := make([]POI, 0, len(decoded.Elements))
	for _, el := range decoded.Elements {
		name := el.Tags["name"]
		if name == "" || (el.Lat == 0 && el.Lon == 0) {
			continue
		}
		pois = append(pois, POI{
			Name:     name,
			Type:     classifyTags(el.Tags),
			Lat:      el.Lat,
			Lng:      el.Lon,
			Distance: geo.Distance(lat, lng, el.Lat, el.Lon),
		})
	}

	sort.Slice(pois, func(i, j int) bool { return pois[i].Distance < pois[j].Distance })

	c.log.Debug().Float64("lat", lat).Float64("lng", lng).Int("radius", radius).
		Int("results", len(pois)).Msg("nearby search completed")
	return pois, nil
}

// classifyTags maps OSM tags to the coarse POI types the frontend renders.
func classifyTags(tags map[string]string) string {
	switch {
	case tags["amenity"] == "restaurant":
		return "restaurant"
	case tags["amenity"] == "cafe":
		return "cafe"
	case tags["tourism"] == "museum":
		return "museum"
	case tags["historic"] != "":
		return "landmark"
	case tags["leisure"] == "park":
		return "park"
	case tags["tourism"] != "":
		return tags["tourism"]
	default:
		return "attraction"
	}
}
