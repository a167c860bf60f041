package domain

import "encoding/json"

// SearchMethod records how an activity's coordinates were obtained.
type SearchMethod string

const (
	SearchMethodAddress  SearchMethod = "address"  // geocoded from a street address
	SearchMethodName     SearchMethod = "name"     // geocoded from the activity name
	SearchMethodFallback SearchMethod = "fallback" // synthesized district offset
	SearchMethodError    SearchMethod = "error"    // synthesized after a resolver error
)

// Coordinates is a latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DestinationCoords is the resolved city-level reference point. All
// distance validation during enrichment is measured against it.
type DestinationCoords struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	CityName string  `json:"city_name"`
}

// RawItinerary is the planner output: a document keyed by day label
// ("Day 1", "Day 2", ...). Day values arrive in one of three shapes,
// so they stay undecoded until normalization.
type RawItinerary map[string]json.RawMessage

// DayShape tags the decoded form of one raw day value.
type DayShape int

const (
	DayShapeUnknown   DayShape = iota
	DayShapeList               // ordered array of activities
	DayShapeWrapper            // object with an "activities" array
	DayShapeTimeKeyed          // object keyed by time labels ("09:00")
)

// RawActivity is a single activity as produced by the planner, before
// coordinate enrichment. Title and Name are alternates; either may be set.
type RawActivity struct {
	Title    string `json:"title"`
	Name     string `json:"name"`
	Time     string `json:"time"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Address  string `json:"address"`
}

// DisplayName returns the activity's human-readable name.
func (a RawActivity) DisplayName() string {
	if a.Title != "" {
		return a.Title
	}
	if a.Name != "" {
		return a.Name
	}
	return "Unknown Activity"
}

// DayPayload is the normalized form of one raw day: shape tag, metadata
// and a flat ordered activity list.
type DayPayload struct {
	Shape      DayShape
	Date       string
	District   string
	Activities []RawActivity
}

// Activity is a normalized, coordinate-enriched itinerary entry.
// Immutable once produced by the pipeline.
type Activity struct {
	Name               string       `json:"name"`
	Time               string       `json:"time"`
	Category           string       `json:"type"`
	Lat                float64      `json:"lat"`
	Lng                float64      `json:"lng"`
	Location           string       `json:"location"`
	District           string       `json:"district"`
	Address            string       `json:"address,omitempty"`
	SearchMethod       SearchMethod `json:"search_method"`
	DistanceFromCenter float64      `json:"distance_from_center_m"`
}

// EnrichedDay is one day of an enriched itinerary.
type EnrichedDay struct {
	Date       string     `json:"date"`
	District   string     `json:"district"`
	Activities []Activity `json:"activities"`
}

// EnrichedItinerary is the pipeline output: enriched days, their display
// order, and the destination reference point used during enrichment.
type EnrichedItinerary struct {
	Days        map[string]EnrichedDay `json:"days"`
	DayOrder    []string               `json:"day_order"`
	Destination DestinationCoords      `json:"destination"`
}
