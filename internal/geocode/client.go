package geocode

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"voyage/internal/config"
)

// Result is a single geocoding candidate returned by the search backend.
type Result struct {
	Name        string  `json:"name"`
	Country     string  `json:"country"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
}

// nominatimResult is the wire format of the upstream search API.
type nominatimResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		Country string `json:"country"`
	} `json:"address"`
}

// Client issues geocoding queries against a Nominatim-compatible backend.
// A shared rate limiter enforces the politeness delay between successive
// queries.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a geocoding client from configuration.
func NewClient(cfg config.GeocodeConfig, logger zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.SearchURL).
		SetHeader("User-Agent", cfg.UserAgent).
		SetTimeout(cfg.Timeout)

	return &Client{
		http:    httpClient,
		limiter: newLimiter(cfg.QueryDelay),
		log:     logger.With().Str("component", "geocode").Logger(),
	}
}

// Search resolves a free-text query to an ordered list of candidates.
// An empty result set is not an error; callers decide how to degrade.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var raw []nominatimResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":      query,
			"format": "json",
			"limit":  "10",
		}).
		SetResult(&raw).
		Get("")
	if err != nil {
		return nil, fmt.Errorf("geocode search %q: %w", query, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geocode search %q: unexpected status %d", query, resp.StatusCode())
	}

	results := make([]Result, 0, len(raw))
	for _, r := range raw {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lng, lngErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lngErr != nil {
			continue
		}
		results = append(results, Result{
			Name:        firstSegment(r.DisplayName),
			Country:     orUnknown(r.Address.Country),
			Lat:         lat,
			Lng:         lng,
			Description: r.DisplayName,
		})
	}

	c.log.Debug().Str("query", query).Int("results", len(results)).Msg("search completed")
	return results, nil
}

// newLimiter builds a limiter that spaces events by the given delay.
// A non-positive delay disables throttling.
func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

func firstSegment(displayName string) string {
	for i := 0; i < len(displayName); i++ {
		if displayName[i] == ',' {
			return displayName[:i]
		}
	}
	return displayName
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
