package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"voyage/internal/config"
	"voyage/internal/domain"
)

// maxRetries bounds transient-failure retries per generation request.
const maxRetries = 3

// Request describes one itinerary generation job.
type Request struct {
	Destination string              `json:"destination"`
	StartDate   string              `json:"start_date"`
	EndDate     string              `json:"end_date"`
	Budget      float64             `json:"budget,omitempty"`
	Preferences []domain.Preference `json:"preferences,omitempty"`
}

type generateResponse struct {
	Itinerary json.RawMessage `json:"itinerary"`
	Error     string          `json:"error,omitempty"`
}

// Client calls the upstream itinerary planner. Generation is slow and
// occasionally flaky, so transient failures retry with exponential
// backoff before giving up.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// NewClient creates a planner client from configuration.
func NewClient(cfg config.PlannerConfig, logger zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	return &Client{
		http: httpClient,
		log:  logger.With().Str("component", "planner").Logger(),
	}
}

// Generate requests a full itinerary for the trip. The returned payload
// is the planner's raw day structure, keys and shapes untouched.
func (c *Client) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	var itinerary json.RawMessage

	operation := func() error {
		var decoded generateResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&decoded).
			Post("/generate")
		if err != nil {
			return err
		}
		if resp.StatusCode() >= 500 {
			return fmt.Errorf("planner returned status %d", resp.StatusCode())
		}
		if resp.IsError() {
			return backoff.Permanent(fmt.Errorf("planner rejected request: status %d", resp.StatusCode()))
		}
		if decoded.Error != "" {
			return backoff.Permanent(fmt.Errorf("planner error: %s", decoded.Error))
		}
		if len(decoded.Itinerary) == 0 {
			return backoff.Permanent(fmt.Errorf("planner returned empty itinerary"))
		}

		itinerary = decoded.Itinerary
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries),
		ctx,
	)
	notify := func(err error, next time.Duration) {
		c.log.Warn().Err(err).Dur("retry_in", next).Str("destination", req.Destination).
			Msg("planner request failed, retrying")
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("generate itinerary: %w", err)
	}

	c.log.Info().Str("destination", req.Destination).Msg("itinerary generated")
	return itinerary, nil
}
