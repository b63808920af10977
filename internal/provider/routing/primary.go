package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/serendib/go-location-intel/internal/types"
)

var _ Router = (*PrimaryClient)(nil)

// PrimaryClient calls a directions endpoint that returns full turn-by-turn
// steps (Google Directions style).
type PrimaryClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewPrimaryClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *PrimaryClient {
	return &PrimaryClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type directionsResponse struct {
	Routes []struct {
		Legs []struct {
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
			Steps []struct {
				HTMLInstructions string `json:"html_instructions"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
	Status string `json:"status"`
}

var travelModeParam = map[types.TravelMode]string{
	types.ModeDrive: "driving",
	types.ModeWalk:  "walking",
}

func (c *PrimaryClient) Route(ctx context.Context, origin, destination types.Coordinate, mode types.TravelMode) (*types.Route, error) {
	params := url.Values{}
	params.Set("origin", origin.String())
	params.Set("destination", destination.String())
	params.Set("mode", travelModeParam[mode])
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directions request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: directions: %v", types.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: directions: %v", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: directions returned status %d", types.ErrProviderUnavailable, resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding directions response: %v", types.ErrProviderUnavailable, err)
	}

	if body.Status == "ZERO_RESULTS" || len(body.Routes) == 0 || len(body.Routes[0].Legs) == 0 {
		return nil, types.ErrNoRoute
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("%w: directions status %s", types.ErrProviderUnavailable, body.Status)
	}

	leg := body.Routes[0].Legs[0]
	steps := make([]string, 0, len(leg.Steps))
	for _, s := range leg.Steps {
		steps = append(steps, s.HTMLInstructions)
	}

	return &types.Route{
		Origin:         origin,
		Destination:    destination,
		Mode:           mode,
		DistanceMeters: leg.Distance.Value,
		Duration:       time.Duration(leg.Duration.Value) * time.Second,
		Steps:          steps,
	}, nil
}
