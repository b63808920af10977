// Package geocode wraps the external reverse-geocoding provider.
package geocode

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

// Client is the reverse-geocoding contract the orchestrator depends on.
type Client interface {
	Reverse(ctx context.Context, coord types.Coordinate) (*types.GeocodeResult, error)
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient calls a Google-style geocoding endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type geocodeResponse struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			LocationType string `json:"location_type"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// Reverse resolves a coordinate into a formatted address. A provider
// ZERO_RESULTS answer is returned as nil result, nil error.
func (c *HTTPClient) Reverse(ctx context.Context, coord types.Coordinate) (*types.GeocodeResult, error) {
	params := url.Values{}
	params.Set("latlng", coord.String())
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: geocode: %v", types.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: geocode: %v", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: geocode returned status %d", types.ErrProviderUnavailable, resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding geocode response: %v", types.ErrProviderUnavailable, err)
	}

	if body.Status == "ZERO_RESULTS" || len(body.Results) == 0 {
		return nil, nil
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("%w: geocode status %s", types.ErrProviderUnavailable, body.Status)
	}

	best := body.Results[0]
	confidence := "low"
	switch best.Geometry.LocationType {
	case "ROOFTOP", "RANGE_INTERPOLATED":
		confidence = "high"
	case "GEOMETRIC_CENTER":
		confidence = "medium"
	}

	return &types.GeocodeResult{
		FormattedAddress: best.FormattedAddress,
		Confidence:       confidence,
	}, nil
}
