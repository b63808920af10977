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

var _ Router = (*LegacyClient)(nil)

// LegacyClient calls the older distance-matrix endpoint. It answers with
// distance and duration only, so routes it produces get a single generic
// step and the legacy quality tag.
type LegacyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewLegacyClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *LegacyClient {
	return &LegacyClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type matrixResponse struct {
	Rows []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
	Status string `json:"status"`
}

func (c *LegacyClient) Route(ctx context.Context, origin, destination types.Coordinate, mode types.TravelMode) (*types.Route, error) {
	params := url.Values{}
	params.Set("origins", origin.String())
	params.Set("destinations", destination.String())
	params.Set("mode", travelModeParam[mode])
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build distance matrix request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: distance matrix: %v", types.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: distance matrix: %v", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: distance matrix returned status %d", types.ErrProviderUnavailable, resp.StatusCode)
	}

	var body matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding distance matrix response: %v", types.ErrProviderUnavailable, err)
	}

	if body.Status != "OK" || len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		return nil, fmt.Errorf("%w: distance matrix status %s", types.ErrProviderUnavailable, body.Status)
	}
	element := body.Rows[0].Elements[0]
	if element.Status != "OK" {
		return nil, types.ErrNoRoute
	}

	return &types.Route{
		Origin:         origin,
		Destination:    destination,
		Mode:           mode,
		DistanceMeters: element.Distance.Value,
		Duration:       time.Duration(element.Duration.Value) * time.Second,
		Steps: []string{
			fmt.Sprintf("Travel %.1f km toward the destination", element.Distance.Value/1000),
		},
	}, nil
}
