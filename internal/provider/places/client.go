// Package places wraps the external places/POI provider.
package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/serendib/go-location-intel/internal/types"
)

// MaxCategoriesPerCall is the provider's limit on type filters per nearby
// search; the search engine partitions category sets into batches this size.
const MaxCategoriesPerCall = 3

// Client is the POI search contract the search engine depends on.
type Client interface {
	SearchNearby(ctx context.Context, coord types.Coordinate, radiusM int, categories []types.POICategory) ([]types.POI, error)
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient calls a Google Places style nearby-search endpoint.
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

type placesResponse struct {
	Results []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Types    []string `json:"types"`
		Vicinity string   `json:"vicinity"`
		Rating   float64  `json:"rating"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

// SearchNearby issues one batched nearby search. Results carry the mapped
// closed-enum category and the distance from the search origin.
func (c *HTTPClient) SearchNearby(ctx context.Context, coord types.Coordinate, radiusM int, categories []types.POICategory) ([]types.POI, error) {
	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = string(cat)
	}

	params := url.Values{}
	params.Set("location", coord.String())
	params.Set("radius", fmt.Sprintf("%d", radiusM))
	params.Set("type", strings.Join(names, "|"))
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build places request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: places: %v", types.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: places: %v", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: places returned status %d", types.ErrProviderUnavailable, resp.StatusCode)
	}

	var body placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding places response: %v", types.ErrProviderUnavailable, err)
	}

	if body.Status == "ZERO_RESULTS" {
		return []types.POI{}, nil
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("%w: places status %s", types.ErrProviderUnavailable, body.Status)
	}

	pois := make([]types.POI, 0, len(body.Results))
	for _, r := range body.Results {
		loc := types.Coordinate{Latitude: r.Geometry.Location.Lat, Longitude: r.Geometry.Location.Lng}
		pois = append(pois, types.POI{
			ProviderID:     r.PlaceID,
			Name:           r.Name,
			Category:       firstMappedCategory(r.Types),
			Location:       loc,
			Address:        r.Vicinity,
			Rating:         r.Rating,
			DistanceMeters: coord.DistanceMeters(loc),
		})
	}
	return pois, nil
}

// firstMappedCategory picks the first provider type that maps into the
// closed enum, skipping generic tags like point_of_interest.
func firstMappedCategory(rawTypes []string) types.POICategory {
	for _, raw := range rawTypes {
		if c := types.CategoryFromProvider(raw); c != types.CategoryOther {
			return c
		}
	}
	return types.CategoryOther
}
