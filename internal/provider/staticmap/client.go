// Package staticmap wraps the external static map imagery provider.
package staticmap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/serendib/go-location-intel/internal/types"
)

// maxImageBytes caps how much image payload is read from the provider.
const maxImageBytes = 4 << 20

// Client is the static map imagery contract.
type Client interface {
	Fetch(ctx context.Context, coord types.Coordinate, zoom, width, height int) ([]byte, error)
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient calls a Google-style static map endpoint and returns the raw
// image bytes.
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

// Fetch retrieves a map image centered on coord with a marker at the same
// point.
func (c *HTTPClient) Fetch(ctx context.Context, coord types.Coordinate, zoom, width, height int) ([]byte, error) {
	params := url.Values{}
	params.Set("center", coord.String())
	params.Set("zoom", fmt.Sprintf("%d", zoom))
	params.Set("size", fmt.Sprintf("%dx%d", width, height))
	params.Set("markers", coord.String())
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build static map request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: static map: %v", types.ErrProviderTimeout, err)
		}
		return nil, fmt.Errorf("%w: static map: %v", types.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: static map returned status %d", types.ErrProviderUnavailable, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: static map returned content type %s", types.ErrProviderUnavailable, ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading static map body: %v", types.ErrProviderUnavailable, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: static map returned an empty body", types.ErrProviderUnavailable)
	}
	return data, nil
}
