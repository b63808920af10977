package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/serendib/go-location-intel/internal/types"
)

// Operation namespaces cache keys so different result types can never
// collide even for identical parameters.
type Operation string

const (
	OpGeocode   Operation = "geocode"
	OpPlaces    Operation = "places"
	OpRoute     Operation = "route"
	OpStaticMap Operation = "staticmap"
)

// keyPrecision is the number of decimal places coordinates are rounded to
// when building keys (~11m), so nearby repeat requests share entries.
const keyPrecision = 4

// TTLPolicy sets expiry per operation. Static imagery changes least so it
// caches longest; routes change most (traffic) so they cache shortest.
type TTLPolicy struct {
	Geocode   time.Duration
	Places    time.Duration
	Route     time.Duration
	StaticMap time.Duration
}

// DefaultTTLPolicy is used when config does not override expiries.
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{
		Geocode:   24 * time.Hour,
		Places:    6 * time.Hour,
		Route:     1 * time.Hour,
		StaticMap: 7 * 24 * time.Hour,
	}
}

func (p TTLPolicy) For(op Operation) time.Duration {
	switch op {
	case OpGeocode:
		return p.Geocode
	case OpPlaces:
		return p.Places
	case OpRoute:
		return p.Route
	case OpStaticMap:
		return p.StaticMap
	}
	return time.Hour
}

// Store is the backing key/value store with expiry. Reads of expired keys
// must return a miss even if the value is still physically present.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
}

// GeocodeKey builds the cache key for a reverse-geocode lookup.
func GeocodeKey(coord types.Coordinate) string {
	return buildKey(OpGeocode, coord.Rounded(keyPrecision).String())
}

// PlacesKey builds the cache key for one POI batch call. Categories are
// sorted so the key is independent of request ordering.
func PlacesKey(coord types.Coordinate, radiusM int, categories []types.POICategory) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	sort.Strings(names)
	return buildKey(OpPlaces,
		coord.Rounded(keyPrecision).String(),
		fmt.Sprintf("r%d", radiusM),
		strings.Join(names, "+"),
	)
}

// RouteKey builds the cache key for a route resolution.
func RouteKey(origin, destination types.Coordinate, mode types.TravelMode) string {
	return buildKey(OpRoute,
		origin.Rounded(keyPrecision).String(),
		destination.Rounded(keyPrecision).String(),
		string(mode),
	)
}

// StaticMapKey builds the cache key for a static map render.
func StaticMapKey(coord types.Coordinate, zoom, width, height int) string {
	return buildKey(OpStaticMap,
		coord.Rounded(keyPrecision).String(),
		fmt.Sprintf("z%d", zoom),
		fmt.Sprintf("%dx%d", width, height),
	)
}

func buildKey(op Operation, parts ...string) string {
	return string(op) + ":" + strings.Join(parts, ":")
}

// ResultCache fronts all external provider calls with typed, TTL-bound
// entries. It is injected into the search engines and the orchestrator;
// there is no package-level singleton.
type ResultCache struct {
	store  Store
	ttl    TTLPolicy
	logger *slog.Logger
}

func NewResultCache(store Store, ttl TTLPolicy, logger *slog.Logger) *ResultCache {
	return &ResultCache{store: store, ttl: ttl, logger: logger}
}

// GetGeocode returns a cached reverse-geocode result, or nil on a miss.
func (c *ResultCache) GetGeocode(ctx context.Context, key string) *types.GeocodeResult {
	var out types.GeocodeResult
	if !c.get(ctx, key, &out) {
		return nil
	}
	return &out
}

func (c *ResultCache) SetGeocode(ctx context.Context, key string, v *types.GeocodeResult) {
	c.set(ctx, key, v, c.ttl.For(OpGeocode))
}

// GetPOIBatch returns a cached batch of POIs, or nil on a miss. An empty
// non-nil slice is a valid cached "no results" answer.
func (c *ResultCache) GetPOIBatch(ctx context.Context, key string) []types.POI {
	out := []types.POI{}
	if !c.get(ctx, key, &out) {
		return nil
	}
	return out
}

func (c *ResultCache) SetPOIBatch(ctx context.Context, key string, v []types.POI) {
	if v == nil {
		v = []types.POI{}
	}
	c.set(ctx, key, v, c.ttl.For(OpPlaces))
}

// GetRoute returns a cached route, or nil on a miss. Only exact and legacy
// routes are cached; estimated routes are cheap to recompute.
func (c *ResultCache) GetRoute(ctx context.Context, key string) *types.Route {
	var out types.Route
	if !c.get(ctx, key, &out) {
		return nil
	}
	return &out
}

func (c *ResultCache) SetRoute(ctx context.Context, key string, v *types.Route) {
	c.set(ctx, key, v, c.ttl.For(OpRoute))
}

// GetStaticMap returns cached map image bytes, or nil on a miss. Images
// are stored raw rather than JSON-encoded.
func (c *ResultCache) GetStaticMap(ctx context.Context, key string) []byte {
	raw, ok := c.store.Get(ctx, key)
	if !ok {
		return nil
	}
	return raw
}

func (c *ResultCache) SetStaticMap(ctx context.Context, key string, img []byte) {
	if len(img) == 0 {
		return
	}
	c.store.Set(ctx, key, img, c.ttl.For(OpStaticMap))
}

func (c *ResultCache) get(ctx context.Context, key string, dst any) bool {
	raw, ok := c.store.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.logger.WarnContext(ctx, "Discarding undecodable cache entry",
			slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

func (c *ResultCache) set(ctx context.Context, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to marshal cache payload",
			slog.String("key", key), slog.Any("error", err))
		return
	}
	c.store.Set(ctx, key, raw, ttl)
}
