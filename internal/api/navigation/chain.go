// Package navigation resolves routes through a tiered provider fallback
// chain that always produces a usable route for valid coordinates.
package navigation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/serendib/go-location-intel/internal/budget"
	"github.com/serendib/go-location-intel/internal/cache"
	"github.com/serendib/go-location-intel/internal/provider/routing"
	"github.com/serendib/go-location-intel/internal/types"
)

var _ Service = (*Chain)(nil)

// Service is the navigation contract the orchestrator depends on.
type Service interface {
	Resolve(ctx context.Context, origin, destination types.Coordinate, mode types.TravelMode, tracker *budget.Tracker) (*types.Route, bool)
	SelectAnchorCities(cities []types.City) []types.City
}

// tier is one fallback level: a router, its timeout, and the metadata
// stamped onto routes it produces.
type tier struct {
	number  int
	quality types.RouteQuality
	timeout time.Duration
	op      budget.Operation
	router  routing.Router
}

// Chain tries each provider tier in order and falls back to a local
// geodesic estimate when both providers fail, so Resolve never errors.
type Chain struct {
	logger *slog.Logger
	cache  *cache.ResultCache
	tiers  []tier
}

// Timeouts bounds each provider tier individually so one hung provider
// cannot exhaust the whole analysis budget.
type Timeouts struct {
	Primary time.Duration
	Legacy  time.Duration
}

// DefaultTimeouts used when config does not override them.
func DefaultTimeouts() Timeouts {
	return Timeouts{Primary: 5 * time.Second, Legacy: 3 * time.Second}
}

func NewChain(primary, legacy routing.Router, resultCache *cache.ResultCache, timeouts Timeouts, logger *slog.Logger) *Chain {
	return &Chain{
		logger: logger,
		cache:  resultCache,
		tiers: []tier{
			{number: 1, quality: types.QualityExact, timeout: timeouts.Primary, op: budget.OpRoutePrimary, router: primary},
			{number: 2, quality: types.QualityLegacy, timeout: timeouts.Legacy, op: budget.OpRouteLegacy, router: legacy},
		},
	}
}

// Resolve walks the tiers strictly in order and returns the first usable
// route, falling back to the geodesic estimate. The second return reports
// whether the route came from cache. Resolve never returns an error; the
// caller validated the coordinates.
func (c *Chain) Resolve(ctx context.Context, origin, destination types.Coordinate, mode types.TravelMode, tracker *budget.Tracker) (*types.Route, bool) {
	ctx, span := otel.Tracer("NavigationFallbackChain").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("mode", string(mode)),
	))
	defer span.End()

	key := cache.RouteKey(origin, destination, mode)
	if cached := c.cache.GetRoute(ctx, key); cached != nil {
		span.SetAttributes(attribute.Bool("cache_hit", true), attribute.String("quality", string(cached.Quality)))
		return cached, true
	}

	for _, t := range c.tiers {
		route, err := c.tryTier(ctx, t, origin, destination, mode, tracker)
		if err != nil {
			c.logger.WarnContext(ctx, "Routing tier failed, falling back",
				slog.Int("tier", t.number),
				slog.String("quality", string(t.quality)),
				slog.Any("error", err))
			span.AddEvent("tier failed", trace.WithAttributes(attribute.Int("tier", t.number)))
			continue
		}
		c.cache.SetRoute(ctx, key, route)
		span.SetAttributes(attribute.String("quality", string(route.Quality)))
		return route, false
	}

	route := estimateRoute(origin, destination, mode)
	span.SetAttributes(attribute.String("quality", string(route.Quality)))
	return route, false
}

func (c *Chain) tryTier(ctx context.Context, t tier, origin, destination types.Coordinate, mode types.TravelMode, tracker *budget.Tracker) (*types.Route, error) {
	tierCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	route, err := t.router.Route(tierCtx, origin, destination, mode)
	if err != nil {
		return nil, err
	}
	tracker.ChargeOp(t.op)
	route.SourceTier = t.number
	route.Quality = t.quality
	return route, nil
}
