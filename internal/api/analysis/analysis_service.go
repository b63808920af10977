// Package analysis composes the spatial index, POI search, geocoding and
// navigation into the single location-analysis operation exposed to the
// rest of the application.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/serendib/go-location-intel/app/observability/metrics"
	"github.com/serendib/go-location-intel/internal/api/navigation"
	"github.com/serendib/go-location-intel/internal/api/poisearch"
	"github.com/serendib/go-location-intel/internal/api/spatial"
	"github.com/serendib/go-location-intel/internal/api/staticmap"
	"github.com/serendib/go-location-intel/internal/budget"
	"github.com/serendib/go-location-intel/internal/cache"
	"github.com/serendib/go-location-intel/internal/provider/geocode"
	"github.com/serendib/go-location-intel/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the sole contract the rest of the application depends on.
type Service interface {
	Analyze(ctx context.Context, coord types.Coordinate, radiusKm float64, categories []types.POICategory) (*types.LocationAnalysis, error)
}

// Options tune one orchestrator instance; zero values fall back to the
// defaults below.
type Options struct {
	OverallTimeout time.Duration
	CityRadiusKm   float64
	CityLimit      int
	POIRadiusM     int
	TravelMode     types.TravelMode
	BudgetCeiling  float64
}

func (o Options) withDefaults() Options {
	if o.OverallTimeout <= 0 {
		o.OverallTimeout = 30 * time.Second
	}
	if o.CityRadiusKm <= 0 {
		o.CityRadiusKm = 50
	}
	if o.CityLimit <= 0 {
		o.CityLimit = 5
	}
	if o.POIRadiusM <= 0 {
		o.POIRadiusM = 2000
	}
	if o.TravelMode == "" {
		o.TravelMode = types.ModeDrive
	}
	if o.BudgetCeiling == 0 {
		o.BudgetCeiling = 25
	}
	return o
}

type ServiceImpl struct {
	logger    *slog.Logger
	geocoder  geocode.Client
	cities    spatial.Service
	poiEngine poisearch.Engine
	nav       navigation.Service
	maps      staticmap.Service
	cache     *cache.ResultCache
	opts      Options
}

// NewServiceImpl wires the orchestrator. A nil maps service disables the
// static-map preview section.
func NewServiceImpl(geocoder geocode.Client, cities spatial.Service, poiEngine poisearch.Engine, nav navigation.Service, maps staticmap.Service, resultCache *cache.ResultCache, opts Options, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		geocoder:  geocoder,
		cities:    cities,
		poiEngine: poiEngine,
		nav:       nav,
		maps:      maps,
		cache:     resultCache,
		opts:      opts.withDefaults(),
	}
}

// analysisState collects subsystem results as the concurrent subtasks
// complete. Guarded by mu; the per-request budget tracker locks itself.
type analysisState struct {
	mu sync.Mutex

	address     *types.GeocodeResult
	geocodeHit  bool
	geocodeErr  error
	cities      []types.City
	cityErr     error
	poiResult   *poisearch.SearchResult
	poiErr      error
	routes      []types.Route
	routesTried int
	routesHit   int
	mapReady    bool
	mapHit      bool
	mapErr      error
}

// Analyze validates the coordinate, fans out the independent subtasks,
// resolves navigation per anchor city once the city lookup lands, and
// aggregates everything into one LocationAnalysis. Only an invalid
// coordinate fails the call; every other failure degrades its own section.
func (s *ServiceImpl) Analyze(ctx context.Context, coord types.Coordinate, radiusKm float64, categories []types.POICategory) (*types.LocationAnalysis, error) {
	ctx, span := otel.Tracer("LocationAnalysis").Start(ctx, "Analyze", trace.WithAttributes(
		attribute.Float64("radius_km", radiusKm),
	))
	defer span.End()

	if err := coord.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid coordinate")
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = s.opts.CityRadiusKm
	}

	tracker := budget.NewTracker(s.opts.BudgetCeiling)
	state := &analysisState{}

	ctx, cancel := context.WithTimeout(ctx, s.opts.OverallTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.runGeocode(gctx, coord, tracker, state)
		return nil
	})
	g.Go(func() error {
		s.runPOISearch(gctx, coord, categories, tracker, state)
		return nil
	})
	g.Go(func() error {
		// Navigation fans out from inside the city lookup task so route
		// resolution starts the moment anchors are known.
		s.runCityLookupAndNavigation(gctx, g, coord, radiusKm, tracker, state)
		return nil
	})
	if s.maps != nil {
		g.Go(func() error {
			s.runStaticMap(gctx, coord, tracker, state)
			return nil
		})
	}

	// Subtasks never propagate errors; Wait only joins them.
	_ = g.Wait()

	return s.aggregate(ctx, span, coord, tracker, state), nil
}

func (s *ServiceImpl) runGeocode(ctx context.Context, coord types.Coordinate, tracker *budget.Tracker, state *analysisState) {
	key := cache.GeocodeKey(coord)
	if cached := s.cache.GetGeocode(ctx, key); cached != nil {
		state.mu.Lock()
		state.address, state.geocodeHit = cached, true
		state.mu.Unlock()
		return
	}

	addr, err := s.geocoder.Reverse(ctx, coord)
	if err != nil {
		s.logger.WarnContext(ctx, "Geocode subsystem degraded",
			slog.String("subsystem", "geocode"), slog.Any("error", err))
		metrics.Get().ProviderErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("subsystem", "geocode")))
		state.mu.Lock()
		state.geocodeErr = err
		state.mu.Unlock()
		return
	}
	tracker.ChargeOp(budget.OpGeocode)
	if addr != nil {
		s.cache.SetGeocode(ctx, key, addr)
	}
	state.mu.Lock()
	state.address = addr
	state.mu.Unlock()
}

func (s *ServiceImpl) runPOISearch(ctx context.Context, coord types.Coordinate, categories []types.POICategory, tracker *budget.Tracker, state *analysisState) {
	result, err := s.poiEngine.Search(ctx, coord, categories, s.opts.POIRadiusM, tracker)
	state.mu.Lock()
	defer state.mu.Unlock()
	if err != nil {
		s.logger.WarnContext(ctx, "POI subsystem degraded",
			slog.String("subsystem", "poi"), slog.Any("error", err))
		metrics.Get().ProviderErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("subsystem", "poi")))
		state.poiErr = err
		return
	}
	state.poiResult = result
}

// runStaticMap warms the map-image cache so the preview URL reported in
// the analysis resolves instantly. Rendering is optional work; a budget
// skip leaves the URL out without degrading the result.
func (s *ServiceImpl) runStaticMap(ctx context.Context, coord types.Coordinate, tracker *budget.Tracker, state *analysisState) {
	result, err := s.maps.Image(ctx, coord, tracker)
	state.mu.Lock()
	defer state.mu.Unlock()
	if err != nil {
		s.logger.WarnContext(ctx, "Static map subsystem degraded",
			slog.String("subsystem", "staticmap"), slog.Any("error", err))
		metrics.Get().ProviderErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("subsystem", "staticmap")))
		state.mapErr = err
		return
	}
	state.mapReady = !result.Skipped
	state.mapHit = result.CacheHit
}

func (s *ServiceImpl) runCityLookupAndNavigation(ctx context.Context, g *errgroup.Group, coord types.Coordinate, radiusKm float64, tracker *budget.Tracker, state *analysisState) {
	cities, err := s.cities.NearbyCities(ctx, coord, radiusKm, s.opts.CityLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "City lookup subsystem degraded",
			slog.String("subsystem", "spatial"), slog.Any("error", err))
		metrics.Get().ProviderErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("subsystem", "spatial")))
		state.mu.Lock()
		state.cityErr = err
		state.mu.Unlock()
		return
	}
	state.mu.Lock()
	state.cities = cities
	state.mu.Unlock()

	anchors := s.nav.SelectAnchorCities(cities)
	for i, anchor := range anchors {
		// The nearest two anchors are core work; the third is optional
		// and skipped when it would breach the ceiling.
		if i >= 2 && tracker.WouldExceedOp(budget.OpRoutePrimary) {
			tracker.MarkSkipped()
			s.logger.InfoContext(ctx, "Skipping anchor-city route, budget exhausted",
				slog.String("city", anchor.Name))
			continue
		}
		anchor := anchor
		g.Go(func() error {
			route, hit := s.nav.Resolve(ctx, anchor.Location, coord, s.opts.TravelMode, tracker)
			route.OriginCity = anchor.Name
			state.mu.Lock()
			state.routes = append(state.routes, *route)
			state.routesTried++
			if hit {
				state.routesHit++
			}
			state.mu.Unlock()
			return nil
		})
	}
}

func (s *ServiceImpl) aggregate(ctx context.Context, span trace.Span, coord types.Coordinate, tracker *budget.Tracker, state *analysisState) *types.LocationAnalysis {
	state.mu.Lock()
	defer state.mu.Unlock()

	grouped := map[types.POICategory][]types.POI{}
	poiHit := false
	if state.poiResult != nil {
		poiHit = state.poiResult.CacheHit
		for _, p := range state.poiResult.POIs {
			grouped[p.Category] = append(grouped[p.Category], p)
		}
	}

	// Anchor ordering is deterministic regardless of which navigation
	// goroutine finished first.
	sortRoutesByAnchorOrder(state.routes, state.cities)

	status := types.StatusComplete
	switch {
	case state.geocodeErr != nil, state.cityErr != nil, state.poiErr != nil, state.mapErr != nil:
		status = types.StatusPartialComplete
	case state.poiResult != nil && state.poiResult.Degraded:
		status = types.StatusPartialComplete
	case tracker.Skipped() > 0:
		status = types.StatusPartialComplete
	case hasEstimatedRoute(state.routes):
		status = types.StatusPartialComplete
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = types.StatusPartialComplete
	}

	mapURL := ""
	if state.mapReady {
		mapURL = fmt.Sprintf("/api/v1/staticmap?lat=%.6f&lon=%.6f", coord.Latitude, coord.Longitude)
	}

	analysis := &types.LocationAnalysis{
		Coordinate: coord,
		Address:    state.address,
		Cities:     state.cities,
		POIs:       grouped,
		Routes:     state.routes,
		MapURL:     mapURL,
		Cost: types.CostSummary{
			TotalUnits:     tracker.Total(),
			CeilingUnits:   tracker.Ceiling(),
			SkippedWork:    tracker.Skipped(),
			RemainingUnits: tracker.Remaining(),
		},
		CacheHits: types.CacheFlags{
			Geocode:   state.geocodeHit,
			POI:       poiHit,
			Routes:    state.routesTried > 0 && state.routesHit == state.routesTried,
			StaticMap: state.mapHit,
		},
		Status: status,
	}

	span.SetAttributes(
		attribute.String("status", string(status)),
		attribute.Int("cities.count", len(analysis.Cities)),
		attribute.Int("routes.count", len(analysis.Routes)),
		attribute.Float64("cost.total", analysis.Cost.TotalUnits),
	)
	return analysis
}

func hasEstimatedRoute(routes []types.Route) bool {
	for _, r := range routes {
		if r.Quality == types.QualityEstimated {
			return true
		}
	}
	return false
}

// sortRoutesByAnchorOrder restores the distance-ranked anchor order the
// city lookup produced.
func sortRoutesByAnchorOrder(routes []types.Route, cities []types.City) {
	rank := map[string]int{}
	for i, c := range cities {
		rank[c.Name] = i
	}
	for i := 1; i < len(routes); i++ {
		for j := i; j > 0 && rank[routes[j].OriginCity] < rank[routes[j-1].OriginCity]; j-- {
			routes[j], routes[j-1] = routes[j-1], routes[j]
		}
	}
}
