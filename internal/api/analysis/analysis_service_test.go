package analysis

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/serendib/go-location-intel/app/observability/metrics"
	"github.com/serendib/go-location-intel/internal/api/poisearch"
	"github.com/serendib/go-location-intel/internal/api/staticmap"
	"github.com/serendib/go-location-intel/internal/budget"
	"github.com/serendib/go-location-intel/internal/cache"
	"github.com/serendib/go-location-intel/internal/types"
)

// --- Mocks ---

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Reverse(ctx context.Context, coord types.Coordinate) (*types.GeocodeResult, error) {
	args := m.Called(ctx, coord)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.GeocodeResult), args.Error(1)
}

type MockCityService struct {
	mock.Mock
}

func (m *MockCityService) NearestCity(ctx context.Context, coord types.Coordinate, maxRadiusKm float64) (*types.City, error) {
	args := m.Called(ctx, coord, maxRadiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.City), args.Error(1)
}

func (m *MockCityService) NearbyCities(ctx context.Context, coord types.Coordinate, maxRadiusKm float64, limit int) ([]types.City, error) {
	args := m.Called(ctx, coord, maxRadiusKm, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.City), args.Error(1)
}

type MockPOIEngine struct {
	mock.Mock
}

func (m *MockPOIEngine) Search(ctx context.Context, coord types.Coordinate, categories []types.POICategory, initialRadiusM int, tracker *budget.Tracker) (*poisearch.SearchResult, error) {
	args := m.Called(ctx, coord, categories, initialRadiusM, tracker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*poisearch.SearchResult), args.Error(1)
}

type MockNavService struct {
	mock.Mock
}

func (m *MockNavService) Resolve(ctx context.Context, origin, destination types.Coordinate, mode types.TravelMode, tracker *budget.Tracker) (*types.Route, bool) {
	args := m.Called(ctx, origin, destination, mode, tracker)
	return args.Get(0).(*types.Route), args.Bool(1)
}

func (m *MockNavService) SelectAnchorCities(cities []types.City) []types.City {
	args := m.Called(cities)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]types.City)
}

// --- Fixtures ---

var testCoord = types.Coordinate{Latitude: 6.9271, Longitude: 79.8612}

func testCities() []types.City {
	return []types.City{
		{Name: "Colombo", Country: "Sri Lanka", Location: types.Coordinate{Latitude: 6.9271, Longitude: 79.8612}, Population: 752993, IsMajorCity: true, PopulationTier: types.TierMajor},
		{Name: "Sri Jayawardenepura Kotte", Country: "Sri Lanka", Location: types.Coordinate{Latitude: 6.9108, Longitude: 79.8878}, Population: 115826, PopulationTier: types.TierMedium},
		{Name: "Negombo", Country: "Sri Lanka", Location: types.Coordinate{Latitude: 7.2083, Longitude: 79.8358}, Population: 142136, IsMajorCity: true, PopulationTier: types.TierMajor},
	}
}

func exactRoute(origin types.Coordinate) *types.Route {
	return &types.Route{
		Origin:         origin,
		Destination:    testCoord,
		Mode:           types.ModeDrive,
		DistanceMeters: 4200,
		Duration:       7 * time.Minute,
		SourceTier:     1,
		Quality:        types.QualityExact,
	}
}

func newTestService(g *MockGeocoder, c *MockCityService, p *MockPOIEngine, n *MockNavService, opts Options) (*ServiceImpl, *cache.ResultCache) {
	metrics.InitAppMetrics()
	logger := slog.New(slog.NewTextHandler(testWriter{}, nil))
	resultCache := cache.NewResultCache(cache.NewMemoryStore(time.Minute), cache.DefaultTTLPolicy(), logger)
	return NewServiceImpl(g, c, p, n, nil, resultCache, opts, logger), resultCache
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

// --- Tests ---

func TestAnalyze_HappyPathIsComplete(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)

	cities := testCities()
	addr := &types.GeocodeResult{FormattedAddress: "Galle Road, Colombo, Sri Lanka"}

	geocoder.On("Reverse", mock.Anything, testCoord).Return(addr, nil).Once()
	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(cities, nil).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{
		POIs: []types.POI{
			{Name: "Ministry of Crab", Category: types.CategoryRestaurant},
			{Name: "Royal College", Category: types.CategorySchool},
			{Name: "Upali's", Category: types.CategoryRestaurant},
		},
		RadiusM: 2000,
		Rounds:  1,
	}, nil).Once()
	nav.On("SelectAnchorCities", cities).Return(cities[:2]).Once()
	nav.On("Resolve", mock.Anything, cities[0].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[0].Location), false).Once()
	nav.On("Resolve", mock.Anything, cities[1].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[1].Location), false).Once()

	svc, _ := newTestService(geocoder, cityService, poiEngine, nav, Options{})

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, types.StatusComplete, result.Status)
	assert.Equal(t, addr, result.Address)
	assert.Equal(t, cities, result.Cities)
	assert.Len(t, result.POIs[types.CategoryRestaurant], 2)
	assert.Len(t, result.POIs[types.CategorySchool], 1)

	require.Len(t, result.Routes, 2)
	assert.Equal(t, "Colombo", result.Routes[0].OriginCity)
	assert.Equal(t, "Sri Jayawardenepura Kotte", result.Routes[1].OriginCity)

	assert.Equal(t, 1.0, result.Cost.TotalUnits) // geocode only; subsystems are mocked
	assert.Equal(t, 25.0, result.Cost.CeilingUnits)
	assert.Zero(t, result.Cost.SkippedWork)
	assert.False(t, result.CacheHits.Geocode)
	assert.False(t, result.CacheHits.Routes)

	geocoder.AssertExpectations(t)
	cityService.AssertExpectations(t)
	poiEngine.AssertExpectations(t)
	nav.AssertExpectations(t)
}

func TestAnalyze_InvalidCoordinateFails(t *testing.T) {
	svc, _ := newTestService(new(MockGeocoder), new(MockCityService), new(MockPOIEngine), new(MockNavService), Options{})

	_, err := svc.Analyze(context.Background(), types.Coordinate{Latitude: 91, Longitude: 0}, 0, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrInvalidCoordinate)
}

func TestAnalyze_GeocodeFailureDegradesToPartial(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)

	cities := testCities()

	geocoder.On("Reverse", mock.Anything, testCoord).Return(nil, types.ErrProviderUnavailable).Once()
	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(cities, nil).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{RadiusM: 5000, Rounds: 3}, nil).Once()
	nav.On("SelectAnchorCities", cities).Return(cities[:1]).Once()
	nav.On("Resolve", mock.Anything, cities[0].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[0].Location), false).Once()

	svc, _ := newTestService(geocoder, cityService, poiEngine, nav, Options{})

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusPartialComplete, result.Status)
	assert.Nil(t, result.Address)
	assert.Equal(t, cities, result.Cities)
	require.Len(t, result.Routes, 1)
}

func TestAnalyze_CityLookupFailureSkipsNavigation(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)

	geocoder.On("Reverse", mock.Anything, testCoord).Return(&types.GeocodeResult{FormattedAddress: "somewhere"}, nil).Once()
	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(nil, errors.New("connection refused")).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{RadiusM: 2000, Rounds: 1}, nil).Once()

	svc, _ := newTestService(geocoder, cityService, poiEngine, nav, Options{})

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusPartialComplete, result.Status)
	assert.Empty(t, result.Cities)
	assert.Empty(t, result.Routes)
	nav.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyze_DegradedPOISearchIsPartial(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)

	cities := testCities()

	geocoder.On("Reverse", mock.Anything, testCoord).Return(&types.GeocodeResult{FormattedAddress: "somewhere"}, nil).Once()
	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(cities, nil).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{
		POIs:     []types.POI{{Name: "Gangaramaya Temple", Category: types.CategoryReligious}},
		RadiusM:  3000,
		Rounds:   2,
		Degraded: true,
	}, nil).Once()
	nav.On("SelectAnchorCities", cities).Return(cities[:1]).Once()
	nav.On("Resolve", mock.Anything, cities[0].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[0].Location), false).Once()

	svc, _ := newTestService(geocoder, cityService, poiEngine, nav, Options{})

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusPartialComplete, result.Status)
	assert.Len(t, result.POIs[types.CategoryReligious], 1)
}

func TestAnalyze_BudgetSkipsThirdAnchorRoute(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)

	cities := testCities()

	geocoder.On("Reverse", mock.Anything, testCoord).Return(&types.GeocodeResult{FormattedAddress: "somewhere"}, nil).Once()
	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(cities, nil).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{RadiusM: 2000, Rounds: 1}, nil).Once()
	nav.On("SelectAnchorCities", cities).Return(cities).Once()
	nav.On("Resolve", mock.Anything, cities[0].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[0].Location), false).Once()
	nav.On("Resolve", mock.Anything, cities[1].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[1].Location), false).Once()

	// Ceiling 1.0 cannot cover another primary-tier route, so the
	// optional third anchor is skipped before it starts.
	svc, _ := newTestService(geocoder, cityService, poiEngine, nav, Options{BudgetCeiling: 1})

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusPartialComplete, result.Status)
	require.Len(t, result.Routes, 2)
	assert.Equal(t, 1, result.Cost.SkippedWork)
	nav.AssertNotCalled(t, "Resolve", mock.Anything, cities[2].Location, testCoord, types.ModeDrive, mock.Anything)
}

func TestAnalyze_EstimatedRouteIsPartial(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)

	cities := testCities()
	estimated := exactRoute(cities[0].Location)
	estimated.SourceTier = 3
	estimated.Quality = types.QualityEstimated

	geocoder.On("Reverse", mock.Anything, testCoord).Return(&types.GeocodeResult{FormattedAddress: "somewhere"}, nil).Once()
	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(cities, nil).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{RadiusM: 2000, Rounds: 1}, nil).Once()
	nav.On("SelectAnchorCities", cities).Return(cities[:1]).Once()
	nav.On("Resolve", mock.Anything, cities[0].Location, testCoord, types.ModeDrive, mock.Anything).Return(estimated, false).Once()

	svc, _ := newTestService(geocoder, cityService, poiEngine, nav, Options{})

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusPartialComplete, result.Status)
	require.Len(t, result.Routes, 1)
	assert.Equal(t, types.QualityEstimated, result.Routes[0].Quality)
}

func TestAnalyze_GeocodeCacheHitSkipsProvider(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)

	cities := testCities()

	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(cities, nil).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{RadiusM: 2000, Rounds: 1, CacheHit: true}, nil).Once()
	nav.On("SelectAnchorCities", cities).Return(cities[:1]).Once()
	nav.On("Resolve", mock.Anything, cities[0].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[0].Location), true).Once()

	svc, resultCache := newTestService(geocoder, cityService, poiEngine, nav, Options{})

	addr := &types.GeocodeResult{FormattedAddress: "Galle Road, Colombo, Sri Lanka"}
	resultCache.SetGeocode(context.Background(), cache.GeocodeKey(testCoord), addr)

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusComplete, result.Status)
	require.NotNil(t, result.Address)
	assert.Equal(t, addr.FormattedAddress, result.Address.FormattedAddress)
	assert.True(t, result.CacheHits.Geocode)
	assert.True(t, result.CacheHits.POI)
	assert.True(t, result.CacheHits.Routes)
	assert.Zero(t, result.Cost.TotalUnits)
	geocoder.AssertNotCalled(t, "Reverse", mock.Anything, mock.Anything)
}

func TestAnalyze_OverallTimeoutIsPartial(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)

	cities := testCities()
	addr := &types.GeocodeResult{FormattedAddress: "Galle Road, Colombo, Sri Lanka"}

	// The geocoder lands only after the overall deadline has passed. The
	// analysis still aggregates everything that finished but must report
	// partial completion.
	geocoder.On("Reverse", mock.Anything, testCoord).
		Run(func(mock.Arguments) { time.Sleep(80 * time.Millisecond) }).
		Return(addr, nil).Once()
	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(cities, nil).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{
		POIs:    []types.POI{{Name: "Ministry of Crab", Category: types.CategoryRestaurant}},
		RadiusM: 2000,
		Rounds:  1,
	}, nil).Once()
	nav.On("SelectAnchorCities", cities).Return(cities[:1]).Once()
	nav.On("Resolve", mock.Anything, cities[0].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[0].Location), false).Once()

	svc, _ := newTestService(geocoder, cityService, poiEngine, nav, Options{OverallTimeout: 20 * time.Millisecond})

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusPartialComplete, result.Status)
	assert.Equal(t, cities, result.Cities)
	assert.Len(t, result.POIs[types.CategoryRestaurant], 1)
	require.Len(t, result.Routes, 1)
}

type MockMapService struct {
	mock.Mock
}

func (m *MockMapService) Image(ctx context.Context, coord types.Coordinate, tracker *budget.Tracker) (*staticmap.ImageResult, error) {
	args := m.Called(ctx, coord, tracker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*staticmap.ImageResult), args.Error(1)
}

func TestAnalyze_StaticMapAddsPreviewURL(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)
	maps := new(MockMapService)

	cities := testCities()
	addr := &types.GeocodeResult{FormattedAddress: "Galle Road, Colombo, Sri Lanka"}

	geocoder.On("Reverse", mock.Anything, testCoord).Return(addr, nil).Once()
	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(cities, nil).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{RadiusM: 2000, Rounds: 1}, nil).Once()
	nav.On("SelectAnchorCities", cities).Return(cities[:1]).Once()
	nav.On("Resolve", mock.Anything, cities[0].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[0].Location), false).Once()
	maps.On("Image", mock.Anything, testCoord, mock.Anything).
		Return(&staticmap.ImageResult{Data: []byte("png"), CacheHit: true}, nil).Once()

	svc, _ := newTestService(geocoder, cityService, poiEngine, nav, Options{})
	svc.maps = maps

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusComplete, result.Status)
	assert.Equal(t, "/api/v1/staticmap?lat=6.927100&lon=79.861200", result.MapURL)
	assert.True(t, result.CacheHits.StaticMap)
	maps.AssertExpectations(t)
}

func TestAnalyze_StaticMapFailureDegradesToPartial(t *testing.T) {
	geocoder := new(MockGeocoder)
	cityService := new(MockCityService)
	poiEngine := new(MockPOIEngine)
	nav := new(MockNavService)
	maps := new(MockMapService)

	cities := testCities()
	addr := &types.GeocodeResult{FormattedAddress: "Galle Road, Colombo, Sri Lanka"}

	geocoder.On("Reverse", mock.Anything, testCoord).Return(addr, nil).Once()
	cityService.On("NearbyCities", mock.Anything, testCoord, 50.0, 5).Return(cities, nil).Once()
	poiEngine.On("Search", mock.Anything, testCoord, mock.Anything, 2000, mock.Anything).Return(&poisearch.SearchResult{RadiusM: 2000, Rounds: 1}, nil).Once()
	nav.On("SelectAnchorCities", cities).Return(cities[:1]).Once()
	nav.On("Resolve", mock.Anything, cities[0].Location, testCoord, types.ModeDrive, mock.Anything).Return(exactRoute(cities[0].Location), false).Once()
	maps.On("Image", mock.Anything, testCoord, mock.Anything).
		Return(nil, types.ErrProviderUnavailable).Once()

	svc, _ := newTestService(geocoder, cityService, poiEngine, nav, Options{})
	svc.maps = maps

	result, err := svc.Analyze(context.Background(), testCoord, 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StatusPartialComplete, result.Status)
	assert.Empty(t, result.MapURL)
	assert.Equal(t, addr, result.Address)
	require.Len(t, result.Routes, 1)
}
