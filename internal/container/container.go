package container

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/serendib/go-location-intel/app/db"
	"github.com/serendib/go-location-intel/config"
	"github.com/serendib/go-location-intel/internal/api/analysis"
	"github.com/serendib/go-location-intel/internal/api/navigation"
	"github.com/serendib/go-location-intel/internal/api/poisearch"
	"github.com/serendib/go-location-intel/internal/api/spatial"
	"github.com/serendib/go-location-intel/internal/api/staticmap"
	"github.com/serendib/go-location-intel/internal/cache"
	"github.com/serendib/go-location-intel/internal/provider/geocode"
	"github.com/serendib/go-location-intel/internal/provider/places"
	"github.com/serendib/go-location-intel/internal/provider/routing"
	staticmapprovider "github.com/serendib/go-location-intel/internal/provider/staticmap"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	Cache            *cache.ResultCache
	AnalysisHandler  *analysis.Handler
	SpatialHandler   *spatial.Handler
	StaticMapHandler *staticmap.Handler
}

// NewContainer initializes and returns a new dependency container
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	// Initialize database
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	resultCache := newResultCache(cfg, logger)

	// Providers
	geocoder := geocode.NewHTTPClient(cfg.Providers.Geocode.BaseURL, cfg.Providers.Geocode.APIKey, cfg.Providers.Geocode.Timeout, logger)
	placesClient := places.NewHTTPClient(cfg.Providers.Places.BaseURL, cfg.Providers.Places.APIKey, cfg.Providers.Places.Timeout, logger)
	primaryRouter := routing.NewPrimaryClient(cfg.Providers.RoutingPrimary.BaseURL, cfg.Providers.RoutingPrimary.APIKey, cfg.Providers.RoutingPrimary.Timeout, logger)
	legacyRouter := routing.NewLegacyClient(cfg.Providers.RoutingLegacy.BaseURL, cfg.Providers.RoutingLegacy.APIKey, cfg.Providers.RoutingLegacy.Timeout, logger)
	mapClient := staticmapprovider.NewHTTPClient(cfg.Providers.StaticMap.BaseURL, cfg.Providers.StaticMap.APIKey, cfg.Providers.StaticMap.Timeout, logger)

	// Spatial city index
	cityRepo := spatial.NewPostgresCityIndex(pool, logger)
	cityService := spatial.NewServiceImpl(cityRepo, logger)
	spatialHandler := spatial.NewHandler(cityService, logger)

	// POI search and navigation
	poiEngine := poisearch.NewServiceImpl(placesClient, resultCache, logger)

	timeouts := navigation.DefaultTimeouts()
	if cfg.Providers.RoutingPrimary.Timeout > 0 {
		timeouts.Primary = cfg.Providers.RoutingPrimary.Timeout
	}
	if cfg.Providers.RoutingLegacy.Timeout > 0 {
		timeouts.Legacy = cfg.Providers.RoutingLegacy.Timeout
	}
	navChain := navigation.NewChain(primaryRouter, legacyRouter, resultCache, timeouts, logger)

	// Static map previews
	mapService := staticmap.NewServiceImpl(mapClient, resultCache, logger)
	staticMapHandler := staticmap.NewHandler(mapService, logger)

	// Orchestrator
	analysisService := analysis.NewServiceImpl(geocoder, cityService, poiEngine, navChain, mapService, resultCache, analysis.Options{
		OverallTimeout: cfg.Analysis.OverallTimeout,
		CityRadiusKm:   cfg.Analysis.CityRadiusKm,
		CityLimit:      cfg.Analysis.CityLimit,
		POIRadiusM:     cfg.Analysis.POIRadiusM,
		BudgetCeiling:  cfg.Analysis.BudgetCeiling,
	}, logger)
	analysisHandler := analysis.NewHandler(analysisService, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		Cache:            resultCache,
		AnalysisHandler:  analysisHandler,
		SpatialHandler:   spatialHandler,
		StaticMapHandler: staticMapHandler,
	}, nil
}

// newResultCache picks the configured cache backend, defaulting to the
// in-process store.
func newResultCache(cfg *config.Config, logger *slog.Logger) *cache.ResultCache {
	ttl := cache.DefaultTTLPolicy()
	if cfg.Cache.TTL.Geocode > 0 {
		ttl.Geocode = cfg.Cache.TTL.Geocode
	}
	if cfg.Cache.TTL.Places > 0 {
		ttl.Places = cfg.Cache.TTL.Places
	}
	if cfg.Cache.TTL.Route > 0 {
		ttl.Route = cfg.Cache.TTL.Route
	}
	if cfg.Cache.TTL.StaticMap > 0 {
		ttl.StaticMap = cfg.Cache.TTL.StaticMap
	}

	var store cache.Store
	if cfg.Cache.Backend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		store = cache.NewRedisStore(client, logger)
	} else {
		store = cache.NewMemoryStore(cfg.Cache.SweepInterval)
	}
	return cache.NewResultCache(store, ttl, logger)
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// RunMigrations runs database migrations
func (c *Container) RunMigrations(connectionURL string) error {
	return database.RunMigrations(connectionURL, c.Logger)
}
