package spatial

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/serendib/go-location-intel/internal/types"
)

// distanceTieToleranceKm is the window within which two cities count as
// equidistant and the population-tier tie-break applies.
const distanceTieToleranceKm = 0.5

var _ Service = (*ServiceImpl)(nil)

// Service is the spatial city index exposed to the orchestrator.
type Service interface {
	NearestCity(ctx context.Context, coord types.Coordinate, maxRadiusKm float64) (*types.City, error)
	NearbyCities(ctx context.Context, coord types.Coordinate, maxRadiusKm float64, limit int) ([]types.City, error)
}

type ServiceImpl struct {
	logger     *slog.Logger
	repository Repository
}

func NewServiceImpl(repository Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repository: repository,
	}
}

// NearestCity returns the single closest city within maxRadiusKm, or nil
// when the radius holds no city.
func (s *ServiceImpl) NearestCity(ctx context.Context, coord types.Coordinate, maxRadiusKm float64) (*types.City, error) {
	ctx, span := otel.Tracer("SpatialCityIndex").Start(ctx, "NearestCity", trace.WithAttributes(
		attribute.Float64("radius_km", maxRadiusKm),
	))
	defer span.End()

	cities, err := s.repository.FindCitiesNear(ctx, coord, maxRadiusKm, 1)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to find nearest city", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "city lookup failed")
		return nil, fmt.Errorf("failed to find nearest city: %w", err)
	}
	if len(cities) == 0 {
		span.AddEvent("no city within radius")
		return nil, nil
	}
	return &cities[0], nil
}

// NearbyCities returns up to limit cities within maxRadiusKm, ascending by
// geodesic distance. Cities whose distances tie within tolerance are
// ordered by population tier (major first), then population descending.
func (s *ServiceImpl) NearbyCities(ctx context.Context, coord types.Coordinate, maxRadiusKm float64, limit int) ([]types.City, error) {
	ctx, span := otel.Tracer("SpatialCityIndex").Start(ctx, "NearbyCities", trace.WithAttributes(
		attribute.Float64("radius_km", maxRadiusKm),
		attribute.Int("limit", limit),
	))
	defer span.End()

	if limit <= 0 {
		limit = 5
	}

	// Over-fetch so a tie straddling the limit boundary can still be
	// re-ranked before truncation.
	cities, err := s.repository.FindCitiesNear(ctx, coord, maxRadiusKm, limit*2)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository failed to find nearby cities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "city lookup failed")
		return nil, fmt.Errorf("failed to find nearby cities: %w", err)
	}

	sortCitiesByDistance(cities)
	if len(cities) > limit {
		cities = cities[:limit]
	}

	span.SetAttributes(attribute.Int("cities.count", len(cities)))
	return cities, nil
}

// sortCitiesByDistance applies the contract ordering: distance primary,
// population-tier rank then population descending within the tie window.
// The tolerance tie is not transitive, so a single comparator cannot
// express it. Distance is sorted first, then each run of entries within
// the tolerance window of its nearest member is re-ranked as one group.
func sortCitiesByDistance(cities []types.City) {
	sort.SliceStable(cities, func(i, j int) bool {
		return cities[i].DistanceKm < cities[j].DistanceKm
	})

	for start := 0; start < len(cities); {
		end := start + 1
		for end < len(cities) && cities[end].DistanceKm-cities[start].DistanceKm <= distanceTieToleranceKm {
			end++
		}
		rankTieGroup(cities[start:end])
		start = end
	}
}

func rankTieGroup(group []types.City) {
	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if a.PopulationTier.Rank() != b.PopulationTier.Rank() {
			return a.PopulationTier.Rank() < b.PopulationTier.Rank()
		}
		if a.Population != b.Population {
			return a.Population > b.Population
		}
		return a.DistanceKm < b.DistanceKm
	})
}
