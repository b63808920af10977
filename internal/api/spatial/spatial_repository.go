package spatial

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/serendib/go-location-intel/internal/types"
)

var _ Repository = (*PostgresCityIndex)(nil)

// Repository is the spatial-store contract for the city reference dataset.
type Repository interface {
	FindCitiesNear(ctx context.Context, coord types.Coordinate, maxRadiusKm float64, limit int) ([]types.City, error)
	UpsertCities(ctx context.Context, cities []types.City) (int, error)
}

// DBPool is the subset of pgxpool.Pool the repository uses; pgxmock
// satisfies it in tests.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresCityIndex answers nearest/nearby city queries against the
// PostGIS-backed cities table. The GIST index on the geography column does
// the bounding-box prune; ST_Distance gives the exact geodesic ranking.
type PostgresCityIndex struct {
	logger *slog.Logger
	pool   DBPool
}

func NewPostgresCityIndex(pool DBPool, logger *slog.Logger) *PostgresCityIndex {
	return &PostgresCityIndex{
		logger: logger,
		pool:   pool,
	}
}

const findCitiesNearQuery = `
        SELECT id, name, country, state_province, latitude, longitude,
               COALESCE(population, 0), is_major_city, COALESCE(timezone, ''),
               ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) / 1000.0 AS distance_km
        FROM cities
        WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
        ORDER BY distance_km ASC
        LIMIT $4
    `

// FindCitiesNear returns cities within maxRadiusKm ordered by ascending
// geodesic distance. No match returns an empty slice, not an error.
func (r *PostgresCityIndex) FindCitiesNear(ctx context.Context, coord types.Coordinate, maxRadiusKm float64, limit int) ([]types.City, error) {
	rows, err := r.pool.Query(ctx, findCitiesNearQuery,
		coord.Longitude, coord.Latitude, maxRadiusKm*1000, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby cities: %w", err)
	}
	defer rows.Close()

	cities := []types.City{}
	for rows.Next() {
		var c types.City
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Country, &c.StateProvince,
			&c.Location.Latitude, &c.Location.Longitude,
			&c.Population, &c.IsMajorCity, &c.Timezone, &c.DistanceKm,
		); err != nil {
			return nil, fmt.Errorf("failed to scan city row: %w", err)
		}
		c.PopulationTier = types.TierForPopulation(c.Population, c.IsMajorCity)
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading nearby cities: %w", err)
	}
	return cities, nil
}

const upsertCityQuery = `
        INSERT INTO cities (id, name, country, state_province, latitude, longitude, population, is_major_city, timezone)
        VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, 0), $8, $9)
        ON CONFLICT (name, country) DO UPDATE SET
            state_province = EXCLUDED.state_province,
            latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            population = EXCLUDED.population,
            is_major_city = EXCLUDED.is_major_city,
            timezone = EXCLUDED.timezone
    `

// UpsertCities bulk-loads the city reference dataset, used by seed tooling
// and tests. The location geography column is maintained by a trigger from
// latitude/longitude.
func (r *PostgresCityIndex) UpsertCities(ctx context.Context, cities []types.City) (int, error) {
	inserted := 0
	for _, c := range cities {
		if err := c.Location.Validate(); err != nil {
			r.logger.WarnContext(ctx, "Skipping city with invalid coordinates",
				slog.String("city", c.Name), slog.Any("error", err))
			continue
		}
		id := c.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		if _, err := r.pool.Exec(ctx, upsertCityQuery,
			id, c.Name, c.Country, c.StateProvince,
			c.Location.Latitude, c.Location.Longitude,
			c.Population, c.IsMajorCity, c.Timezone,
		); err != nil {
			return inserted, fmt.Errorf("failed to upsert city %q: %w", c.Name, err)
		}
		inserted++
	}
	return inserted, nil
}
