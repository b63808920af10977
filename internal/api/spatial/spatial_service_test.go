package spatial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/serendib/go-location-intel/internal/types"
)

// MockRepository is a mock implementation of Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindCitiesNear(ctx context.Context, coord types.Coordinate, maxRadiusKm float64, limit int) ([]types.City, error) {
	args := m.Called(ctx, coord, maxRadiusKm, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.City), args.Error(1)
}

func (m *MockRepository) UpsertCities(ctx context.Context, cities []types.City) (int, error) {
	args := m.Called(ctx, cities)
	return args.Int(0), args.Error(1)
}

func city(name string, tier types.PopulationTier, population int64, distanceKm float64) types.City {
	return types.City{
		Name:           name,
		Country:        "Sri Lanka",
		Population:     population,
		PopulationTier: tier,
		DistanceKm:     distanceKm,
	}
}

func TestNearestCity_ColomboScenario(t *testing.T) {
	repo := new(MockRepository)
	svc := NewServiceImpl(repo, testLogger())

	coord := types.Coordinate{Latitude: 6.9271, Longitude: 79.8612}
	repo.On("FindCitiesNear", mock.Anything, coord, 50.0, 1).
		Return([]types.City{city("Colombo", types.TierMajor, 752993, 0.02)}, nil)

	got, err := svc.NearestCity(context.Background(), coord, 50)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Colombo", got.Name)
	assert.InDelta(t, 0.0, got.DistanceKm, 0.1, "query at city center resolves at ~0 km")
}

func TestNearestCity_NoMatchIsNil(t *testing.T) {
	repo := new(MockRepository)
	svc := NewServiceImpl(repo, testLogger())

	repo.On("FindCitiesNear", mock.Anything, mock.Anything, 5.0, 1).
		Return([]types.City{}, nil)

	got, err := svc.NearestCity(context.Background(), types.Coordinate{Latitude: 4.0, Longitude: 81.0}, 5)

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNearbyCities_DistancePrimaryOrdering(t *testing.T) {
	repo := new(MockRepository)
	svc := NewServiceImpl(repo, testLogger())

	repo.On("FindCitiesNear", mock.Anything, mock.Anything, 50.0, 10).
		Return([]types.City{
			city("A", types.TierVillage, 2000, 3.0),
			city("B", types.TierMajor, 800000, 12.0),
			city("C", types.TierSmall, 15000, 20.0),
		}, nil)

	got, err := svc.NearbyCities(context.Background(), types.Coordinate{Latitude: 6.9, Longitude: 79.9}, 50, 5)

	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].DistanceKm, got[i-1].DistanceKm,
			"distance ordering must be non-decreasing")
	}
}

func TestNearbyCities_TieBrokenByPopulationTier(t *testing.T) {
	repo := new(MockRepository)
	svc := NewServiceImpl(repo, testLogger())

	// Both at ~10 km; the major city wins the tie despite sorting second
	// on raw distance.
	repo.On("FindCitiesNear", mock.Anything, mock.Anything, 50.0, 10).
		Return([]types.City{
			city("Smalltown", types.TierSmall, 12000, 10.0),
			city("Bigcity", types.TierMajor, 900000, 10.2),
		}, nil)

	got, err := svc.NearbyCities(context.Background(), types.Coordinate{Latitude: 6.9, Longitude: 79.9}, 50, 5)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bigcity", got[0].Name)
}

func TestNearbyCities_TieBrokenByPopulationWithinTier(t *testing.T) {
	repo := new(MockRepository)
	svc := NewServiceImpl(repo, testLogger())

	repo.On("FindCitiesNear", mock.Anything, mock.Anything, 50.0, 10).
		Return([]types.City{
			city("Lesser", types.TierMedium, 60000, 8.0),
			city("Greater", types.TierMedium, 190000, 8.1),
		}, nil)

	got, err := svc.NearbyCities(context.Background(), types.Coordinate{Latitude: 6.9, Longitude: 79.9}, 50, 5)

	require.NoError(t, err)
	assert.Equal(t, "Greater", got[0].Name)
}

func TestNearbyCities_LimitApplied(t *testing.T) {
	repo := new(MockRepository)
	svc := NewServiceImpl(repo, testLogger())

	many := []types.City{}
	for i := 0; i < 8; i++ {
		many = append(many, city("X", types.TierVillage, 1000, float64(i)*2))
	}
	repo.On("FindCitiesNear", mock.Anything, mock.Anything, 50.0, 6).
		Return(many, nil)

	got, err := svc.NearbyCities(context.Background(), types.Coordinate{Latitude: 6.9, Longitude: 79.9}, 50, 3)

	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestNearbyCities_ChainedTiesOrderDeterministically(t *testing.T) {
	repo := new(MockRepository)
	svc := NewServiceImpl(repo, testLogger())

	// The pairwise ties form a chain: Harbourtown ties with Fishing
	// Village, Port City ties with Harbourtown, but Port City does not
	// tie with Fishing Village. The tie group is anchored at the nearest
	// member, so Port City falls outside it and keeps its distance rank.
	repo.On("FindCitiesNear", mock.Anything, mock.Anything, 50.0, 10).
		Return([]types.City{
			city("Fishing Village", types.TierVillage, 3000, 0.0),
			city("Harbourtown", types.TierMajor, 600000, 0.4),
			city("Port City", types.TierMajor, 900000, 0.8),
		}, nil)

	got, err := svc.NearbyCities(context.Background(), types.Coordinate{Latitude: 6.9, Longitude: 79.9}, 50, 5)

	require.NoError(t, err)
	require.Len(t, got, 3)
	names := []string{got[0].Name, got[1].Name, got[2].Name}
	assert.Equal(t, []string{"Harbourtown", "Fishing Village", "Port City"}, names)
}

func TestNearbyCities_TieGroupRanksTierThenPopulation(t *testing.T) {
	repo := new(MockRepository)
	svc := NewServiceImpl(repo, testLogger())

	// All four within one tolerance window of the nearest entry.
	repo.On("FindCitiesNear", mock.Anything, mock.Anything, 50.0, 10).
		Return([]types.City{
			city("Hamlet", types.TierVillage, 900, 9.8),
			city("Lesser Major", types.TierMajor, 500000, 10.0),
			city("Greater Major", types.TierMajor, 1_500_000, 10.2),
			city("Midtown", types.TierMedium, 80000, 10.1),
		}, nil)

	got, err := svc.NearbyCities(context.Background(), types.Coordinate{Latitude: 6.9, Longitude: 79.9}, 50, 5)

	require.NoError(t, err)
	require.Len(t, got, 4)
	names := []string{got[0].Name, got[1].Name, got[2].Name, got[3].Name}
	assert.Equal(t, []string{"Greater Major", "Lesser Major", "Midtown", "Hamlet"}, names)
}
