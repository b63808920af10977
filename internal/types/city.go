package types

import "github.com/google/uuid"

// PopulationTier is a coarse classification of a city by population size,
// used as a ranking tie-break and for display.
type PopulationTier string

const (
	TierMajor   PopulationTier = "major"
	TierLarge   PopulationTier = "large"
	TierMedium  PopulationTier = "medium"
	TierSmall   PopulationTier = "small"
	TierVillage PopulationTier = "village"
)

// tierRank orders tiers for tie-breaking: lower is better.
var tierRank = map[PopulationTier]int{
	TierMajor:   0,
	TierLarge:   1,
	TierMedium:  2,
	TierSmall:   3,
	TierVillage: 4,
}

// Rank returns the sort rank of the tier (major first). Unknown tiers sort
// last.
func (t PopulationTier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return len(tierRank)
}

// Population thresholds for tier assignment.
const (
	populationMajor  = 1_000_000
	populationLarge  = 250_000
	populationMedium = 50_000
	populationSmall  = 10_000
)

// TierForPopulation derives the population tier. Cities flagged as major in
// the source dataset keep the major tier regardless of their recorded
// population, which is often missing for them.
func TierForPopulation(population int64, isMajorCity bool) PopulationTier {
	switch {
	case isMajorCity, population >= populationMajor:
		return TierMajor
	case population >= populationLarge:
		return TierLarge
	case population >= populationMedium:
		return TierMedium
	case population >= populationSmall:
		return TierSmall
	default:
		return TierVillage
	}
}

// City is a row of the cities reference dataset. Loaded once at seed time,
// read-only at query time.
type City struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Country        string         `json:"country"`
	StateProvince  string         `json:"state_province"`
	Location       Coordinate     `json:"location"`
	Population     int64          `json:"population"`
	IsMajorCity    bool           `json:"is_major_city"`
	Timezone       string         `json:"timezone,omitempty"`
	PopulationTier PopulationTier `json:"population_tier"`

	// DistanceKm from the query coordinate; computed per lookup, not stored.
	DistanceKm float64 `json:"distance_km"`
}
