package navigation

import "github.com/serendib/go-location-intel/internal/types"

// maxAnchorCities bounds the number of navigation calls per analysis.
const maxAnchorCities = 3

// SelectAnchorCities picks the route origins for "directions to the
// property": the nearest city, the second-nearest distinct city, and the
// nearest major-tier city if not already chosen. Input is expected in the
// distance-ranked order NearbyCities returns.
func (c *Chain) SelectAnchorCities(cities []types.City) []types.City {
	anchors := make([]types.City, 0, maxAnchorCities)
	seen := map[string]bool{}

	add := func(city types.City) {
		key := city.Name + "|" + city.Country
		if seen[key] || len(anchors) >= maxAnchorCities {
			return
		}
		seen[key] = true
		anchors = append(anchors, city)
	}

	// Nearest and second-nearest distinct.
	for _, city := range cities {
		add(city)
		if len(anchors) == 2 {
			break
		}
	}

	// Nearest major, wherever it ranks.
	for _, city := range cities {
		if city.PopulationTier == types.TierMajor {
			add(city)
			break
		}
	}

	return anchors
}
