package navigation

import (
	"fmt"
	"time"

	"github.com/serendib/go-location-intel/internal/types"
)

// Straight-line distance understates road distance; the circuity factor is
// a rough correction for road networks.
const circuityFactor = 1.3

// Assumed average speeds per mode, km/h.
var averageSpeedKmh = map[types.TravelMode]float64{
	types.ModeDrive: 50,
	types.ModeWalk:  5,
}

// estimateRoute is the always-available tier 3: a geodesic estimate with
// synthesized generic step text. It cannot fail.
func estimateRoute(origin, destination types.Coordinate, mode types.TravelMode) *types.Route {
	distanceKm := origin.DistanceKm(destination) * circuityFactor
	speed := averageSpeedKmh[mode]
	if speed == 0 {
		speed = averageSpeedKmh[types.ModeDrive]
	}
	duration := time.Duration(distanceKm / speed * float64(time.Hour))

	return &types.Route{
		Origin:         origin,
		Destination:    destination,
		Mode:           mode,
		DistanceMeters: distanceKm * 1000,
		Duration:       duration,
		Steps: []string{
			fmt.Sprintf("Head toward the destination (approximately %.1f km)", distanceKm),
			"Follow the main roads in the direction of the destination",
			"Arrive at the destination area",
		},
		SourceTier: 3,
		Quality:    types.QualityEstimated,
	}
}
