package types

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate builds a validated coordinate.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks the coordinate against WGS84 bounds.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return fmt.Errorf("%w: latitude or longitude is NaN", ErrInvalidCoordinate)
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %f out of range [-90,90]", ErrInvalidCoordinate, c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %f out of range [-180,180]", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// DistanceKm returns the haversine great-circle distance to other.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	lat1 := c.Latitude * math.Pi / 180
	lat2 := other.Latitude * math.Pi / 180
	dLat := (other.Latitude - c.Latitude) * math.Pi / 180
	dLon := (other.Longitude - c.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceMeters returns the haversine distance in meters.
func (c Coordinate) DistanceMeters(other Coordinate) float64 {
	return c.DistanceKm(other) * 1000
}

// Rounded returns the coordinate rounded to the given number of decimal
// places. Five places (~1.1m at the equator) is what cache keys and the POI
// dedup fallback key use.
func (c Coordinate) Rounded(places int) Coordinate {
	f := math.Pow10(places)
	return Coordinate{
		Latitude:  math.Round(c.Latitude*f) / f,
		Longitude: math.Round(c.Longitude*f) / f,
	}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}
