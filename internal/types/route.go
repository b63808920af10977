package types

import (
	"encoding/json"
	"time"
)

// TravelMode is the requested mode of travel for a route.
type TravelMode string

const (
	ModeDrive TravelMode = "drive"
	ModeWalk  TravelMode = "walk"
)

// ParseTravelMode validates a request-supplied mode, defaulting to drive.
func ParseTravelMode(raw string) TravelMode {
	if TravelMode(raw) == ModeWalk {
		return ModeWalk
	}
	return ModeDrive
}

// RouteQuality tags which fallback tier produced a route.
type RouteQuality string

const (
	QualityExact     RouteQuality = "exact"
	QualityLegacy    RouteQuality = "legacy"
	QualityEstimated RouteQuality = "estimated"
)

// Route is a resolved navigation result between two coordinates.
type Route struct {
	Origin         Coordinate    `json:"origin"`
	Destination    Coordinate    `json:"destination"`
	Mode           TravelMode    `json:"mode"`
	DistanceMeters float64       `json:"distance_meters"`
	Duration       time.Duration `json:"-"`
	Steps          []string      `json:"steps"`
	SourceTier     int           `json:"source_tier"`
	Quality        RouteQuality  `json:"quality"`

	// OriginCity is the anchor city name the route starts from, when the
	// route was produced for an anchor-city analysis.
	OriginCity string `json:"origin_city,omitempty"`
}

// MarshalJSON emits the duration in seconds. A raw time.Duration would
// serialize as nanoseconds, which is useless to API consumers.
func (r Route) MarshalJSON() ([]byte, error) {
	type alias Route
	return json.Marshal(struct {
		alias
		DurationSeconds float64 `json:"duration_seconds"`
	}{
		alias:           alias(r),
		DurationSeconds: r.Duration.Seconds(),
	})
}

func (r *Route) UnmarshalJSON(data []byte) error {
	type alias Route
	aux := struct {
		*alias
		DurationSeconds float64 `json:"duration_seconds"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Duration = time.Duration(aux.DurationSeconds * float64(time.Second))
	return nil
}
