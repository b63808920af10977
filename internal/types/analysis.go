package types

// AnalysisStatus is the terminal state of one analyze request.
type AnalysisStatus string

const (
	StatusComplete        AnalysisStatus = "complete"
	StatusPartialComplete AnalysisStatus = "partial_complete"
)

// GeocodeResult is a reverse-geocoded address for a coordinate.
type GeocodeResult struct {
	FormattedAddress string `json:"formatted_address"`
	Confidence       string `json:"confidence,omitempty"`
}

// CacheFlags records which subsystems were served from cache.
type CacheFlags struct {
	Geocode   bool `json:"geocode"`
	POI       bool `json:"poi"`
	Routes    bool `json:"routes"`
	StaticMap bool `json:"static_map"`
}

// CostSummary reports the spend accumulated by one request.
type CostSummary struct {
	TotalUnits     float64 `json:"total_units"`
	CeilingUnits   float64 `json:"ceiling_units"`
	SkippedWork    int     `json:"skipped_work"`
	RemainingUnits float64 `json:"remaining_units"`
}

// LocationAnalysis is the single aggregate returned to collaborators. Any
// subsystem that failed or was skipped appears as an empty or estimated
// section rather than failing the whole analysis.
type LocationAnalysis struct {
	Coordinate Coordinate          `json:"coordinate"`
	Address    *GeocodeResult      `json:"address,omitempty"`
	Cities     []City              `json:"cities"`
	POIs       map[POICategory][]POI `json:"pois"`
	Routes     []Route             `json:"routes"`
	MapURL     string              `json:"map_url,omitempty"`
	Cost       CostSummary         `json:"cost"`
	CacheHits  CacheFlags          `json:"cache_hits"`
	Status     AnalysisStatus      `json:"status"`
}

// AnalyzeRequest is the HTTP payload accepted by the analysis endpoint.
type AnalyzeRequest struct {
	Latitude   float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude  float64  `json:"longitude" validate:"gte=-180,lte=180"`
	RadiusKm   float64  `json:"radius_km" validate:"omitempty,gt=0,lte=200"`
	Categories []string `json:"categories" validate:"omitempty,dive,min=1"`
}
