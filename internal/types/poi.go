package types

import "strings"

// POICategory is the closed set of place categories the engine searches.
type POICategory string

const (
	CategoryRestaurant POICategory = "restaurant"
	CategorySchool     POICategory = "school"
	CategoryHospital   POICategory = "hospital"
	CategoryBank       POICategory = "bank"
	CategoryTransport  POICategory = "transport"
	CategoryShopping   POICategory = "shopping"
	CategoryReligious  POICategory = "religious"
	CategoryGovernment POICategory = "government"
	CategoryOther      POICategory = "other"
)

// AllCategories is the default search set when a request names none.
var AllCategories = []POICategory{
	CategoryRestaurant, CategorySchool, CategoryHospital, CategoryBank,
	CategoryTransport, CategoryShopping, CategoryReligious, CategoryGovernment,
}

// providerCategoryMap translates raw provider type strings into the closed
// enum. Provider taxonomies are much wider than ours; anything unmapped
// falls back to CategoryOther.
var providerCategoryMap = map[string]POICategory{
	"restaurant":        CategoryRestaurant,
	"cafe":              CategoryRestaurant,
	"food":              CategoryRestaurant,
	"bakery":            CategoryRestaurant,
	"school":            CategorySchool,
	"primary_school":    CategorySchool,
	"secondary_school":  CategorySchool,
	"university":        CategorySchool,
	"hospital":          CategoryHospital,
	"doctor":            CategoryHospital,
	"pharmacy":          CategoryHospital,
	"health":            CategoryHospital,
	"bank":              CategoryBank,
	"atm":               CategoryBank,
	"finance":           CategoryBank,
	"bus_station":       CategoryTransport,
	"train_station":     CategoryTransport,
	"transit_station":   CategoryTransport,
	"taxi_stand":        CategoryTransport,
	"shopping_mall":     CategoryShopping,
	"supermarket":       CategoryShopping,
	"store":             CategoryShopping,
	"market":            CategoryShopping,
	"church":            CategoryReligious,
	"mosque":            CategoryReligious,
	"hindu_temple":      CategoryReligious,
	"buddhist_temple":   CategoryReligious,
	"place_of_worship":  CategoryReligious,
	"city_hall":         CategoryGovernment,
	"local_government":  CategoryGovernment,
	"courthouse":        CategoryGovernment,
	"police":            CategoryGovernment,
	"post_office":       CategoryGovernment,
}

// CategoryFromProvider maps a raw provider type string to the closed enum.
func CategoryFromProvider(raw string) POICategory {
	if c, ok := providerCategoryMap[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return c
	}
	return CategoryOther
}

// ParseCategory validates a request-supplied category name.
func ParseCategory(raw string) (POICategory, bool) {
	c := POICategory(strings.ToLower(strings.TrimSpace(raw)))
	switch c {
	case CategoryRestaurant, CategorySchool, CategoryHospital, CategoryBank,
		CategoryTransport, CategoryShopping, CategoryReligious, CategoryGovernment:
		return c, true
	}
	return "", false
}

// POI is a point of interest returned by the places provider. Created per
// search, never persisted beyond cache TTL.
type POI struct {
	ProviderID     string      `json:"provider_id"`
	Name           string      `json:"name"`
	Category       POICategory `json:"category"`
	Location       Coordinate  `json:"location"`
	Address        string      `json:"address,omitempty"`
	Rating         float64     `json:"rating,omitempty"`
	DistanceMeters float64     `json:"distance_meters"`
}

// DedupKey identifies a POI across overlapping batch results. The provider
// ID is authoritative; when absent the fallback is normalized name plus the
// coordinate rounded to 5 decimal places (~1m).
func (p POI) DedupKey() string {
	if p.ProviderID != "" {
		return p.ProviderID
	}
	r := p.Location.Rounded(5)
	return strings.ToLower(strings.TrimSpace(p.Name)) + "@" + r.String()
}
