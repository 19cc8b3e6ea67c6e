package geo

import (
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

// apiResponse is the envelope shared by the geocoding and text search endpoints.
type apiResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Results      []apiResult `json:"results"`
}

type apiResult struct {
	Name             string `json:"name,omitempty"`
	PlaceID          string `json:"place_id"`
	FormattedAddress string `json:"formatted_address"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// mapResult converts one API result to a store location. Geocoding results carry
// no name, so the first address component stands in.
func mapResult(r apiResult) domain.StoreLocation {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = strings.TrimSpace(strings.SplitN(r.FormattedAddress, ",", 2)[0])
	}
	return domain.StoreLocation{
		Name:      name,
		PlaceID:   r.PlaceID,
		Latitude:  r.Geometry.Location.Lat,
		Longitude: r.Geometry.Location.Lng,
		Address:   r.FormattedAddress,
	}
}

func mapResults(results []apiResult) []domain.StoreLocation {
	locations := make([]domain.StoreLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, mapResult(r))
	}
	return locations
}
