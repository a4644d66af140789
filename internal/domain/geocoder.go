package domain

import "context"

// Location contains the administrative place data for a coordinate as
// returned by a reverse geocoding provider.
type Location struct {
	DisplayName string `json:"display_name,omitempty"`
	City        string `json:"city,omitempty"`
	District    string `json:"district,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
}

// IsZero reports whether no place data was resolved.
func (l Location) IsZero() bool {
	return l == Location{}
}

// ReverseGeocoder resolves coordinates to place details.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (Location, error)
}
