package domain

import (
	"context"
	"log/slog"
	"strings"
)

// ResolveLocation reverse geocodes a coordinate. If geocoder is nil or the
// lookup fails, an empty Location is returned with ok set to false
// (graceful degradation).
func ResolveLocation(ctx context.Context, geocoder ReverseGeocoder, lat, lon float64, logger *slog.Logger) (loc Location, ok bool) {
	if geocoder == nil {
		return Location{}, false
	}

	loc, err := geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		return Location{}, false
	}
	return loc, true
}

// NewsPhrase builds the free-text location used to search news coverage:
// city (or district when the city is unknown), state and region, joined by
// single spaces. A location with no city, district or state yields "" so
// that no news search is made for an unplaced coordinate.
func NewsPhrase(loc Location, region string) string {
	place := strings.TrimSpace(loc.City)
	if place == "" {
		place = strings.TrimSpace(loc.District)
	}
	state := strings.TrimSpace(loc.State)
	if place == "" && state == "" {
		return ""
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{place, state, strings.TrimSpace(region)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
