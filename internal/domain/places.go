package domain

import (
	"math"
	"sort"
)

// DefaultPlaceThresholdMeters is the radius under which two points are
// treated as the same physical place.
const DefaultPlaceThresholdMeters = 50.0

// PlaceType is a point-of-interest category queried around a coordinate.
type PlaceType string

const (
	PlacePolice      PlaceType = "police"
	PlaceHospital    PlaceType = "hospital"
	PlaceFireStation PlaceType = "fire_station"
	PlaceSchool      PlaceType = "school"
	PlaceBank        PlaceType = "bank"
	PlaceATM         PlaceType = "atm"
	PlacePharmacy    PlaceType = "pharmacy"
	PlaceRestaurant  PlaceType = "restaurant"
	PlaceFuel        PlaceType = "fuel"
	PlaceMarketplace PlaceType = "marketplace"
)

// PlaceTypes lists every category fetched for a report, in response order.
var PlaceTypes = []PlaceType{
	PlacePolice,
	PlaceHospital,
	PlaceFireStation,
	PlaceSchool,
	PlaceBank,
	PlaceATM,
	PlacePharmacy,
	PlaceRestaurant,
	PlaceFuel,
	PlaceMarketplace,
}

var placeSummaryKeys = map[PlaceType]string{
	PlacePolice:      "police_stations",
	PlaceHospital:    "hospitals",
	PlaceFireStation: "fire_stations",
	PlaceSchool:      "schools",
	PlaceBank:        "banks",
	PlaceATM:         "atms",
	PlacePharmacy:    "pharmacies",
	PlaceRestaurant:  "restaurants",
	PlaceFuel:        "fuel_stations",
	PlaceMarketplace: "marketplaces",
}

// SummaryKey is the plural key used for this category in report payloads.
func (p PlaceType) SummaryKey() string {
	if k, ok := placeSummaryKeys[p]; ok {
		return k
	}
	return string(p)
}

// SpatialRecord is one point of interest with a resolved coordinate.
type SpatialRecord struct {
	Name           string    `json:"name"`
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	DistanceMeters float64   `json:"distance"`
	Type           PlaceType `json:"type"`
	Address        string    `json:"address"`
}

// Geo returns the record's coordinate.
func (r SpatialRecord) Geo() Geo {
	return Geo{Lat: r.Lat, Lon: r.Lon}
}

// DeduplicatePlaces collapses records that lie within thresholdMeters of an
// already accepted record. Records are visited in input order and the
// first-seen record of a cluster stays its representative. Survivors carry
// their distance from query, rounded to the meter, and are returned
// stable-sorted by that distance.
func DeduplicatePlaces(query Geo, records []SpatialRecord, thresholdMeters float64) []SpatialRecord {
	unique := make([]SpatialRecord, 0, len(records))
	for _, rec := range records {
		if withinAny(rec.Geo(), unique, thresholdMeters) {
			continue
		}
		rec.DistanceMeters = math.Round(Haversine(query, rec.Geo()))
		unique = append(unique, rec)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].DistanceMeters < unique[j].DistanceMeters
	})
	return unique
}

// withinAny reports whether p is closer than threshold to any accepted record.
// Zero distance always counts as a match.
func withinAny(p Geo, accepted []SpatialRecord, threshold float64) bool {
	for i := range accepted {
		d := Haversine(p, accepted[i].Geo())
		if d == 0 || d < threshold {
			return true
		}
	}
	return false
}
