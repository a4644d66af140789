package overpass

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/location-intel-service/internal/domain"
)

// placeFilters lists the OSM tag filters that identify each place type.
var placeFilters = map[domain.PlaceType][]string{
	domain.PlaceHospital: {
		`["amenity"="hospital"]`,
		`["healthcare"="hospital"]`,
		`["amenity"="clinic"]`,
		`["healthcare"="clinic"]`,
	},
	domain.PlacePolice: {
		`["amenity"="police"]`,
		`["government"="public_safety"]`,
	},
	domain.PlaceFireStation: {
		`["amenity"="fire_station"]`,
		`["emergency"="fire_station"]`,
	},
	domain.PlaceSchool: {
		`["amenity"="school"]`,
		`["amenity"="university"]`,
		`["amenity"="college"]`,
		`["amenity"="kindergarten"]`,
	},
	domain.PlaceBank: {
		`["amenity"="bank"]`,
		`["amenity"="atm"]`,
	},
	domain.PlaceATM: {
		`["amenity"="atm"]`,
	},
	domain.PlacePharmacy: {
		`["amenity"="pharmacy"]`,
		`["healthcare"="pharmacy"]`,
	},
	domain.PlaceRestaurant: {
		`["amenity"="restaurant"]`,
		`["amenity"="cafe"]`,
		`["amenity"="fast_food"]`,
	},
	domain.PlaceFuel: {
		`["amenity"="fuel"]`,
	},
	domain.PlaceMarketplace: {
		`["amenity"="marketplace"]`,
		`["amenity"="supermarket"]`,
	},
}

// PlaceFilters returns the tag filters for a place type. Unknown types are
// looked up as an amenity of the same name.
func PlaceFilters(pt domain.PlaceType) []string {
	if f, ok := placeFilters[pt]; ok {
		return f
	}
	return []string{fmt.Sprintf(`["amenity"="%s"]`, pt)}
}

// PlacesQuery builds the point-of-interest query for one place type.
// Matching nodes, ways and relations are returned once each with their tags,
// way geometry and bounds, so no recursion into member nodes is needed.
func PlacesQuery(lat, lon float64, pt domain.PlaceType, radiusMeters int) string {
	around := aroundFilter(lat, lon, radiusMeters)

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, f := range PlaceFilters(pt) {
		for _, kind := range []domain.ElementKind{domain.KindNode, domain.KindWay, domain.KindRelation} {
			fmt.Fprintf(&b, "  %s%s%s;\n", kind, f, around)
		}
	}
	b.WriteString(");\nout tags geom bb;\n")
	return b.String()
}

// LandUseQuery builds the land-use query. Only tags are needed, so no
// geometry is requested.
func LandUseQuery(lat, lon float64, radiusMeters int) string {
	around := aroundFilter(lat, lon, radiusMeters)
	return "[out:json][timeout:25];\n(\n" +
		`  way["landuse"]` + around + ";\n" +
		`  relation["landuse"]` + around + ";\n" +
		`  way["natural"]` + around + ";\n" +
		`  relation["natural"]` + around + ";\n" +
		`  way["building"]` + around + ";\n" +
		`  way["highway"]` + around + ";\n" +
		");\nout tags;\n"
}

func aroundFilter(lat, lon float64, radiusMeters int) string {
	return "(around:" + strconv.Itoa(radiusMeters) + "," +
		strconv.FormatFloat(lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(lon, 'f', -1, 64) + ")"
}
