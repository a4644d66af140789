package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b Geo) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// ValidateCoordinate rejects NaN and out-of-range coordinates.
func ValidateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return fmt.Errorf("%w: NaN", ErrInvalidCoordinate)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude %g out of range [-90, 90]", ErrInvalidCoordinate, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude %g out of range [-180, 180]", ErrInvalidCoordinate, lon)
	}
	return nil
}

// Centroid computes a representative point for an extended geometry given as
// its vertex list. Closed outlines use the area-weighted polygon centroid,
// open ones the length-weighted line centroid. Degenerate shapes fall back to
// the bounding-box center.
func Centroid(outline []Geo) (Geo, bool) {
	switch len(outline) {
	case 0:
		return Geo{}, false
	case 1:
		return outline[0], true
	}

	ls := make(orb.LineString, len(outline))
	for i, g := range outline {
		ls[i] = orb.Point{g.Lon, g.Lat}
	}

	var c orb.Point
	if len(ls) >= 4 && orb.Ring(ls).Closed() {
		c, _ = planar.CentroidArea(orb.Polygon{orb.Ring(ls)})
	} else {
		c, _ = planar.CentroidArea(ls)
	}
	if math.IsNaN(c.Lat()) || math.IsNaN(c.Lon()) || (c == orb.Point{}) {
		c = ls.Bound().Center()
	}
	return Geo{Lat: c.Lat(), Lon: c.Lon()}, true
}

// BoundsCenter returns the center of a bounding box, the way Overpass
// reports "center" for ways and relations.
func BoundsCenter(minPt, maxPt Geo) Geo {
	b := orb.Bound{
		Min: orb.Point{minPt.Lon, minPt.Lat},
		Max: orb.Point{maxPt.Lon, maxPt.Lat},
	}
	c := b.Center()
	return Geo{Lat: c.Lat(), Lon: c.Lon()}
}
