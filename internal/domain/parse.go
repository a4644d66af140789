package domain

import "strings"

// ElementKind is the OSM element type of a raw feed element.
type ElementKind string

const (
	KindNode     ElementKind = "node"
	KindWay      ElementKind = "way"
	KindRelation ElementKind = "relation"
)

// BBox is a latitude/longitude bounding box.
type BBox struct {
	Min Geo
	Max Geo
}

// RawElement is one element of a point-of-interest or land-use feed, before
// parsing. Nodes carry a Point; ways carry their vertex Outline when the
// feed resolved it, and optionally Bounds.
type RawElement struct {
	Kind    ElementKind
	ID      int64
	Tags    map[string]string
	Point   *Geo
	Outline []Geo
	Bounds  *BBox
}

// Coordinate resolves the element to a single point: the direct point for
// nodes, otherwise the centroid of the outline, otherwise the bounds center.
func (e RawElement) Coordinate() (Geo, bool) {
	var g Geo
	switch {
	case e.Point != nil:
		g = *e.Point
	case len(e.Outline) > 0:
		c, ok := Centroid(e.Outline)
		if !ok {
			return Geo{}, false
		}
		g = c
	case e.Bounds != nil:
		g = BoundsCenter(e.Bounds.Min, e.Bounds.Max)
	default:
		return Geo{}, false
	}
	if ValidateCoordinate(g.Lat, g.Lon) != nil {
		return Geo{}, false
	}
	return g, true
}

const unnamedPlace = "Unnamed"

// ParseSpatialRecords converts raw elements into SpatialRecords of the given
// type. Elements without a resolvable coordinate are dropped. Names fall back
// from name to operator to "Unnamed"; addresses from addr:full to
// addr:street.
func ParseSpatialRecords(elements []RawElement, placeType PlaceType) []SpatialRecord {
	records := make([]SpatialRecord, 0, len(elements))
	for _, el := range elements {
		g, ok := el.Coordinate()
		if !ok {
			continue
		}
		records = append(records, SpatialRecord{
			Name:    firstTag(el.Tags, unnamedPlace, "name", "operator"),
			Lat:     g.Lat,
			Lon:     g.Lon,
			Type:    placeType,
			Address: firstTag(el.Tags, "", "addr:full", "addr:street"),
		})
	}
	return records
}

// ParseTaggedFeature reduces an element's tags to a TaggedFeature. Any
// highway tag makes the element a road. Otherwise landuse or natural tags
// weigh 10 and building tags weigh 1, with building=yes read as
// residential. Elements with none of these tags are not features.
func ParseTaggedFeature(tags map[string]string) (TaggedFeature, bool) {
	if kind, ok := tags["highway"]; ok {
		return TaggedFeature{IsRoad: true, RoadKind: kind}, true
	}

	if land := firstTag(tags, "", "landuse", "natural"); land != "" {
		return TaggedFeature{PrimaryTag: lower(land), Weight: LandUseTagWeight}, true
	}

	if building := tags["building"]; building != "" {
		tag := lower(building)
		if building == "yes" {
			tag = "residential"
		}
		return TaggedFeature{PrimaryTag: tag, Weight: BuildingTagWeight}, true
	}

	return TaggedFeature{}, false
}

// ParseTaggedFeatures applies ParseTaggedFeature to every element, dropping
// those that carry no relevant tag.
func ParseTaggedFeatures(elements []RawElement) []TaggedFeature {
	features := make([]TaggedFeature, 0, len(elements))
	for _, el := range elements {
		if f, ok := ParseTaggedFeature(el.Tags); ok {
			features = append(features, f)
		}
	}
	return features
}

// firstTag returns the first non-blank value among keys, or fallback.
func firstTag(tags map[string]string, fallback string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(tags[k]); v != "" {
			return v
		}
	}
	return fallback
}
