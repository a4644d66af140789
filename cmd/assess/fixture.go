package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/couchcryptid/location-intel-service/internal/domain"
)

// fixture is a recorded set of collaborator responses for one coordinate.
// Elements use the Overpass JSON element shape ("out geom" for ways).
type fixture struct {
	Lat         float64                 `json:"lat"`
	Lon         float64                 `json:"lon"`
	GeneratedAt time.Time               `json:"generated_at"`
	Location    domain.Location         `json:"location"`
	Places      map[string][]osmElement `json:"places"`
	LandUse     []osmElement            `json:"landuse"`
	Articles    []article               `json:"articles"`
}

type osmElement struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      *float64          `json:"lat,omitempty"`
	Lon      *float64          `json:"lon,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
	Geometry []latLon          `json:"geometry,omitempty"`
	Bounds   *bounds           `json:"bounds,omitempty"`
}

type latLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type bounds struct {
	MinLat float64 `json:"minlat"`
	MinLon float64 `json:"minlon"`
	MaxLat float64 `json:"maxlat"`
	MaxLon float64 `json:"maxlon"`
}

type article struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Domain   string `json:"domain"`
	SeenDate string `json:"seendate"`
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	for key := range f.Places {
		if !knownPlaceType(domain.PlaceType(key)) {
			return nil, fmt.Errorf("fixture %s: unknown place type %q", path, key)
		}
	}
	return &f, nil
}

func knownPlaceType(pt domain.PlaceType) bool {
	for _, known := range domain.PlaceTypes {
		if pt == known {
			return true
		}
	}
	return false
}

func (e osmElement) raw() domain.RawElement {
	el := domain.RawElement{
		Kind: domain.ElementKind(e.Type),
		ID:   e.ID,
		Tags: e.Tags,
	}
	if e.Lat != nil && e.Lon != nil {
		el.Point = &domain.Geo{Lat: *e.Lat, Lon: *e.Lon}
	}
	for _, p := range e.Geometry {
		el.Outline = append(el.Outline, domain.Geo{Lat: p.Lat, Lon: p.Lon})
	}
	if e.Bounds != nil {
		el.Bounds = &domain.BBox{
			Min: domain.Geo{Lat: e.Bounds.MinLat, Lon: e.Bounds.MinLon},
			Max: domain.Geo{Lat: e.Bounds.MaxLat, Lon: e.Bounds.MaxLon},
		}
	}
	return el
}

func rawElements(elements []osmElement) []domain.RawElement {
	out := make([]domain.RawElement, len(elements))
	for i, e := range elements {
		out[i] = e.raw()
	}
	return out
}

// fixtureSource replays a fixture through the pipeline source interfaces.
type fixtureSource struct {
	f            *fixture
	radiusMeters int
}

func (s fixtureSource) FetchPlaces(_ context.Context, _, _ float64, pt domain.PlaceType) ([]domain.SpatialRecord, error) {
	return domain.ParseSpatialRecords(rawElements(s.f.Places[string(pt)]), pt), nil
}

func (s fixtureSource) FetchLandUse(_ context.Context, _, _ float64) ([]domain.TaggedFeature, error) {
	return domain.ParseTaggedFeatures(rawElements(s.f.LandUse)), nil
}

func (s fixtureSource) RadiusMeters() int { return s.radiusMeters }

func (s fixtureSource) FetchArticles(_ context.Context, _ string) ([]domain.TextRecord, error) {
	out := make([]domain.TextRecord, 0, len(s.f.Articles))
	for _, a := range s.f.Articles {
		out = append(out, domain.NewTextRecord(a.Title, a.URL, a.Domain, a.SeenDate))
	}
	return out, nil
}

func (s fixtureSource) ReverseGeocode(_ context.Context, _, _ float64) (domain.Location, error) {
	return s.f.Location, nil
}
