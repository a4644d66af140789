package overpass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	osm "github.com/serjvanilla/go-overpass"
	"golang.org/x/sync/semaphore"

	"github.com/couchcryptid/location-intel-service/internal/domain"
	"github.com/couchcryptid/location-intel-service/internal/observability"
)

// ErrMirrorsExhausted is returned when every configured mirror failed.
var ErrMirrorsExhausted = errors.New("all overpass mirrors failed")

const (
	feedPlaces  = "places"
	feedLandUse = "landuse"
)

// Settings configures the Overpass source. Timeout bounds a single mirror
// attempt; MaxConcurrent caps queries in flight across all callers.
type Settings struct {
	Endpoints           []string
	Timeout             time.Duration
	MaxConcurrent       int
	POIRadiusMeters     int
	LandUseRadiusMeters int
}

const defaultMaxConcurrent = 2

// queryFunc runs one query against one mirror.
type queryFunc func(ctx context.Context, endpoint, query string) (osm.Result, error)

// Client fetches points of interest and land-use tags from Overpass,
// falling back through an ordered mirror list.
type Client struct {
	settings Settings
	query    queryFunc
	slots    *semaphore.Weighted
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewClient creates an Overpass client over the given mirrors.
func NewClient(s Settings, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if s.MaxConcurrent <= 0 {
		s.MaxConcurrent = defaultMaxConcurrent
	}
	return &Client{
		settings: s,
		query:    newQueryFunc(s.Timeout),
		slots:    semaphore.NewWeighted(int64(s.MaxConcurrent)),
		metrics:  metrics,
		logger:   logger,
	}
}

// FetchPlaces returns the points of interest of one type around a
// coordinate, parsed but not deduplicated, in a stable element order.
func (c *Client) FetchPlaces(ctx context.Context, lat, lon float64, pt domain.PlaceType) ([]domain.SpatialRecord, error) {
	q := PlacesQuery(lat, lon, pt, c.settings.POIRadiusMeters)
	result, err := c.queryMirrors(ctx, feedPlaces, q)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pt, err)
	}
	return domain.ParseSpatialRecords(placeElements(result), pt), nil
}

// FetchLandUse returns the land-use, natural, building and highway features
// around a coordinate.
func (c *Client) FetchLandUse(ctx context.Context, lat, lon float64) ([]domain.TaggedFeature, error) {
	q := LandUseQuery(lat, lon, c.settings.LandUseRadiusMeters)
	result, err := c.queryMirrors(ctx, feedLandUse, q)
	if err != nil {
		return nil, fmt.Errorf("fetch land use: %w", err)
	}
	return domain.ParseTaggedFeatures(taggedElements(result)), nil
}

// RadiusMeters reports the land-use search radius.
func (c *Client) RadiusMeters() int {
	return c.settings.LandUseRadiusMeters
}

// queryMirrors tries each mirror in order and returns the first success.
// Each attempt holds one concurrency slot and gets at most an even share of
// the time left on ctx, so a hanging mirror leaves room for the next one.
// Cancellation of ctx stops the fallback immediately.
func (c *Client) queryMirrors(ctx context.Context, feed, q string) (osm.Result, error) {
	var lastErr error
	for i, endpoint := range c.settings.Endpoints {
		if err := ctx.Err(); err != nil {
			return osm.Result{}, err
		}

		result, err := c.attempt(ctx, endpoint, q, len(c.settings.Endpoints)-i)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return osm.Result{}, ctx.Err()
		}

		lastErr = err
		c.logger.Warn("overpass mirror failed",
			"feed", feed,
			"mirror", endpoint,
			"error", err,
		)
		if i < len(c.settings.Endpoints)-1 {
			c.metrics.MirrorFallbacks.WithLabelValues(feed).Inc()
		}
	}
	if lastErr == nil {
		return osm.Result{}, fmt.Errorf("%w: no mirrors configured", ErrMirrorsExhausted)
	}
	return osm.Result{}, fmt.Errorf("%w: %w", ErrMirrorsExhausted, lastErr)
}

func (c *Client) attempt(ctx context.Context, endpoint, q string, mirrorsLeft int) (osm.Result, error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return osm.Result{}, err
	}
	defer c.slots.Release(1)

	actx, cancel := context.WithTimeout(ctx, c.attemptTimeout(ctx, mirrorsLeft))
	defer cancel()
	return c.query(actx, endpoint, q)
}

// attemptTimeout is the configured per-mirror timeout, shortened to an even
// split of the remaining deadline across the mirrors not yet tried.
func (c *Client) attemptTimeout(ctx context.Context, mirrorsLeft int) time.Duration {
	d := c.settings.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		share := time.Until(deadline) / time.Duration(max(mirrorsLeft, 1))
		if d <= 0 || share < d {
			d = share
		}
	}
	if d <= 0 {
		d = time.Nanosecond
	}
	return d
}

// newQueryFunc returns a queryFunc that binds each request to its context.
// The Overpass library takes no context, so the context is attached at the
// transport.
func newQueryFunc(timeout time.Duration) queryFunc {
	return func(ctx context.Context, endpoint, q string) (osm.Result, error) {
		httpClient := &http.Client{
			Timeout:   timeout,
			Transport: contextTransport{ctx: ctx, base: http.DefaultTransport},
		}
		client := osm.NewWithSettings(endpoint, 1, httpClient)
		return client.Query(q)
	}
}

type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// placeElements converts a result into raw elements. Ways carry their
// geometry as an outline, relations only their bounds.
func placeElements(result osm.Result) []domain.RawElement {
	elements := make([]domain.RawElement, 0, len(result.Nodes)+len(result.Ways)+len(result.Relations))

	for _, n := range result.Nodes {
		if len(n.Tags) == 0 {
			continue
		}
		elements = append(elements, domain.RawElement{
			Kind:  domain.KindNode,
			ID:    n.ID,
			Tags:  n.Tags,
			Point: &domain.Geo{Lat: n.Lat, Lon: n.Lon},
		})
	}

	for _, w := range result.Ways {
		if len(w.Tags) == 0 {
			continue
		}
		elements = append(elements, domain.RawElement{
			Kind:    domain.KindWay,
			ID:      w.ID,
			Tags:    w.Tags,
			Outline: wayOutline(w.Geometry),
			Bounds:  bbox(w.Bounds),
		})
	}

	for _, r := range result.Relations {
		if len(r.Tags) == 0 {
			continue
		}
		elements = append(elements, domain.RawElement{
			Kind:   domain.KindRelation,
			ID:     r.ID,
			Tags:   r.Tags,
			Bounds: bbox(r.Bounds),
		})
	}

	sortElements(elements)
	return elements
}

// wayOutline returns the vertex coordinates of a way, or nil if any vertex
// is missing from the geometry.
func wayOutline(geometry []osm.Point) []domain.Geo {
	if len(geometry) == 0 {
		return nil
	}
	outline := make([]domain.Geo, 0, len(geometry))
	for _, p := range geometry {
		if p.Lat == 0 && p.Lon == 0 {
			return nil
		}
		outline = append(outline, domain.Geo{Lat: p.Lat, Lon: p.Lon})
	}
	return outline
}

func bbox(b *osm.Box) *domain.BBox {
	if b == nil {
		return nil
	}
	return &domain.BBox{
		Min: domain.Geo{Lat: b.Min.Lat, Lon: b.Min.Lon},
		Max: domain.Geo{Lat: b.Max.Lat, Lon: b.Max.Lon},
	}
}

// taggedElements converts a tags-only result into raw elements.
func taggedElements(result osm.Result) []domain.RawElement {
	elements := make([]domain.RawElement, 0, len(result.Ways)+len(result.Relations))
	for _, w := range result.Ways {
		elements = append(elements, domain.RawElement{Kind: domain.KindWay, ID: w.ID, Tags: w.Tags})
	}
	for _, r := range result.Relations {
		elements = append(elements, domain.RawElement{Kind: domain.KindRelation, ID: r.ID, Tags: r.Tags})
	}
	sortElements(elements)
	return elements
}

var kindOrder = map[domain.ElementKind]int{
	domain.KindNode:     0,
	domain.KindWay:      1,
	domain.KindRelation: 2,
}

// sortElements orders elements by kind then ID. Results arrive as maps, and
// first-seen deduplication needs a deterministic order.
func sortElements(elements []domain.RawElement) {
	sort.Slice(elements, func(i, j int) bool {
		ki, kj := kindOrder[elements[i].Kind], kindOrder[elements[j].Kind]
		if ki != kj {
			return ki < kj
		}
		return elements[i].ID < elements[j].ID
	})
}
