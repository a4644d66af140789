package nominatim

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/location-intel-service/internal/domain"
	"github.com/couchcryptid/location-intel-service/internal/observability"
)

// CachedGeocoder wraps a ReverseGeocoder with an in-memory LRU cache keyed by
// the coordinate rounded to four decimals (about 11 m).
type CachedGeocoder struct {
	inner   domain.ReverseGeocoder
	cache   *lru.Cache[string, domain.Location]
	metrics *observability.Metrics
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.ReverseGeocoder, maxEntries int, metrics *observability.Metrics) (*CachedGeocoder, error) {
	cache, err := lru.New[string, domain.Location](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &CachedGeocoder{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedGeocoder) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Location, error) {
	key := cacheKey(lat, lon)
	if loc, ok := c.cache.Get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return loc, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	loc, err := c.inner.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return loc, err
	}
	// Only cache resolved places so transient "not found" responses can be retried.
	if !loc.IsZero() {
		c.cache.Add(key, loc)
	}
	return loc, nil
}

// Len reports the number of cached places.
func (c *CachedGeocoder) Len() int {
	return c.cache.Len()
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}
