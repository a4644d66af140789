package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/location-intel-service/internal/domain"
)

// Client implements domain.ReverseGeocoder using the Nominatim reverse
// geocoding API. Requests share one rate limiter; the public instance allows
// one request per second per application.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a Nominatim client limited to ratePerSec requests.
func NewClient(baseURL, userAgent string, timeout time.Duration, ratePerSec float64, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:  logger,
	}
}

// ReverseGeocode converts coordinates to administrative place details.
// City falls back from city to town to village.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.Location, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Location{}, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{
		"format":         {"json"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"zoom":           {"14"},
		"addressdetails": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Location{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Location{}, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Location{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return domain.Location{}, fmt.Errorf("decode response: %w", err)
	}
	if r.Error != "" {
		c.logger.Debug("nominatim returned no place", "lat", lat, "lon", lon, "reason", r.Error)
		return domain.Location{}, nil
	}

	return domain.Location{
		DisplayName: r.DisplayName,
		City:        firstNonEmpty(r.Address.City, r.Address.Town, r.Address.Village),
		District:    r.Address.StateDistrict,
		State:       r.Address.State,
		Country:     r.Address.Country,
		Postcode:    r.Address.Postcode,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Nominatim API response types.

type response struct {
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
	Error       string  `json:"error"`
}

type address struct {
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	StateDistrict string `json:"state_district"`
	State         string `json:"state"`
	Country       string `json:"country"`
	Postcode      string `json:"postcode"`
}
