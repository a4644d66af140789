package gdelt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/location-intel-service/internal/domain"
)

// crimeTerms restricts the search to coverage of adverse events.
const crimeTerms = `(crime OR robbery OR murder OR assault OR "police arrest" OR rape OR theft)`

// Settings configures the article search.
type Settings struct {
	BaseURL    string
	Timeout    time.Duration
	Country    string // GDELT sourcecountry code, e.g. "IN"
	MaxRecords int
	Timespan   string
	UserAgent  string
}

// Client fetches crime-related news articles from the GDELT DOC 2.0 API.
type Client struct {
	settings   Settings
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a GDELT article search client.
func NewClient(s Settings, logger *slog.Logger) *Client {
	if s.UserAgent == "" {
		s.UserAgent = "location-intel-service/1.0"
	}
	return &Client{
		settings:   s,
		httpClient: &http.Client{Timeout: s.Timeout},
		logger:     logger,
	}
}

// Query builds the search expression for a location phrase. Only the part
// before the first comma is used, quoted as an exact phrase.
func (c *Client) Query(locationPhrase string) string {
	place := strings.TrimSpace(strings.SplitN(locationPhrase, ",", 2)[0])
	return fmt.Sprintf(`%s "%s" sourcecountry:%s`, crimeTerms, place, c.settings.Country)
}

// FetchArticles returns crime-related articles mentioning the location,
// newest first. An empty phrase returns no articles without a request.
func (c *Client) FetchArticles(ctx context.Context, locationPhrase string) ([]domain.TextRecord, error) {
	if strings.TrimSpace(locationPhrase) == "" {
		return nil, nil
	}

	params := url.Values{
		"query":      {c.Query(locationPhrase)},
		"mode":       {"ArtList"},
		"format":     {"json"},
		"maxrecords": {strconv.Itoa(c.settings.MaxRecords)},
		"timespan":   {c.settings.Timespan},
		"sort":       {"datedesc"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.settings.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.settings.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("article search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gdelt API error: status %d: %s", resp.StatusCode, body)
	}

	// GDELT answers an empty result set with an empty body.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	articles := make([]domain.TextRecord, 0, len(r.Articles))
	for _, a := range r.Articles {
		articles = append(articles, domain.NewTextRecord(a.Title, a.URL, a.Domain, a.SeenDate))
	}

	c.logger.Debug("articles fetched", "phrase", locationPhrase, "count", len(articles))
	return articles, nil
}

// GDELT API response types.

type response struct {
	Articles []article `json:"articles"`
}

type article struct {
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeenDate      string `json:"seendate"`
	Domain        string `json:"domain"`
	Language      string `json:"language"`
	SourceCountry string `json:"sourcecountry"`
}
