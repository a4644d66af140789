package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// DefaultOverpassURLs are the public Overpass mirrors, tried in order.
const DefaultOverpassURLs = "https://overpass-api.de/api/interpreter," +
	"https://overpass.kumi.systems/api/interpreter," +
	"https://overpass.nchc.org.tw/api/interpreter"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Assessment settings.
	RequestTimeout          time.Duration
	CollaboratorTimeout     time.Duration
	POIRadiusMeters         int
	LandUseRadiusMeters     int
	PlaceDedupMeters        float64
	NewsSimilarityThreshold float64

	// Overpass points-of-interest and land-use source.
	OverpassURLs          []string
	OverpassTimeout       time.Duration // per mirror attempt
	OverpassMaxConcurrent int

	// GDELT news source.
	GDELTURL       string
	GDELTTimeout   time.Duration
	NewsCountry    string
	NewsRegion     string
	NewsMaxRecords int
	NewsTimespan   string

	// Nominatim reverse geocoding.
	NominatimURL        string
	NominatimTimeout    time.Duration
	NominatimUserAgent  string
	NominatimCacheSize  int
	NominatimRatePerSec float64

	// Optional report publishing.
	KafkaEnabled        bool
	KafkaBrokers        []string
	KafkaTopic          string
	KafkaPublishTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		OverpassURLs: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("OVERPASS_URLS", DefaultOverpassURLs)),

		GDELTURL:     sharedcfg.EnvOrDefault("GDELT_URL", "https://api.gdeltproject.org/api/v2/doc/doc"),
		NewsCountry:  sharedcfg.EnvOrDefault("NEWS_COUNTRY", "IN"),
		NewsRegion:   sharedcfg.EnvOrDefault("NEWS_REGION", "India"),
		NewsTimespan: sharedcfg.EnvOrDefault("NEWS_TIMESPAN", "3m"),

		NominatimURL:       sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org/reverse"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "location-intel-service/1.0"),

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "location-assessments"),
	}

	durations := []struct {
		key  string
		def  string
		dest *time.Duration
	}{
		{"REQUEST_TIMEOUT", "45s", &cfg.RequestTimeout},
		{"COLLABORATOR_TIMEOUT", "30s", &cfg.CollaboratorTimeout},
		{"OVERPASS_TIMEOUT", "9s", &cfg.OverpassTimeout},
		{"GDELT_TIMEOUT", "15s", &cfg.GDELTTimeout},
		{"NOMINATIM_TIMEOUT", "10s", &cfg.NominatimTimeout},
		{"KAFKA_PUBLISH_TIMEOUT", "10s", &cfg.KafkaPublishTimeout},
	}
	for _, d := range durations {
		if *d.dest, err = parseDuration(d.key, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key  string
		def  int
		dest *int
	}{
		{"POI_RADIUS_METERS", 1500, &cfg.POIRadiusMeters},
		{"LANDUSE_RADIUS_METERS", 300, &cfg.LandUseRadiusMeters},
		{"NEWS_MAX_RECORDS", 250, &cfg.NewsMaxRecords},
		{"NOMINATIM_CACHE_SIZE", 1000, &cfg.NominatimCacheSize},
		{"OVERPASS_MAX_CONCURRENT", 2, &cfg.OverpassMaxConcurrent},
	}
	for _, n := range ints {
		if *n.dest, err = parsePositiveInt(n.key, n.def); err != nil {
			return nil, err
		}
	}

	if cfg.PlaceDedupMeters, err = parsePositiveFloat("PLACE_DEDUP_METERS", 50); err != nil {
		return nil, err
	}
	if cfg.NewsSimilarityThreshold, err = parsePositiveFloat("NEWS_SIMILARITY_THRESHOLD", 0.6); err != nil {
		return nil, err
	}
	if cfg.NominatimRatePerSec, err = parsePositiveFloat("NOMINATIM_RATE_PER_SEC", 1); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.OverpassURLs) == 0 {
		return errors.New("OVERPASS_URLS must list at least one mirror")
	}
	if c.NewsSimilarityThreshold > 1 {
		return errors.New("NEWS_SIMILARITY_THRESHOLD must be in (0, 1]")
	}
	if c.NewsMaxRecords > 250 {
		return errors.New("NEWS_MAX_RECORDS must not exceed 250")
	}
	if c.CollaboratorTimeout > c.RequestTimeout {
		return errors.New("COLLABORATOR_TIMEOUT must not exceed REQUEST_TIMEOUT")
	}
	if c.OverpassTimeout > c.CollaboratorTimeout {
		return errors.New("OVERPASS_TIMEOUT must not exceed COLLABORATOR_TIMEOUT")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
		}
	}
	return nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}
