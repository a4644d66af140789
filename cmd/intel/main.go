package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/location-intel-service/internal/adapter/gdelt"
	httpadapter "github.com/couchcryptid/location-intel-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/location-intel-service/internal/adapter/kafka"
	"github.com/couchcryptid/location-intel-service/internal/adapter/nominatim"
	"github.com/couchcryptid/location-intel-service/internal/adapter/overpass"
	"github.com/couchcryptid/location-intel-service/internal/config"
	"github.com/couchcryptid/location-intel-service/internal/observability"
	"github.com/couchcryptid/location-intel-service/internal/pipeline"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geoClient := nominatim.NewClient(cfg.NominatimURL, cfg.NominatimUserAgent, cfg.NominatimTimeout, cfg.NominatimRatePerSec, logger)
	geocoder, err := nominatim.NewCachedGeocoder(geoClient, cfg.NominatimCacheSize, metrics)
	if err != nil {
		logger.Error("failed to create geocoder", "error", err)
		os.Exit(1)
	}

	osmClient := overpass.NewClient(overpass.Settings{
		Endpoints:           cfg.OverpassURLs,
		Timeout:             cfg.OverpassTimeout,
		MaxConcurrent:       cfg.OverpassMaxConcurrent,
		POIRadiusMeters:     cfg.POIRadiusMeters,
		LandUseRadiusMeters: cfg.LandUseRadiusMeters,
	}, metrics, logger)

	newsClient := gdelt.NewClient(gdelt.Settings{
		BaseURL:    cfg.GDELTURL,
		Timeout:    cfg.GDELTTimeout,
		Country:    cfg.NewsCountry,
		MaxRecords: cfg.NewsMaxRecords,
		Timespan:   cfg.NewsTimespan,
		UserAgent:  cfg.NominatimUserAgent,
	}, logger)

	sources := pipeline.Sources{
		Places:   osmClient,
		LandUse:  osmClient,
		News:     newsClient,
		Geocoder: geocoder,
	}

	// Report publishing is feature-flagged via KAFKA_ENABLED.
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		sources.Publisher = publisher
		logger.Info("report publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("report publishing disabled")
	}

	p := pipeline.New(sources, pipeline.Settings{
		CollaboratorTimeout: cfg.CollaboratorTimeout,
		PlaceDedupMeters:    cfg.PlaceDedupMeters,
		SimilarityThreshold: cfg.NewsSimilarityThreshold,
		NewsRegion:          cfg.NewsRegion,
		PublishTimeout:      cfg.KafkaPublishTimeout,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, cfg.RequestTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	// Waits for reports still being published before the writer closes.
	p.Close()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
