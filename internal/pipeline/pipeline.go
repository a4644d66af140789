package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/location-intel-service/internal/domain"
	"github.com/couchcryptid/location-intel-service/internal/observability"
)

// PlaceSource fetches raw points of interest of one type around a coordinate.
type PlaceSource interface {
	FetchPlaces(ctx context.Context, lat, lon float64, pt domain.PlaceType) ([]domain.SpatialRecord, error)
}

// LandUseSource fetches tagged land-use features around a coordinate.
type LandUseSource interface {
	FetchLandUse(ctx context.Context, lat, lon float64) ([]domain.TaggedFeature, error)
	RadiusMeters() int
}

// NewsSource fetches crime-related articles for a free-text location.
type NewsSource interface {
	FetchArticles(ctx context.Context, locationPhrase string) ([]domain.TextRecord, error)
}

// Publisher delivers a finished report downstream.
type Publisher interface {
	Publish(ctx context.Context, report domain.Report) error
}

// Sources groups the collaborators an assessment reads from. Geocoder and
// Publisher may be nil.
type Sources struct {
	Places    PlaceSource
	LandUse   LandUseSource
	News      NewsSource
	Geocoder  domain.ReverseGeocoder
	Publisher Publisher
}

// Settings holds the tunables applied to every assessment.
type Settings struct {
	CollaboratorTimeout time.Duration
	PlaceDedupMeters    float64
	SimilarityThreshold float64
	NewsRegion          string
	PublishTimeout      time.Duration
}

const defaultPublishTimeout = 10 * time.Second

// Degraded section names reported when a collaborator fails.
const (
	sectionGeocode = "geocode"
	sectionNews    = "news"
	sectionLandUse = "landuse"
)

// Pipeline assembles location reports from the configured sources.
type Pipeline struct {
	src      Sources
	settings Settings
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	publishing sync.WaitGroup
}

// New creates a Pipeline. It reports ready until Close is called.
func New(src Sources, s Settings, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if s.PublishTimeout <= 0 {
		s.PublishTimeout = defaultPublishTimeout
	}
	p := &Pipeline{
		src:      src,
		settings: s,
		logger:   logger,
		metrics:  metrics,
	}
	p.ready.Store(true)
	return p
}

// CheckReadiness returns nil while the pipeline accepts assessments.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline is shutting down")
	}
	return nil
}

// Close marks the pipeline as not ready and waits for in-flight publishes.
func (p *Pipeline) Close() {
	p.ready.Store(false)
	p.publishing.Wait()
}

// fetched holds the raw output of every collaborator. Each task writes only
// its own field or slot.
type fetched struct {
	places     [][]domain.SpatialRecord
	placeErrs  []error
	articles   []domain.TextRecord
	newsErr    error
	features   []domain.TaggedFeature
	landUseErr error
}

// Assess builds a report for one coordinate. Collaborator failures degrade
// the affected section; only an invalid coordinate or cancellation of ctx
// fails the assessment.
func (p *Pipeline) Assess(ctx context.Context, lat, lon float64) (domain.Report, error) {
	if err := domain.ValidateCoordinate(lat, lon); err != nil {
		p.metrics.AssessmentsTotal.WithLabelValues("invalid").Inc()
		return domain.Report{}, err
	}

	start := time.Now()
	p.metrics.AssessmentsInFlight.Inc()
	defer p.metrics.AssessmentsInFlight.Dec()

	var degraded []string

	loc, ok := p.geocode(ctx, lat, lon)
	if !ok {
		degraded = append(degraded, sectionGeocode)
	}
	phrase := domain.NewsPhrase(loc, p.settings.NewsRegion)

	f := p.fanOut(ctx, lat, lon, phrase)
	if err := ctx.Err(); err != nil {
		p.metrics.AssessmentsTotal.WithLabelValues("cancelled").Inc()
		p.logger.Info("assessment cancelled", "lat", lat, "lon", lon, "error", err)
		return domain.Report{}, err
	}

	query := domain.Geo{Lat: lat, Lon: lon}
	places := make(map[domain.PlaceType][]domain.SpatialRecord, len(domain.PlaceTypes))
	for i, pt := range domain.PlaceTypes {
		if f.placeErrs[i] != nil {
			degraded = append(degraded, "places:"+string(pt))
			continue
		}
		unique := domain.DeduplicatePlaces(query, f.places[i], p.settings.PlaceDedupMeters)
		p.metrics.RecordsDropped.WithLabelValues("places").Add(float64(len(f.places[i]) - len(unique)))
		places[pt] = unique
	}

	if f.newsErr != nil {
		degraded = append(degraded, sectionNews)
	}
	articles := domain.DeduplicateArticles(f.articles, p.settings.SimilarityThreshold)
	p.metrics.RecordsDropped.WithLabelValues("news").Add(float64(len(f.articles) - len(articles)))

	var landUse *domain.LandUseSummary
	if f.landUseErr != nil {
		degraded = append(degraded, sectionLandUse)
	} else {
		summary, err := domain.AggregateLandUse(f.features)
		switch {
		case errors.Is(err, domain.ErrInsufficientData):
			p.logger.Debug("land use omitted", "lat", lat, "lon", lon, "error", err)
		case err != nil:
			degraded = append(degraded, sectionLandUse)
		default:
			summary.RadiusMeters = p.src.LandUse.RadiusMeters()
			landUse = &summary
		}
	}

	report := domain.BuildReport(domain.ReportInput{
		Query:           query,
		Location:        loc,
		Places:          places,
		UniqueArticles:  len(articles),
		ArticlesFetched: len(f.articles),
		LandUse:         landUse,
	})
	report.Degraded = degraded

	p.publish(ctx, report)

	outcome := "complete"
	if len(degraded) > 0 {
		outcome = "degraded"
	}
	p.metrics.AssessmentsTotal.WithLabelValues(outcome).Inc()
	p.metrics.AssessmentDuration.Observe(time.Since(start).Seconds())

	p.logger.Info("assessment complete",
		"lat", lat,
		"lon", lon,
		"score", report.Safety.Score,
		"risk", report.Safety.Risk,
		"degraded", degraded,
		"duration", time.Since(start),
	)
	return report, nil
}

// geocode resolves the location under the collaborator timeout. A missing
// geocoder is not a degradation.
func (p *Pipeline) geocode(ctx context.Context, lat, lon float64) (domain.Location, bool) {
	if p.src.Geocoder == nil {
		return domain.Location{}, true
	}
	var loc domain.Location
	// ResolveLocation logs its own failures.
	err := p.observe(ctx, sectionGeocode, func(cctx context.Context) (int, error) {
		resolved, ok := domain.ResolveLocation(cctx, p.src.Geocoder, lat, lon, p.logger)
		if !ok {
			return 0, errors.New("reverse geocoding failed")
		}
		loc = resolved
		return 1, nil
	})
	return loc, err == nil
}

// fanOut runs every collaborator concurrently and waits for all of them.
func (p *Pipeline) fanOut(ctx context.Context, lat, lon float64, phrase string) fetched {
	f := fetched{
		places:    make([][]domain.SpatialRecord, len(domain.PlaceTypes)),
		placeErrs: make([]error, len(domain.PlaceTypes)),
	}

	var g errgroup.Group
	for i, pt := range domain.PlaceTypes {
		g.Go(func() error {
			f.placeErrs[i] = p.call(ctx, "places", func(cctx context.Context) (int, error) {
				recs, err := p.src.Places.FetchPlaces(cctx, lat, lon, pt)
				f.places[i] = recs
				return len(recs), err
			})
			if f.placeErrs[i] != nil {
				f.places[i] = nil
			}
			return nil
		})
	}

	g.Go(func() error {
		if phrase == "" {
			return nil
		}
		f.newsErr = p.call(ctx, sectionNews, func(cctx context.Context) (int, error) {
			articles, err := p.src.News.FetchArticles(cctx, phrase)
			f.articles = articles
			return len(articles), err
		})
		if f.newsErr != nil {
			f.articles = nil
		}
		return nil
	})

	g.Go(func() error {
		f.landUseErr = p.call(ctx, sectionLandUse, func(cctx context.Context) (int, error) {
			features, err := p.src.LandUse.FetchLandUse(cctx, lat, lon)
			f.features = features
			return len(features), err
		})
		if f.landUseErr != nil {
			f.features = nil
		}
		return nil
	})

	g.Wait() //nolint:errcheck // tasks never return errors
	return f
}

// call is observe with a warning logged when the collaborator fails.
func (p *Pipeline) call(ctx context.Context, feed string, fn func(context.Context) (int, error)) error {
	err := p.observe(ctx, feed, fn)
	if err != nil && ctx.Err() == nil {
		p.logger.Warn("collaborator failed, degrading section", "feed", feed, "error", err)
	}
	return err
}

// observe runs fn under the collaborator timeout and records its outcome.
// fn returns how many records it produced.
func (p *Pipeline) observe(ctx context.Context, feed string, fn func(context.Context) (int, error)) error {
	cctx, cancel := context.WithTimeout(ctx, p.settings.CollaboratorTimeout)
	defer cancel()

	start := time.Now()
	n, err := fn(cctx)
	p.metrics.CollaboratorDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		p.metrics.CollaboratorRequests.WithLabelValues(feed, "error").Inc()
		return fmt.Errorf("%s: %w", feed, err)
	case n == 0:
		p.metrics.CollaboratorRequests.WithLabelValues(feed, "empty").Inc()
	default:
		p.metrics.CollaboratorRequests.WithLabelValues(feed, "success").Inc()
	}
	return nil
}

// publish hands the report to the publisher in the background. The write
// outlives the request context but is bounded by PublishTimeout.
func (p *Pipeline) publish(ctx context.Context, report domain.Report) {
	if p.src.Publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.settings.PublishTimeout)
	p.publishing.Add(1)
	go func() {
		defer p.publishing.Done()
		defer cancel()
		if err := p.src.Publisher.Publish(pctx, report); err != nil {
			p.metrics.PublishErrors.Inc()
			p.logger.Error("publish report failed", "error", err)
			return
		}
		p.metrics.ReportsPublished.Inc()
	}()
}
