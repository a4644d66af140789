package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/location-intel-service/internal/domain"
	"github.com/couchcryptid/location-intel-service/internal/observability"
	"github.com/couchcryptid/location-intel-service/internal/pipeline"
)

// --- mocks ---

type mockPlaces struct {
	records map[domain.PlaceType][]domain.SpatialRecord
	errs    map[domain.PlaceType]error
	block   bool
	calls   atomic.Int64
}

func (m *mockPlaces) FetchPlaces(ctx context.Context, _, _ float64, pt domain.PlaceType) ([]domain.SpatialRecord, error) {
	m.calls.Add(1)
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := m.errs[pt]; err != nil {
		return nil, err
	}
	return m.records[pt], nil
}

type mockLandUse struct {
	features []domain.TaggedFeature
	err      error
}

func (m *mockLandUse) FetchLandUse(_ context.Context, _, _ float64) ([]domain.TaggedFeature, error) {
	return m.features, m.err
}

func (m *mockLandUse) RadiusMeters() int { return 300 }

type mockNews struct {
	articles []domain.TextRecord
	err      error

	mu      sync.Mutex
	phrases []string
}

func (m *mockNews) FetchArticles(_ context.Context, phrase string) ([]domain.TextRecord, error) {
	m.mu.Lock()
	m.phrases = append(m.phrases, phrase)
	m.mu.Unlock()
	return m.articles, m.err
}

type mockGeocoder struct {
	loc domain.Location
	err error
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.Location, error) {
	return m.loc, m.err
}

type mockPublisher struct {
	err     error
	release chan struct{}

	mu      sync.Mutex
	reports []domain.Report
	ctxErrs []error
}

func (m *mockPublisher) Publish(ctx context.Context, r domain.Report) error {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return m.err
}

func (m *mockPublisher) published() []domain.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Report(nil), m.reports...)
}

// slowPublisher blocks until its context expires.
type slowPublisher struct{}

func (slowPublisher) Publish(ctx context.Context, _ domain.Report) error {
	<-ctx.Done()
	return ctx.Err()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	pune       = domain.Geo{Lat: 18.5204, Lon: 73.8567}
	puneLoc    = domain.Location{City: "Pune", State: "Maharashtra", Country: "India"}
	frozenTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

func place(name string, lat, lon float64, pt domain.PlaceType) domain.SpatialRecord {
	return domain.SpatialRecord{Name: name, Lat: lat, Lon: lon, Type: pt}
}

// fixtureSources returns sources where police has a duplicate pair, there is
// one hospital and the news feed carries a near-duplicate headline.
func fixtureSources() (*mockPlaces, *mockLandUse, *mockNews, *mockGeocoder) {
	places := &mockPlaces{records: map[domain.PlaceType][]domain.SpatialRecord{
		domain.PlacePolice: {
			place("Shivajinagar Police Station", 18.5310, 73.8446, domain.PlacePolice),
			place("Shivajinagar Police Stn", 18.5311, 73.8446, domain.PlacePolice),
			place("Deccan Police Chowky", 18.5167, 73.8415, domain.PlacePolice),
		},
		domain.PlaceHospital: {
			place("Ruby Hall Clinic", 18.5326, 73.8773, domain.PlaceHospital),
		},
	}}
	landUse := &mockLandUse{features: []domain.TaggedFeature{
		{PrimaryTag: "residential", Weight: domain.LandUseTagWeight},
		{PrimaryTag: "residential", Weight: domain.LandUseTagWeight},
		{PrimaryTag: "retail", Weight: domain.LandUseTagWeight},
		{PrimaryTag: "park", Weight: domain.LandUseTagWeight},
		{IsRoad: true, RoadKind: "primary"},
	}}
	news := &mockNews{articles: []domain.TextRecord{
		domain.NewTextRecord("Two held for chain snatching in Pune", "https://a.example/1", "a.example", ""),
		domain.NewTextRecord("Two held for chain snatching in Pune city", "https://b.example/2", "b.example", ""),
		domain.NewTextRecord("Pune police bust gambling den", "https://c.example/3", "c.example", ""),
	}}
	return places, landUse, news, &mockGeocoder{loc: puneLoc}
}

func testSettings() pipeline.Settings {
	return pipeline.Settings{
		CollaboratorTimeout: time.Second,
		PlaceDedupMeters:    domain.DefaultPlaceThresholdMeters,
		SimilarityThreshold: domain.DefaultSimilarityThreshold,
		NewsRegion:          "India",
	}
}

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(frozenTime))
	t.Cleanup(func() { domain.SetClock(nil) })
}

// --- tests ---

func TestAssess_HappyPath(t *testing.T) {
	freezeClock(t)
	places, landUse, news, geo := fixtureSources()
	pub := &mockPublisher{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(pipeline.Sources{
		Places: places, LandUse: landUse, News: news, Geocoder: geo, Publisher: pub,
	}, testSettings(), discardLogger(), metrics)

	report, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)
	p.Close()

	assert.Empty(t, report.Degraded)
	assert.Equal(t, pune, report.Query)
	assert.Equal(t, "Pune", report.Location.City)
	assert.Equal(t, frozenTime, report.GeneratedAt)
	assert.Equal(t, int64(len(domain.PlaceTypes)), places.calls.Load())
	assert.Equal(t, []string{"Pune Maharashtra India"}, news.phrases)

	assert.Equal(t, 2, report.SummaryCounts["police_stations"])
	assert.Equal(t, 1, report.SummaryCounts["hospitals"])
	assert.Equal(t, 0, report.SummaryCounts["banks"])
	assert.Len(t, report.SummaryCounts, len(domain.PlaceTypes))

	// 85 - 2*3 + min(2*4,15) + min(1*2,10)
	assert.Equal(t, 89, report.Safety.Score)
	assert.Equal(t, domain.RiskSafe, report.Safety.Risk)
	assert.Equal(t, 2, report.Safety.CrimeNewsCount)
	assert.Equal(t, 3, report.Safety.ArticlesFetched)

	require.NotNil(t, report.LandUse)
	assert.Equal(t, 300, report.LandUse.RadiusMeters)
	assert.Equal(t, domain.CategoryResidential, report.LandUse.DominantZone)
	assert.Equal(t, 1, report.LandUse.Diagnostics.RoadCount)

	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, report.Safety, published[0].Safety)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AssessmentsTotal.WithLabelValues("complete")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RecordsDropped.WithLabelValues("places")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.RecordsDropped.WithLabelValues("news")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsPublished), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.AssessmentsInFlight), 0)
}

func TestAssess_PlacesSortedByDistance(t *testing.T) {
	places, landUse, news, geo := fixtureSources()
	p := pipeline.New(pipeline.Sources{Places: places, LandUse: landUse, News: news, Geocoder: geo},
		testSettings(), discardLogger(), observability.NewMetricsForTesting())

	report, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)

	police := report.Places["police_stations"]
	require.Len(t, police, 2)
	assert.Equal(t, "Deccan Police Chowky", police[0].Name)
	assert.Equal(t, "Shivajinagar Police Station", police[1].Name)
	assert.Less(t, police[0].DistanceMeters, police[1].DistanceMeters)
	assert.NotNil(t, report.Places["atms"])
	assert.Empty(t, report.Places["atms"])
}

func TestAssess_InvalidCoordinate(t *testing.T) {
	places, landUse, news, geo := fixtureSources()
	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(pipeline.Sources{Places: places, LandUse: landUse, News: news, Geocoder: geo},
		testSettings(), discardLogger(), metrics)

	_, err := p.Assess(context.Background(), 91, 0)

	require.ErrorIs(t, err, domain.ErrInvalidCoordinate)
	assert.Zero(t, places.calls.Load())
	assert.Empty(t, news.phrases)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AssessmentsTotal.WithLabelValues("invalid")), 0)
}

func TestAssess_CollaboratorFailuresDegrade(t *testing.T) {
	places, _, news, _ := fixtureSources()
	places.errs = map[domain.PlaceType]error{domain.PlacePolice: errors.New("mirrors exhausted")}
	news.err = errors.New("status 429")
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(pipeline.Sources{
		Places:   places,
		LandUse:  &mockLandUse{err: errors.New("timeout")},
		News:     news,
		Geocoder: &mockGeocoder{loc: puneLoc},
	}, testSettings(), discardLogger(), metrics)

	report, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"places:police", "news", "landuse"}, report.Degraded)
	assert.Equal(t, 0, report.SummaryCounts["police_stations"])
	assert.Equal(t, 1, report.SummaryCounts["hospitals"])
	assert.Equal(t, 0, report.Safety.CrimeNewsCount)
	assert.Nil(t, report.LandUse)

	// 85 + 2 - 5 (no police, low crime)
	assert.Equal(t, 82, report.Safety.Score)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AssessmentsTotal.WithLabelValues("degraded")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.CollaboratorRequests.WithLabelValues("news", "error")), 0)
}

func TestAssess_GeocodeFailureSkipsNews(t *testing.T) {
	places, landUse, news, _ := fixtureSources()
	p := pipeline.New(pipeline.Sources{
		Places:   places,
		LandUse:  landUse,
		News:     news,
		Geocoder: &mockGeocoder{err: errors.New("connection refused")},
	}, testSettings(), discardLogger(), observability.NewMetricsForTesting())

	report, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)

	assert.Equal(t, []string{"geocode"}, report.Degraded)
	assert.True(t, report.Location.IsZero())
	assert.Empty(t, news.phrases, "no news search without a place name")
	assert.Equal(t, 0, report.Safety.ArticlesFetched)
}

func TestAssess_NilGeocoderIsNotDegraded(t *testing.T) {
	places, landUse, news, _ := fixtureSources()
	p := pipeline.New(pipeline.Sources{Places: places, LandUse: landUse, News: news},
		testSettings(), discardLogger(), observability.NewMetricsForTesting())

	report, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)

	assert.Empty(t, report.Degraded)
	assert.Empty(t, news.phrases)
}

func TestAssess_CollaboratorTimeout(t *testing.T) {
	_, landUse, news, geo := fixtureSources()
	settings := testSettings()
	settings.CollaboratorTimeout = 20 * time.Millisecond

	p := pipeline.New(pipeline.Sources{
		Places: &mockPlaces{block: true}, LandUse: landUse, News: news, Geocoder: geo,
	}, settings, discardLogger(), observability.NewMetricsForTesting())

	report, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)

	assert.Len(t, report.Degraded, len(domain.PlaceTypes))
	assert.Contains(t, report.Degraded, "places:hospital")
	assert.Equal(t, 2, report.Safety.CrimeNewsCount)
}

func TestAssess_CancelledContext(t *testing.T) {
	_, landUse, news, geo := fixtureSources()
	metrics := observability.NewMetricsForTesting()
	pub := &mockPublisher{}
	p := pipeline.New(pipeline.Sources{
		Places: &mockPlaces{block: true}, LandUse: landUse, News: news, Geocoder: geo, Publisher: pub,
	}, testSettings(), discardLogger(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := p.Assess(ctx, pune.Lat, pune.Lon)

	require.ErrorIs(t, err, context.Canceled)
	p.Close()
	assert.Empty(t, pub.published())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.AssessmentsTotal.WithLabelValues("cancelled")), 0)
}

func TestAssess_PublishFailureDoesNotFail(t *testing.T) {
	places, landUse, news, geo := fixtureSources()
	metrics := observability.NewMetricsForTesting()
	pub := &mockPublisher{err: errors.New("broker unavailable")}
	p := pipeline.New(pipeline.Sources{
		Places: places, LandUse: landUse, News: news, Geocoder: geo, Publisher: pub,
	}, testSettings(), discardLogger(), metrics)

	_, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)
	p.Close()

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PublishErrors), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.ReportsPublished), 0)
}

func TestAssess_PublishDoesNotHoldResponse(t *testing.T) {
	places, landUse, news, geo := fixtureSources()
	metrics := observability.NewMetricsForTesting()
	pub := &mockPublisher{release: make(chan struct{})}
	p := pipeline.New(pipeline.Sources{
		Places: places, LandUse: landUse, News: news, Geocoder: geo, Publisher: pub,
	}, testSettings(), discardLogger(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := p.Assess(ctx, pune.Lat, pune.Lon)
	require.NoError(t, err)
	assert.Empty(t, pub.published(), "assessment returned before the publish finished")

	// The request is over; the publish must still go through.
	cancel()
	close(pub.release)
	p.Close()

	require.Len(t, pub.published(), 1)
	assert.NoError(t, pub.ctxErrs[0])
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsPublished), 0)
}

func TestAssess_PublishTimeout(t *testing.T) {
	places, landUse, news, geo := fixtureSources()
	metrics := observability.NewMetricsForTesting()
	pub := &slowPublisher{}
	settings := testSettings()
	settings.PublishTimeout = 20 * time.Millisecond
	p := pipeline.New(pipeline.Sources{
		Places: places, LandUse: landUse, News: news, Geocoder: geo, Publisher: pub,
	}, settings, discardLogger(), metrics)

	_, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)
	p.Close()

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PublishErrors), 0)
}

func TestAssess_GeocodeFailureLoggedOnce(t *testing.T) {
	places, landUse, news, _ := fixtureSources()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	p := pipeline.New(pipeline.Sources{
		Places:   places,
		LandUse:  landUse,
		News:     news,
		Geocoder: &mockGeocoder{err: errors.New("connection refused")},
	}, testSettings(), logger, observability.NewMetricsForTesting())

	_, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(buf.String(), "level=WARN"))
	assert.Equal(t, 1, strings.Count(buf.String(), "connection refused"))
}

func TestAssess_SparseLandUseIsInferred(t *testing.T) {
	places, _, news, geo := fixtureSources()
	p := pipeline.New(pipeline.Sources{
		Places: places, LandUse: &mockLandUse{}, News: news, Geocoder: geo,
	}, testSettings(), discardLogger(), observability.NewMetricsForTesting())

	report, err := p.Assess(context.Background(), pune.Lat, pune.Lon)
	require.NoError(t, err)

	require.NotNil(t, report.LandUse)
	assert.True(t, report.LandUse.Diagnostics.IsRuralInferred)
	assert.Equal(t, domain.CategoryAgriculture, report.LandUse.DominantZone)
}

func TestPipeline_Readiness(t *testing.T) {
	p := pipeline.New(pipeline.Sources{}, testSettings(), discardLogger(), observability.NewMetricsForTesting())

	require.NoError(t, p.CheckReadiness(context.Background()))

	p.Close()
	assert.Error(t, p.CheckReadiness(context.Background()))
}
