package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "location_intel"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// assessment service.
type Metrics struct {
	AssessmentsTotal    *prometheus.CounterVec // labels: outcome={complete,degraded,cancelled,invalid}
	AssessmentDuration  prometheus.Histogram
	AssessmentsInFlight prometheus.Gauge

	// Collaborator metrics.
	CollaboratorRequests *prometheus.CounterVec   // labels: feed={places,news,landuse,geocode}, outcome={success,error,empty}
	CollaboratorDuration *prometheus.HistogramVec // labels: feed
	MirrorFallbacks      *prometheus.CounterVec   // labels: feed={places,landuse}

	// Deduplication metrics.
	RecordsDropped *prometheus.CounterVec // labels: feed={places,news}

	// Geocoding cache metrics.
	GeocodeCache *prometheus.CounterVec // labels: result={hit,miss}

	// Publishing metrics.
	ReportsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AssessmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Assessments served by outcome.",
		}, []string{"outcome"}),
		AssessmentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "assessment_duration_seconds",
			Help:      "Duration of a complete assessment including all collaborator calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45},
		}),
		AssessmentsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "assessments_in_flight",
			Help:      "Assessments currently being computed.",
		}),
		CollaboratorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_requests_total",
			Help:      "External feed requests by feed and outcome.",
		}, []string{"feed", "outcome"}),
		CollaboratorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_duration_seconds",
			Help:      "External feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"feed"}),
		MirrorFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_fallbacks_total",
			Help:      "Times a mirror failed and the next one was tried.",
		}, []string{"feed"}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_deduplicated_total",
			Help:      "Records dropped as duplicates by feed.",
		}, []string{"feed"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_published_total",
			Help:      "Reports written to the assessment topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed report publications.",
		}),
	}

	prometheus.MustRegister(
		m.AssessmentsTotal,
		m.AssessmentDuration,
		m.AssessmentsInFlight,
		m.CollaboratorRequests,
		m.CollaboratorDuration,
		m.MirrorFallbacks,
		m.RecordsDropped,
		m.GeocodeCache,
		m.ReportsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AssessmentsTotal:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "assessments_total"}, []string{"outcome"}),
		AssessmentDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "assessment_duration_seconds"}),
		AssessmentsInFlight:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "assessments_in_flight"}),
		CollaboratorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "collaborator_requests_total"}, []string{"feed", "outcome"}),
		CollaboratorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: "collaborator_duration_seconds"}, []string{"feed"}),
		MirrorFallbacks:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "mirror_fallbacks_total"}, []string{"feed"}),
		RecordsDropped:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "records_deduplicated_total"}, []string{"feed"}),
		GeocodeCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "geocode_cache_total"}, []string{"result"}),
		ReportsPublished:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "reports_published_total"}),
		PublishErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "publish_errors_total"}),
	}
}
