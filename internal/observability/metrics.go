package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the dashboard.
type Metrics struct {
	IncidentsCreated  prometheus.Counter
	IncidentsResolved prometheus.Counter
	IncidentsReopened prometheus.Counter
	IncidentsDeleted  prometheus.Counter

	// Persistence metrics. Write failures are non-fatal but must not go
	// unnoticed, so they are counted as well as logged.
	StoreWriteFailures prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeDuration prometheus.Histogram
}

// NewMetrics creates and registers all dashboard metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.IncidentsCreated,
		m.IncidentsResolved,
		m.IncidentsReopened,
		m.IncidentsDeleted,
		m.StoreWriteFailures,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		IncidentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_triage",
			Name:      "incidents_created_total",
			Help:      "Total incident reports accepted into the store.",
		}),
		IncidentsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_triage",
			Name:      "incidents_resolved_total",
			Help:      "Total open incidents marked resolved.",
		}),
		IncidentsReopened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_triage",
			Name:      "incidents_reopened_total",
			Help:      "Total resolved incidents reopened.",
		}),
		IncidentsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_triage",
			Name:      "incidents_deleted_total",
			Help:      "Total incidents removed from the store.",
		}),
		StoreWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "incident_triage",
			Name:      "store_write_failures_total",
			Help:      "Persistence writes that failed; in-memory state stays authoritative.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_triage",
			Name:      "geocode_requests_total",
			Help:      "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "incident_triage",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "incident_triage",
			Name:      "geocode_duration_seconds",
			Help:      "Address search request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}
