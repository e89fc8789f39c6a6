package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the feed service.
type Metrics struct {
	PollerRunning   prometheus.Gauge
	TicksTotal      *prometheus.CounterVec // labels: outcome={success,skipped}
	TickDuration    prometheus.Histogram
	ActiveIncidents prometheus.Gauge

	// Upstream fetch metrics.
	FetchesTotal  *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration prometheus.Histogram
	CacheLookups  *prometheus.CounterVec // labels: result={fresh,refresh,stale,miss}

	// Reconciliation metrics.
	IncidentsCreated prometheus.Counter
	IncidentsUpdated prometheus.Counter
	IncidentsRemoved prometheus.Counter

	// Change-event publishing metrics.
	PublishesTotal *prometheus.CounterVec // labels: outcome={success,error,empty}
}

// NewMetrics creates and registers all feed metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PollerRunning,
		m.TicksTotal,
		m.TickDuration,
		m.ActiveIncidents,
		m.FetchesTotal,
		m.FetchDuration,
		m.CacheLookups,
		m.IncidentsCreated,
		m.IncidentsUpdated,
		m.IncidentsRemoved,
		m.PublishesTotal,
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
		PollerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "citizen_feed",
			Name:      "poller_running",
			Help:      "1 when the polling loop is active, 0 when shut down.",
		}),
		TicksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citizen_feed",
			Name:      "ticks_total",
			Help:      "Polling ticks by outcome. A skipped tick kept the prior state.",
		}, []string{"outcome"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "citizen_feed",
			Name:      "tick_duration_seconds",
			Help:      "Duration of a complete fetch-classify-reconcile-emit tick.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ActiveIncidents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "citizen_feed",
			Name:      "active_incidents",
			Help:      "Incidents in the last successfully reconciled snapshot.",
		}),
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citizen_feed",
			Name:      "fetches_total",
			Help:      "Upstream feed fetch attempts by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "citizen_feed",
			Name:      "fetch_duration_seconds",
			Help:      "Citizen API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citizen_feed",
			Name:      "cache_lookups_total",
			Help:      "Incident cache lookups by result. stale means a fetch failed and the previous payload was served.",
		}, []string{"result"}),
		IncidentsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citizen_feed",
			Name:      "incidents_created_total",
			Help:      "Incidents that appeared in the feed for the first time.",
		}),
		IncidentsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citizen_feed",
			Name:      "incidents_updated_total",
			Help:      "Incidents whose record changed between consecutive fetches.",
		}),
		IncidentsRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "citizen_feed",
			Name:      "incidents_removed_total",
			Help:      "Incidents that dropped out of the feed.",
		}),
		PublishesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "citizen_feed",
			Name:      "publishes_total",
			Help:      "Change-event publish attempts by outcome.",
		}, []string{"outcome"}),
	}
}
