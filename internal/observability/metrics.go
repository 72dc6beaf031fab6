package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vaccination_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the ETL pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge

	// Per-feed run metrics. Label feed={district,state}.
	Runs                 *prometheus.CounterVec   // labels: feed, outcome={success,fetch_error,parse_error,publish_error}
	RunDuration          *prometheus.HistogramVec // labels: feed
	Entities             *prometheus.GaugeVec     // labels: feed
	RejectedEntities     *prometheus.GaugeVec     // labels: feed
	Inconsistencies      *prometheus.GaugeVec     // labels: feed
	LastSuccessTimestamp *prometheus.GaugeVec     // labels: feed
	MergedEntities       prometheus.Gauge

	// Fetch metrics.
	FetchRequests *prometheus.CounterVec // labels: feed, outcome={success,not_modified,error}
	FetchCache    *prometheus.CounterVec // labels: result={hit,miss}

	MessagesProduced prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the refresh loop is active, 0 when shut down.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Feed processing runs by feed and outcome.",
		}, []string{"feed", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of one fetch-transform-publish cycle of a feed.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"feed"}),
		Entities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entities",
			Help:      "Entities produced by the last successful run of a feed.",
		}, []string{"feed"}),
		RejectedEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rejected_entities",
			Help:      "Entities dropped for bad dates in the last successful run of a feed.",
		}, []string{"feed"}),
		Inconsistencies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_inconsistencies",
			Help:      "Upstream data-quality issues found in the last successful run of a feed.",
		}, []string{"feed"}),
		LastSuccessTimestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run of a feed.",
		}, []string{"feed"}),
		MergedEntities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "merged_entities",
			Help:      "Raw district rows folded into duplicate merges in the last run.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Feed download requests by feed and outcome.",
		}, []string{"feed", "outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Conditional fetch cache lookups by result.",
		}, []string{"result"}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Total series messages written to the sink topic.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.PipelineRunning,
		m.Runs,
		m.RunDuration,
		m.Entities,
		m.RejectedEntities,
		m.Inconsistencies,
		m.LastSuccessTimestamp,
		m.MergedEntities,
		m.FetchRequests,
		m.FetchCache,
		m.MessagesProduced,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
