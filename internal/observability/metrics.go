package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "swe_climatology"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// climatology pipeline.
type Metrics struct {
	Runs            *prometheus.CounterVec // labels: outcome={success,degraded,error}
	RunDuration     prometheus.Histogram
	PipelineRunning prometheus.Gauge
	LastSuccess     prometheus.Gauge

	// Normalization and quality metrics.
	ReadingsFetched  prometheus.Counter
	MalformedRecords prometheus.Counter
	LeapDaysDropped  prometheus.Counter
	DuplicateRecords prometheus.Counter
	ValuesNulled     prometheus.Counter
	MissingAnchors   prometheus.Counter

	// Collector metrics.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	FetchCache    *prometheus.CounterVec // labels: result={hit,miss}
	FetchDuration prometheus.Histogram

	TablesPublished prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsUnregistered creates Metrics without registering them, for
// one-shot tools that never serve /metrics.
func NewMetricsUnregistered() *Metrics {
	return newMetrics()
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests may create as many as they like.
func NewMetricsForTesting() *Metrics {
	return NewMetricsUnregistered()
}

func newMetrics() *Metrics {
	return &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-compute-publish run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that produced a table.",
		}),
		ReadingsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_fetched_total",
			Help:      "Raw readings received from the collector.",
		}),
		MalformedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_records_total",
			Help:      "Readings skipped because their date could not be parsed.",
		}),
		LeapDaysDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leap_days_dropped_total",
			Help:      "February 29 readings excluded from the 365-day calendar.",
		}),
		DuplicateRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_records_total",
			Help:      "Readings discarded because another reading had the same date.",
		}),
		ValuesNulled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "values_nulled_total",
			Help:      "Values removed by the quality filter.",
		}),
		MissingAnchors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_anchor_total",
			Help:      "Runs whose series had no record on October 1 of the active water year.",
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Collector requests by outcome.",
		}, []string{"outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_cache_total",
			Help:      "Collector cache lookups by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "CUAHSI GetValuesObject request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		TablesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_published_total",
			Help:      "Water-year tables handed to the publisher.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Runs,
		m.RunDuration,
		m.PipelineRunning,
		m.LastSuccess,
		m.ReadingsFetched,
		m.MalformedRecords,
		m.LeapDaysDropped,
		m.DuplicateRecords,
		m.ValuesNulled,
		m.MissingAnchors,
		m.FetchRequests,
		m.FetchCache,
		m.FetchDuration,
		m.TablesPublished,
	}
}
