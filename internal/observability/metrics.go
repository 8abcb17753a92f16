package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flight_import"

// Metrics holds the Prometheus counters, histograms, and gauges for the import pipeline.
type Metrics struct {
	RowsReceived      prometheus.Counter
	ArrivalsCreated   prometheus.Counter
	DeparturesCreated prometheus.Counter
	ImportsInFlight   prometheus.Gauge

	// Row-level metrics.
	RowWarnings     *prometheus.CounterVec // labels: kind={parse,validation,unclassified}
	TurnaroundRules *prometheus.CounterVec // labels: routing={special,other}, category={NB,WB}

	// Run-level metrics.
	ImportRuns     *prometheus.CounterVec // labels: outcome={success,fatal,sink_error,cancelled}
	BatchSize      prometheus.Histogram
	ImportDuration prometheus.Histogram
	SinkErrors     *prometheus.CounterVec // labels: sink
}

// NewMetrics creates and registers all import metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RowsReceived,
		m.ArrivalsCreated,
		m.DeparturesCreated,
		m.ImportsInFlight,
		m.RowWarnings,
		m.TurnaroundRules,
		m.ImportRuns,
		m.BatchSize,
		m.ImportDuration,
		m.SinkErrors,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_received_total",
			Help:      "Total rows read from uploaded batches.",
		}),
		ArrivalsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arrivals_created_total",
			Help:      "Total records written to the arrivals table.",
		}),
		DeparturesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "departures_created_total",
			Help:      "Total records written to the departures table after deduplication.",
		}),
		ImportsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "imports_in_flight",
			Help:      "Number of import runs currently being processed.",
		}),
		RowWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_warnings_total",
			Help:      "Rows skipped with a warning, by kind.",
		}, []string{"kind"}),
		TurnaroundRules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turnaround_rules_total",
			Help:      "Auto-calculated departures by routing group and aircraft category.",
		}, []string{"routing", "category"}),
		ImportRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_runs_total",
			Help:      "Import runs by outcome.",
		}, []string{"outcome"}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of rows per uploaded batch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		ImportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of a complete read-classify-write import run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_errors_total",
			Help:      "Failed table writes by sink.",
		}, []string{"sink"}),
	}
}
