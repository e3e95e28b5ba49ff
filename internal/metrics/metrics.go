package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels analyses and fetches that completed.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analyses and fetches.
	OutcomeError = "error"

	// SourceBackend labels customer metrics read from the monitoring backend.
	SourceBackend = "backend"
	// SourceEndpoint labels customer metrics read from the custom endpoint.
	SourceEndpoint = "endpoint"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_coverage",
			Name:      "analyses_total",
			Help:      "Total number of coverage analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_coverage",
			Name:      "analysis_seconds",
			Help:      "Coverage analysis latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	coveragePercentage = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_coverage",
			Name:      "coverage_percentage",
			Help:      "Distribution of computed coverage percentages.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	customerMetricsFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_coverage",
			Name:      "customer_metrics_fetches_total",
			Help:      "Customer metric list fetches, partitioned by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	customerMetricsCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_coverage",
			Name:      "customer_metrics_cache_total",
			Help:      "Customer metric cache lookups, partitioned by result.",
		},
		[]string{"result"},
	)

	catalogIntegrations = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mirador_coverage",
			Name:      "catalog_integrations",
			Help:      "Integrations known to the live catalog.",
		},
		[]string{"fallback"},
	)
)

// Register attaches mirador-coverage collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		coveragePercentage,
		customerMetricsFetches,
		customerMetricsCache,
		catalogIntegrations,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveCoverage records a computed coverage percentage.
func ObserveCoverage(pct float64) {
	coveragePercentage.Observe(pct)
}

// ObserveCustomerFetch records one customer metric fetch.
func ObserveCustomerFetch(source, outcome string) {
	customerMetricsFetches.WithLabelValues(source, outcome).Inc()
}

// ObserveCacheLookup records a customer metric cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	customerMetricsCache.WithLabelValues(result).Inc()
}

// SetCatalogIntegrations publishes the size of the live catalog.
func SetCatalogIntegrations(count int, fallback bool) {
	catalogIntegrations.Reset()
	label := "false"
	if fallback {
		label = "true"
	}
	catalogIntegrations.WithLabelValues(label).Set(float64(count))
}
