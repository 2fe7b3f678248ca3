// Package metrics exposes Prometheus collectors for search, intent, and catalog activity.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "banshi"

// Search Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search turns",
		},
		[]string{"mode", "outcome"}, // mode: query/browse; outcome: ok/superseded/canceled/error
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search turn duration in seconds, including intent classification",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of ranked results returned per search turn",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	IntentRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "intent_requests_total",
			Help:      "Intent classifications by outcome (ok or degraded reason)",
		},
		[]string{"model", "outcome"},
	)

	IntentRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "intent_request_duration_seconds",
			Help:      "Intent classification call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	CatalogRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_records",
			Help:      "Number of records in the current catalog snapshot",
		},
	)

	CatalogVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_version",
			Help:      "Version of the current catalog snapshot",
		},
	)

	CatalogImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_imports_total",
			Help:      "Catalog replacements by origin and status",
		},
		[]string{"origin", "status"}, // origin: upload/file/storage/default
	)
)

var registerOnce sync.Once

// Register registers the search, intent, and catalog metrics with the default registry.
// It is safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			SearchRequestsTotal,
			SearchDuration,
			SearchResults,
			IntentRequestsTotal,
			IntentRequestDuration,
			CatalogRecords,
			CatalogVersion,
			CatalogImportsTotal,
		)
	})
}

// ObserveCatalog records the size and version of a newly installed catalog.
func ObserveCatalog(origin string, version uint64, records int) {
	CatalogImportsTotal.WithLabelValues(origin, "ok").Inc()
	CatalogVersion.Set(float64(version))
	CatalogRecords.Set(float64(records))
}
