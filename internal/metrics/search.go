// Package metrics defines the Prometheus collectors for searches and the HTTP API.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Search Prometheus metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatherings",
			Name:      "searches_total",
			Help:      "Total number of searches",
		},
		[]string{"kind", "status"}, // status: "ok" / "invalid" / "error"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gatherings",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds, spec building and store query included",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"kind"},
	)

	SearchResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gatherings",
			Name:      "search_results",
			Help:      "Number of records returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"kind"},
	)

	ImportedRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatherings",
			Name:      "imported_records_total",
			Help:      "Total records written by file imports",
		},
		[]string{"kind"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(SearchesTotal, SearchDuration, SearchResults, ImportedRecordsTotal)
		prometheus.MustRegister(httpRequestDuration, httpRequestsTotal)
	})
}
