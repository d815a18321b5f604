// Package metrics exposes Prometheus collectors for the cache and the scanner.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheLookups counts cache lookups by outcome: exact, superset, miss.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfinder_cache_lookups_total",
			Help: "Cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// CacheRemovals counts deleted entries by reason: expired, evicted, corrupt.
	CacheRemovals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfinder_cache_removals_total",
			Help: "Cache entries removed by reason",
		},
		[]string{"reason"},
	)

	// CacheWriteErrors counts failed cache writes.
	CacheWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stockfinder_cache_write_errors_total",
			Help: "Cache writes that failed and were skipped",
		},
	)

	// ProviderRequests counts provider calls by provider and status.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfinder_provider_requests_total",
			Help: "Historical data requests sent to a provider",
		},
		[]string{"provider", "status"},
	)

	// TickersScanned counts tickers processed by status: found, none, error.
	TickersScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stockfinder_tickers_scanned_total",
			Help: "Tickers processed by the scanner",
		},
		[]string{"status"},
	)

	// ScanDuration observes wall time of whole scans.
	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stockfinder_scan_duration_seconds",
			Help:    "Duration of complete scans",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
