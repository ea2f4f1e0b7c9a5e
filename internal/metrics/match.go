package metrics

import "github.com/prometheus/client_golang/prometheus"

// Match Prometheus metrics.
var (
	MatchQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dbas",
			Name:      "match_queries_total",
			Help:      "Total number of match queries",
		},
		[]string{"metric", "status"},
	)

	MatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dbas",
			Name:      "match_duration_seconds",
			Help:      "Match query duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"metric"},
	)

	MatchPartialResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dbas",
			Name:      "match_partial_results_total",
			Help:      "Match queries that returned fewer sounds than requested",
		},
		[]string{"metric"},
	)

	MatchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dbas",
			Name:      "match_cache_total",
			Help:      "Match cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	CatalogEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dbas",
			Name:      "catalog_entries",
			Help:      "Number of sounds in the current reference snapshot",
		},
	)

	MahalanobisAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dbas",
			Name:      "mahalanobis_available",
			Help:      "1 when the current snapshot has an invertible covariance matrix",
		},
	)
)

var matchMetricsRegistered bool

// RegisterMatchMetrics registers Prometheus match metrics. Must be called once from main.
func RegisterMatchMetrics() {
	if matchMetricsRegistered {
		return
	}
	prometheus.MustRegister(MatchQueriesTotal)
	prometheus.MustRegister(MatchDuration)
	prometheus.MustRegister(MatchPartialResultsTotal)
	prometheus.MustRegister(MatchCacheTotal)
	prometheus.MustRegister(CatalogEntries)
	prometheus.MustRegister(MahalanobisAvailable)
	matchMetricsRegistered = true
}

// ObserveSnapshot publishes the gauges describing a freshly loaded snapshot.
func ObserveSnapshot(entries int, mahalanobis bool) {
	CatalogEntries.Set(float64(entries))
	if mahalanobis {
		MahalanobisAvailable.Set(1)
	} else {
		MahalanobisAvailable.Set(0)
	}
}
