package fetch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes.
const (
	outcomeOK          = "ok"
	outcomeHTTPError   = "http_error"
	outcomeNetwork     = "network_error"
	outcomeInvalidJSON = "invalid_json"
	outcomeTooLarge    = "too_large"
)

type metrics struct {
	requests    *prometheus.CounterVec
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors prometheus.Counter
	shared      prometheus.Counter
	duration    prometheus.Histogram
}

// newMetrics registers the fetch metrics on reg. A nil reg leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dashlens",
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Upstream API requests by outcome",
		}, []string{"outcome"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dashlens",
			Subsystem: "fetch",
			Name:      "cache_hits_total",
			Help:      "Fetches served from the cache",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dashlens",
			Subsystem: "fetch",
			Name:      "cache_misses_total",
			Help:      "Fetches that went upstream",
		}),
		cacheErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dashlens",
			Subsystem: "fetch",
			Name:      "cache_errors_total",
			Help:      "Cache reads or writes that failed",
		}),
		shared: f.NewCounter(prometheus.CounterOpts{
			Namespace: "dashlens",
			Subsystem: "fetch",
			Name:      "coalesced_total",
			Help:      "Fetches that joined an identical in-flight request",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dashlens",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Upstream request latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
