package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_assistant_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulse_assistant_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	ProviderCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_assistant_provider_calls_total",
			Help: "Total number of outbound inference provider calls.",
		},
		[]string{"operation", "status"},
	)

	ProviderCallDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pulse_assistant_provider_call_duration_seconds",
			Help:    "Outbound provider call duration in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_assistant_cache_lookups_total",
			Help: "Response cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	QuotaDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulse_assistant_quota_denials_total",
			Help: "Quota check denials by pool kind.",
		},
		[]string{"pool"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderCallsTotal,
		ProviderCallDuration,
		CacheLookupsTotal,
		QuotaDenialsTotal,
	)
}
