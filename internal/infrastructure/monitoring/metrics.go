package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/turtacn/sixcities/pkg/constants"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	RateLimitDecisions  *prometheus.CounterVec
	CacheRequests       *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Tests pass prometheus.NewRegistry() to stay isolated from the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RateLimitDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixcities_rate_limit_decisions_total",
				Help: "Rate limiter decisions by tier, result and counter source.",
			},
			[]string{"tier", "result", "source"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixcities_cache_requests_total",
				Help: "Cache lookups by key prefix and result.",
			},
			[]string{"prefix", "result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sixcities_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sixcities_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.RateLimitDecisions, m.CacheRequests, m.HTTPRequestsTotal, m.HTTPRequestDuration)
	}
	return m
}

// RecordRateLimitDecision records an admit outcome.
func (m *Metrics) RecordRateLimitDecision(tier constants.RateLimitTier, allowed bool, source string) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "rejected"
	}
	m.RateLimitDecisions.WithLabelValues(string(tier), result, source).Inc()
}

// RecordCacheResult records a cache hit, miss or error for a key prefix.
func (m *Metrics) RecordCacheResult(prefix, result string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(prefix, result).Inc()
}
