package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fxdash"

const (
	OutcomeOK        = "ok"
	OutcomeTimeout   = "timeout"
	OutcomeHTTPError = "http_error"
	OutcomeMalformed = "malformed"
	OutcomeError     = "error"
)

// Metrics groups the collectors used by the upstream client and the fetcher.
type Metrics struct {
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	CacheLookups     *prometheus.CounterVec
	Fallbacks        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream FX API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream FX API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by payload kind and result (hit, miss, stale).",
		}, []string{"kind", "result"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Fallback steps taken by payload kind and strategy.",
		}, []string{"kind", "strategy"}),
	}

	if reg != nil {
		reg.MustRegister(m.UpstreamRequests, m.UpstreamDuration, m.CacheLookups, m.Fallbacks)
	}

	return m
}

// Nop returns unregistered collectors, handy in tests.
func Nop() *Metrics {
	return New(nil)
}
