// Package metrics defines the Prometheus collectors for a batch run and the
// HTTP server that exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "census_geocode"

// Metrics holds the collectors updated by the batch runner.
type Metrics struct {
	Addresses       *prometheus.CounterVec
	RateLimited     prometheus.Counter
	CacheHits       prometheus.Counter
	RegionMismatch  prometheus.Counter
	RequestDuration prometheus.Histogram
	Pending         prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Addresses: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "addresses_total",
			Help:      "Addresses that left the batch loop, by final state (done or skipped).",
		}, []string{"state"}),
		RateLimited: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Rate-limit backoffs taken.",
		}),
		CacheHits: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Addresses answered from the result cache.",
		}),
		RegionMismatch: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_mismatch_total",
			Help:      "Results whose state code differs from the expected region.",
		}),
		RequestDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of Census geocoder requests.",
			Buckets:   prometheus.DefBuckets,
		}),
		Pending: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "addresses_pending",
			Help:      "Addresses not yet processed in the current run.",
		}),
	}
}
