package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	DispatchSuccesses  prometheus.Counter
	DispatchFailures   prometheus.Counter
	CapacityExhausted  prometheus.Counter
	TransportFailures  prometheus.Counter
	RepliesReconciled  prometheus.Counter
	SideEffectFailures prometheus.Counter
	TrackingEvents     prometheus.Counter
	DomainsPaused      prometheus.Gauge
	DispatchDuration   prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		DispatchSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_engine_dispatch_successes",
			Help: "Total number of touchpoints successfully dispatched",
		}),
		DispatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_engine_dispatch_failures",
			Help: "Total number of dispatch attempts that failed",
		}),
		CapacityExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_engine_capacity_exhausted",
			Help: "Total number of dispatch attempts deferred because no domain had capacity",
		}),
		TransportFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_engine_transport_failures",
			Help: "Total number of transport delivery errors",
		}),
		RepliesReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_engine_replies_reconciled",
			Help: "Total number of inbound replies reconciled against sequences",
		}),
		SideEffectFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_engine_side_effect_failures",
			Help: "Total number of best-effort reply side effects that failed",
		}),
		TrackingEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outreach_engine_tracking_events",
			Help: "Total number of open/click tracking events recorded",
		}),
		DomainsPaused: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "outreach_engine_domains_paused",
			Help: "Number of sending domains currently paused for abuse signals",
		}),
		DispatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "outreach_engine_dispatch_duration_seconds",
			Help:    "Time spent dispatching a single touchpoint",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
