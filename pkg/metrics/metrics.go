// Package metrics registers the Prometheus metric families for the
// closure-generation pipeline and the HTTP surface.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "repochecker"

// Registry holds every metric family this process exports.
type Registry struct {
	CycleDuration  *prometheus.HistogramVec
	CycleTotal     *prometheus.CounterVec
	BrokenItems    *prometheus.GaugeVec
	OverrideHits   *prometheus.GaugeVec
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	ReloadDuration *prometheus.HistogramVec
	ReloadTotal    *prometheus.CounterVec
	MirrorWrites   *prometheus.CounterVec
}

// New builds the registry and registers every family against registerer.
// Production call sites pass prometheus.DefaultRegisterer; tests pass a
// fresh prometheus.NewRegistry() so repeated calls within a test binary
// don't collide on metric names.
func New(registerer prometheus.Registerer) *Registry {
	r := &Registry{
		CycleDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cycle",
				Name:      "duration_seconds",
				Help:      "Time spent generating one matrix entry's closure results",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"key", "status"},
		),
		CycleTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cycle",
				Name:      "total",
				Help:      "Total matrix entry generations by outcome",
			},
			[]string{"key", "status"},
		),
		BrokenItems: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "publish",
				Name:      "broken_items",
				Help:      "Number of published broken items for the most recent cycle",
			},
			[]string{"key"},
		),
		OverrideHits: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "overrides",
				Name:      "hits",
				Help:      "Cumulative override suppressions by leaf path, as tracked by the override tree",
			},
			[]string{"leaf"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		ReloadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "reload",
				Name:      "duration_seconds",
				Help:      "Time spent reloading one reload-coordinator target",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"target", "status"},
		),
		ReloadTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reload",
				Name:      "total",
				Help:      "Total reload attempts by target and outcome",
			},
			[]string{"target", "status"},
		),
		MirrorWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "mirror",
				Name:      "writes_total",
				Help:      "Total secondary mirror write attempts by backend and outcome",
			},
			[]string{"backend", "status"},
		),
	}

	registerer.MustRegister(
		r.CycleDuration, r.CycleTotal, r.BrokenItems, r.OverrideHits,
		r.HTTPRequests, r.HTTPDuration, r.ReloadDuration, r.ReloadTotal, r.MirrorWrites,
	)

	return r
}

// ObserveCycle records the outcome and duration of one matrix entry's
// generation.
func (r *Registry) ObserveCycle(key, status string, d time.Duration) {
	r.CycleDuration.WithLabelValues(key, status).Observe(d.Seconds())
	r.CycleTotal.WithLabelValues(key, status).Inc()
}

// ObserveHTTP records one completed HTTP request.
func (r *Registry) ObserveHTTP(route, status string, d time.Duration) {
	r.HTTPRequests.WithLabelValues(route, status).Inc()
	r.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveReload records one reload-coordinator target outcome.
func (r *Registry) ObserveReload(target, status string, d time.Duration) {
	r.ReloadDuration.WithLabelValues(target, status).Observe(d.Seconds())
	r.ReloadTotal.WithLabelValues(target, status).Inc()
}

// SyncOverrideHits sets the override-hit gauge values to a fresh snapshot
// from the active override tree's own cumulative counters.
func (r *Registry) SyncOverrideHits(stats map[string]int64) {
	for leaf, count := range stats {
		r.OverrideHits.WithLabelValues(leaf).Set(float64(count))
	}
}
