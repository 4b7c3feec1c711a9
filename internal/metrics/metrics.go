// Package metrics exposes the Prometheus surface promised by the
// teacher's domain stack: queue depth gauges (from the store's own
// stats() call), per-(kind,source) lifecycle counters driven off the
// bus, and a retry-count histogram sampled whenever an event leaves the
// fan-out loop Complete or Failed.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dan-online/autopulse-sub000/internal/bus"
	"github.com/dan-online/autopulse-sub000/internal/db"
	"github.com/dan-online/autopulse-sub000/internal/domain"
)

// Metrics owns the process's Prometheus collectors and a bus
// subscription used to keep the lifecycle counters current.
type Metrics struct {
	registry *prometheus.Registry

	eventsTotal   *prometheus.CounterVec
	queueDepth    *prometheus.GaugeVec
	retryAttempts prometheus.Histogram

	sub chan bus.Notification
}

// New registers every collector against a fresh registry (not the global
// default, so tests can build more than one Metrics without collisions)
// and subscribes to b for lifecycle counters.
func New(b *bus.Bus) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autopulse_events_total",
			Help: "Scan event lifecycle transitions by kind and source trigger.",
		}, []string{"kind", "source"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "autopulse_queue_depth",
			Help: "Current scan event count by process_status.",
		}, []string{"status"}),
		retryAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autopulse_retry_attempts",
			Help:    "failed_times observed when an event leaves fan-out Complete or Failed.",
			Buckets: prometheus.LinearBuckets(0, 1, 10),
		}),
	}

	reg.MustRegister(m.eventsTotal, m.queueDepth, m.retryAttempts)

	if b != nil {
		m.sub = b.Subscribe()
	}

	return m
}

// Handler serves the registered collectors in the Prometheus text
// exposition format, mounted at /metrics by the HTTP surface.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Run consumes the bus subscription until ctx is cancelled, incrementing
// the per-(kind,source) counter and, for terminal transitions, observing
// the event's failed_times in the retry histogram.
func (m *Metrics) Run(ctx context.Context) {
	if m.sub == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-m.sub:
			if !ok {
				return
			}
			m.observe(n)
		}
	}
}

func (m *Metrics) observe(n bus.Notification) {
	source := ""
	if n.Event != nil {
		source = n.Event.EventSource
	}
	m.eventsTotal.WithLabelValues(string(n.Kind), source).Inc()

	if n.Event == nil {
		return
	}
	switch n.Kind {
	case domain.KindProcessed, domain.KindFailed:
		m.retryAttempts.Observe(float64(n.Event.FailedTimes))
	}
}

// RefreshQueueDepth sets the queue depth gauges from a fresh stats()
// snapshot (§4.1). Called on a timer by the caller, independent of the
// bus, since these are point-in-time totals rather than transitions.
func (m *Metrics) RefreshQueueDepth(stats db.Stats) {
	m.queueDepth.WithLabelValues("pending").Set(float64(stats.Pending))
	m.queueDepth.WithLabelValues("retrying").Set(float64(stats.Retrying))
	m.queueDepth.WithLabelValues("processed").Set(float64(stats.Processed))
	m.queueDepth.WithLabelValues("failed").Set(float64(stats.Failed))
}

// Close unsubscribes from the bus. Safe to call once after Run returns.
func (m *Metrics) Close(b *bus.Bus) {
	if m.sub != nil && b != nil {
		b.Unsubscribe(m.sub)
	}
}
