// Package metrics exports session activity as Prometheus metrics.
package metrics

import (
	"context"

	"github.com/goliatone/go-prefs/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// Observer records every session notification. It satisfies
// session.Observer.
type Observer struct {
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	pending  prometheus.Gauge
	canSave  prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prefs_events_total",
				Help: "Total number of dispatched preference events",
			},
			[]string{"event"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prefs_event_failures_total",
				Help: "Total number of preference operations that returned an error",
			},
			[]string{"event"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "prefs_event_duration_seconds",
				Help:    "Duration of preference operations",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"event"},
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prefs_pending_changes",
			Help: "Number of pending changes in the current snapshot",
		}),
		canSave: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "prefs_can_save",
			Help: "1 when every pending change is valid",
		}),
	}
	if reg != nil {
		for _, c := range o.Collectors() {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return o, nil
}

// Collectors returns every collector owned by o.
func (o *Observer) Collectors() []prometheus.Collector {
	return []prometheus.Collector{o.events, o.failures, o.duration, o.pending, o.canSave}
}

// Observe implements session.Observer.
func (o *Observer) Observe(_ context.Context, n session.Notification) {
	if n.Err != nil {
		o.failures.WithLabelValues(n.Event).Inc()
		return
	}
	o.events.WithLabelValues(n.Event).Inc()
	o.duration.WithLabelValues(n.Event).Observe(n.Duration.Seconds())
	o.pending.Set(float64(n.After.Len()))
	if n.After.CanSave() {
		o.canSave.Set(1)
	} else {
		o.canSave.Set(0)
	}
}

var _ session.Observer = (*Observer)(nil)
