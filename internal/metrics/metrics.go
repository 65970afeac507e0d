// Package metrics exposes engine counters on a private prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dose"

// Metrics holds the engine counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	refreshes          prometheus.Counter
	storageFailures    *prometheus.CounterVec
	triggersArmed      *prometheus.CounterVec
	triggersCancelled  prometheus.Counter
	schedulingFailures prometheus.Counter
	dosesMarked        *prometheus.CounterVec
	remindersDelivered prometheus.Counter
}

// New creates the counters and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Day view refreshes that completed.",
		}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_failures_total",
			Help:      "Collection load or save failures.",
		}, []string{"op"}),
		triggersArmed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_armed_total",
			Help:      "Reminder triggers armed, by kind.",
		}, []string{"kind"}),
		triggersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_cancelled_total",
			Help:      "Reminder triggers cancelled.",
		}),
		schedulingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduling_failures_total",
			Help:      "Triggers the notifier refused to arm.",
		}),
		dosesMarked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "doses_marked_total",
			Help:      "Explicit taken/missed marks, by status.",
		}, []string{"status"}),
		remindersDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_delivered_total",
			Help:      "Reminders delivered by the daemon.",
		}),
	}

	m.registry.MustRegister(
		m.refreshes,
		m.storageFailures,
		m.triggersArmed,
		m.triggersCancelled,
		m.schedulingFailures,
		m.dosesMarked,
		m.remindersDelivered,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Refreshed() {
	if m != nil {
		m.refreshes.Inc()
	}
}

// StorageFailed counts a failure; op is "load" or "save".
func (m *Metrics) StorageFailed(op string) {
	if m != nil {
		m.storageFailures.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) TriggerArmed(kind string) {
	if m != nil {
		m.triggersArmed.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) TriggerCancelled() {
	if m != nil {
		m.triggersCancelled.Inc()
	}
}

func (m *Metrics) SchedulingFailed() {
	if m != nil {
		m.schedulingFailures.Inc()
	}
}

func (m *Metrics) DoseMarked(status string) {
	if m != nil {
		m.dosesMarked.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ReminderDelivered() {
	if m != nil {
		m.remindersDelivered.Inc()
	}
}
