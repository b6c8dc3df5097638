// Package metrics exposes the Prometheus collectors the services record into.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carnivalhub"

type Metrics struct {
	commands      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	ingestEvents  *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New builds the collectors and registers them on reg when it is non-nil.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Service commands by operation and outcome (ok or error kind).",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Service command latency including the transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ingestEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_events_total",
			Help:      "External events processed by the carnival ingest, by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Mails handed to the sender, by event kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.commands, m.duration, m.ingestEvents, m.notifications)
	}
	return m
}

func (m *Metrics) ObserveCommand(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) IngestEvent(result string) {
	if m == nil {
		return
	}
	m.ingestEvents.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, outcome).Inc()
}
