// Copyright 2025 Certen Protocol
//
// Prometheus metrics for the ceremony coordinator

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the ceremony collectors
type Metrics struct {
	RoundHeight           prometheus.Gauge
	QueueLength           prometheus.Gauge
	ContributionsVerified prometheus.Counter
	ContributionsFailed   prometheus.Counter
	ParticipantsDropped   prometheus.Counter
	ParticipantsBanned    prometheus.Counter
	ObjectStoreRetries    *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
}

// New creates and registers the ceremony collectors on the registry
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RoundHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ceremony",
			Name:      "round_height",
			Help:      "Current round of the ceremony",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ceremony",
			Name:      "queue_length",
			Help:      "Number of contributors waiting in the queue",
		}),
		ContributionsVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ceremony",
			Name:      "contributions_verified_total",
			Help:      "Contributions that passed verification",
		}),
		ContributionsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ceremony",
			Name:      "contributions_failed_total",
			Help:      "Contributions that failed verification",
		}),
		ParticipantsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ceremony",
			Name:      "participants_dropped_total",
			Help:      "Participants dropped for missing heartbeats",
		}),
		ParticipantsBanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ceremony",
			Name:      "participants_banned_total",
			Help:      "Participants banned from the ceremony",
		}),
		ObjectStoreRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ceremony",
			Name:      "object_store_retries_total",
			Help:      "Transient object-store responses that were retried",
		}, []string{"operation"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ceremony",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by endpoint",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}

	reg.MustRegister(
		m.RoundHeight,
		m.QueueLength,
		m.ContributionsVerified,
		m.ContributionsFailed,
		m.ParticipantsDropped,
		m.ParticipantsBanned,
		m.ObjectStoreRetries,
		m.RequestDuration,
	)

	return m
}
