// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package metrics exposes prometheus instrumentation for the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveSessions tracks the number of live stream sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "streamrelay_active_sessions",
		Help: "Number of active stream sessions",
	})

	// RetriesTotal counts reconnect attempts against the current origin.
	RetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamrelay_retries_total",
		Help: "Total number of per-origin reconnect attempts",
	})

	// FailoversTotal counts provider switches.
	FailoversTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "streamrelay_failovers_total",
		Help: "Total number of provider failover switches",
	})

	// StickyTransitionsTotal counts sticky lock and revert transitions.
	StickyTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrelay_sticky_transitions_total",
		Help: "Total sticky session transitions by kind (locked, reverted)",
	}, []string{"kind"})

	// StreamFailedTotal counts terminal stream failures by reason.
	StreamFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrelay_stream_failed_total",
		Help: "Total terminal stream failures by reason",
	}, []string{"reason"})

	// RecoveryRetries observes how many retries a successful reconnect needed.
	RecoveryRetries = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "streamrelay_recovery_retries",
		Help:    "Retries consumed before a connection was re-established",
		Buckets: []float64{0, 1, 2, 3, 5, 8},
	})

	// FanoutDropsTotal counts downstream chunk drops (backpressure).
	FanoutDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "streamrelay_fanout_drop_total",
		Help: "Total number of downstream chunk drops by reason",
	}, []string{"reason"})
)

// RecordStickyLocked records a sticky lock transition.
func RecordStickyLocked() {
	StickyTransitionsTotal.WithLabelValues("locked").Inc()
}

// RecordStickyReverted records a sticky revert transition.
func RecordStickyReverted() {
	StickyTransitionsTotal.WithLabelValues("reverted").Inc()
}

// RecordStreamFailed records a terminal failure with its reason.
func RecordStreamFailed(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	StreamFailedTotal.WithLabelValues(reason).Inc()
}

// IncFanoutDrop records a dropped downstream chunk with a concrete reason.
func IncFanoutDrop(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	FanoutDropsTotal.WithLabelValues(reason).Inc()
}
