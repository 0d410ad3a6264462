// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package relay

import "time"

// EventKind enumerates lifecycle events emitted by the connection manager.
type EventKind string

const (
	EventConnected      EventKind = "connected"
	EventRetrying       EventKind = "retrying"
	EventFailover       EventKind = "failover"
	EventStickyLocked   EventKind = "sticky_locked"
	EventStickyReverted EventKind = "sticky_reverted"
	EventStreamFailed   EventKind = "stream_failed"
)

// FailureReason says why a session reached its terminal state.
type FailureReason string

const (
	ReasonRetriesExhausted  FailureReason = "retries_exhausted"
	ReasonTotalTimeout      FailureReason = "total_timeout_exceeded"
	ReasonFailoverExhausted FailureReason = "failover_exhausted"
)

// Event is one lifecycle transition of a stream session. Events for a given
// session are emitted in the exact order the transitions occur; counters are
// consistent with the mutation that immediately preceded the event.
type Event struct {
	StreamID       string        `json:"stream_id"`
	Kind           EventKind     `json:"kind"`
	Timestamp      time.Time     `json:"timestamp"`
	URL            string        `json:"url,omitempty"`
	PreviousURL    string        `json:"previous_url,omitempty"`
	Attempt        int           `json:"attempt,omitempty"`      // retrying: 1-based attempt number
	MaxAttempts    int           `json:"max_attempts,omitempty"` // retrying: per-origin budget
	Delay          time.Duration `json:"delay,omitempty"`        // retrying: wait before the attempt
	RetryCount     int           `json:"retry_count"`
	FailoverCount  int           `json:"failover_count"`
	RecoveredAfter int           `json:"recovered_after,omitempty"` // connected: retries consumed before recovery
	Reason         FailureReason `json:"reason,omitempty"`          // stream_failed only
}

// EventSink receives lifecycle events, for observability and for gating
// downstream delivery (suspend on retrying/failover, resume on connected,
// terminate on stream_failed).
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the EventSink interface.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }
