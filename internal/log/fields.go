// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldStreamID     = "stream_id"
	FieldClientID     = "client_id"
	FieldConnectionID = "connection_id"
	FieldRequestID    = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// State fields
	FieldState    = "state"
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldReason   = "reason"

	// Retry / failover fields
	FieldAttempt       = "attempt"
	FieldMaxAttempts   = "max_attempts"
	FieldRetryCount    = "retry_count"
	FieldFailoverCount = "failover_count"
	FieldDelay         = "delay"

	// URL fields
	FieldURL         = "url"
	FieldPreviousURL = "previous_url"
	FieldFinalURL    = "final_url"
)
