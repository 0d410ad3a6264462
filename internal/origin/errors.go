// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package origin

import "errors"

var (
	// ErrUpstream marks transient fetch failures (network errors, bad status).
	// They are always routed through the retry policy first.
	ErrUpstream = errors.New("upstream fetch failed")

	// ErrChunkSilence is synthesized by the watchdog when no bytes arrive
	// within the configured window. It is handled identically to ErrUpstream.
	ErrChunkSilence = errors.New("no bytes received within chunk timeout")
)
