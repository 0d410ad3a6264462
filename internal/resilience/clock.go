// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package resilience contains the pure decision policies that drive stream
// reconnection: per-origin retry, sticky-session affinity and provider
// failover. The policies carry no side effects; the connection manager owns
// all counter mutation and event emission.
package resilience

import "time"

// Clock abstracts time operations for testability.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
