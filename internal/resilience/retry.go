// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import "time"

// maxBackoffShift caps exponential growth at base*2^6.
const maxBackoffShift = 6

// ExhaustReason says why a retry decision came back exhausted.
type ExhaustReason string

const (
	ExhaustNone         ExhaustReason = ""
	ExhaustAttempts     ExhaustReason = "retries_exhausted"
	ExhaustTotalTimeout ExhaustReason = "total_timeout_exceeded"
)

// RetryConfig holds the per-origin retry budget and the session-wide time budget.
type RetryConfig struct {
	MaxAttempts        int
	BaseDelay          time.Duration
	TotalTimeout       time.Duration // 0 disables the global budget
	ExponentialBackoff bool
}

// RetryDecision is the outcome of a single policy consultation.
type RetryDecision struct {
	Retry  bool
	Delay  time.Duration
	Reason ExhaustReason // set when Retry is false
}

// RetryPolicy decides whether the caller should reissue a fetch against the
// current origin. It is a pure function of the attempt counter and the
// session's start time; the caller performs the sleep and the increment.
type RetryPolicy struct {
	cfg   RetryConfig
	clock Clock
}

// Option configures policy construction.
type Option func(*RetryPolicy)

// WithClock replaces the time source, for tests.
func WithClock(c Clock) Option {
	return func(p *RetryPolicy) { p.clock = c }
}

// NewRetryPolicy builds a policy from the given budgets.
func NewRetryPolicy(cfg RetryConfig, opts ...Option) *RetryPolicy {
	p := &RetryPolicy{cfg: cfg, clock: RealClock{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Decide consults the budgets for the given attempt counter. The global time
// budget dominates: once it is exceeded, the policy is exhausted even when
// attempts remain. retryCount counts attempts against the current origin
// since it was last selected or since the last successful delivery.
func (p *RetryPolicy) Decide(retryCount int, sessionStart time.Time) RetryDecision {
	if p.cfg.TotalTimeout > 0 && p.clock.Now().Sub(sessionStart) > p.cfg.TotalTimeout {
		return RetryDecision{Reason: ExhaustTotalTimeout}
	}
	if retryCount < p.cfg.MaxAttempts {
		return RetryDecision{Retry: true, Delay: p.delay(retryCount)}
	}
	return RetryDecision{Reason: ExhaustAttempts}
}

// MaxAttempts exposes the configured per-origin budget for event payloads.
func (p *RetryPolicy) MaxAttempts() int { return p.cfg.MaxAttempts }

func (p *RetryPolicy) delay(retryCount int) time.Duration {
	if !p.cfg.ExponentialBackoff {
		return p.cfg.BaseDelay
	}
	shift := retryCount
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return p.cfg.BaseDelay << shift
}
