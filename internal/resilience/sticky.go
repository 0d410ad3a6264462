// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

// StickyTracker decides lock and revert transitions for redirect-following
// load balancers. Once a fetch lands on a specific backend via redirect, the
// session is locked to that backend; a later failure on the locked backend is
// first attributed to that one backend dying, recoverable by reverting to the
// provider's canonical entry point, before it counts against the provider
// failover budget.
type StickyTracker struct {
	enabled bool
}

// NewStickyTracker builds a tracker. When disabled, both decisions are no-ops.
func NewStickyTracker(enabled bool) *StickyTracker {
	return &StickyTracker{enabled: enabled}
}

// Enabled reports whether sticky affinity is active for this session.
func (t *StickyTracker) Enabled() bool { return t.enabled }

// Lock decides whether a successful fetch should re-home the session to the
// redirect target. It returns the URL to use for subsequent fetches and
// whether a lock transition occurred. Locking is idempotent: a fetch that
// lands on the already-locked URL reports no transition.
func (t *StickyTracker) Lock(currentURL, finalURL string) (string, bool) {
	if !t.enabled || finalURL == "" || finalURL == currentURL {
		return currentURL, false
	}
	return finalURL, true
}

// Revert decides whether an exhausted retry cycle should fall back to the
// canonical entry point. A revert happens only while the session is locked to
// a redirect target, i.e. currentURL is not one of the configured origins.
// The caller resets the retry counter and runs one fresh retry cycle against
// the returned URL; because that URL is a known origin, a second failure
// cannot re-trigger the revert.
func (t *StickyTracker) Revert(currentURL, originalURL string, known map[string]struct{}) (string, bool) {
	if !t.enabled {
		return currentURL, false
	}
	if _, ok := known[currentURL]; ok {
		return currentURL, false
	}
	return originalURL, true
}
