// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import "errors"

// ErrNoMoreCandidates is returned by Advance when the candidate list or the
// failover budget is exhausted. Callers must check HasNext first; hitting
// this error is a programming error, not a runtime condition.
var ErrNoMoreCandidates = errors.New("no failover candidates remain")

// DefaultMaxFailovers bounds provider switches per session lifetime.
const DefaultMaxFailovers = 3

// FailoverSelector owns the ordered list of alternate origin URLs and the
// cursor into it. Candidates are tried strictly in the order supplied; there
// is no reordering by health or latency.
type FailoverSelector struct {
	candidates []string
	next       int
	max        int
}

// NewFailoverSelector builds a selector over the given candidates. maxSwitches
// <= 0 selects DefaultMaxFailovers.
func NewFailoverSelector(candidates []string, maxSwitches int) *FailoverSelector {
	if maxSwitches <= 0 {
		maxSwitches = DefaultMaxFailovers
	}
	cp := make([]string, len(candidates))
	copy(cp, candidates)
	return &FailoverSelector{candidates: cp, max: maxSwitches}
}

// Candidates returns a copy of the configured candidate list.
func (s *FailoverSelector) Candidates() []string {
	cp := make([]string, len(s.candidates))
	copy(cp, s.candidates)
	return cp
}

// HasNext reports whether another provider switch is allowed given how many
// switches the session has already performed.
func (s *FailoverSelector) HasNext(failoverCount int) bool {
	return len(s.candidates) > 0 && failoverCount < s.max
}

// Advance returns the next candidate in sequential order, wrapping around the
// list. The caller sets current_url, increments failover_count and resets
// retry_count.
func (s *FailoverSelector) Advance(failoverCount int) (string, error) {
	if !s.HasNext(failoverCount) {
		return "", ErrNoMoreCandidates
	}
	url := s.candidates[s.next]
	s.next = (s.next + 1) % len(s.candidates)
	return url, nil
}
