// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_KnownURLs(t *testing.T) {
	s := newSession("id-1", "http://lb/live.m3u8", []string{"http://alt/live.m3u8"}, true, nil, time.Now())

	assert.True(t, s.knownURL("http://lb/live.m3u8"))
	assert.True(t, s.knownURL("http://alt/live.m3u8"))
	assert.False(t, s.knownURL("http://backend-7/live.m3u8"), "redirect targets are not configured origins")
}

func TestSession_StartedAtIsStable(t *testing.T) {
	started := time.Now()
	s := newSession("id-1", "http://lb/live.m3u8", nil, false, nil, started)

	// Mutations driven by the decision loop never touch the timeout origin.
	s.incRetry()
	s.resetRetry()
	s.incFailover()
	s.setCurrentURL("http://alt/")
	s.setState(StateRetrying)

	assert.Equal(t, started, s.StartedAt())
}

func TestSession_SnapshotIsDetached(t *testing.T) {
	s := newSession("id-1", "http://lb/live.m3u8", []string{"http://alt/"}, false, map[string]string{"X": "1"}, time.Now())

	snap := s.Snapshot()
	snap.FailoverURLs[0] = "http://mutated/"

	assert.Equal(t, "http://alt/", s.Snapshot().FailoverURLs[0])
}

func TestSession_CountersConsistent(t *testing.T) {
	s := newSession("id-1", "http://lb/live.m3u8", nil, false, nil, time.Now())

	s.incRetry()
	s.incRetry()
	s.incFailover()

	retries, failovers := s.counters()
	assert.Equal(t, 2, retries)
	assert.Equal(t, 1, failovers)

	s.resetRetry()
	retries, failovers = s.counters()
	assert.Equal(t, 0, retries)
	assert.Equal(t, 1, failovers, "failover count is never reset")
}
