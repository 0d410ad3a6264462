// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package relay

import (
	"context"
	"sync"
	"time"
)

// State is the connection state of a stream session.
type State string

const (
	StateConnected   State = "connected"
	StateRetrying    State = "retrying"
	StateFailingOver State = "failing_over"
	StateFailed      State = "failed"
)

// Session is one active logical stream. All counter and URL mutation happens
// on the session's own decision loop (single-writer discipline); the mutex
// only makes snapshot reads from the API safe.
type Session struct {
	ID string

	mu            sync.Mutex
	originalURL   string
	failoverURLs  []string
	currentURL    string
	retryCount    int
	failoverCount int
	useSticky     bool
	headers       map[string]string
	startedAt     time.Time // total-timeout origin, write-once
	knownURLs     map[string]struct{}
	state         State

	cancel context.CancelFunc
	fanout *Fanout
}

func newSession(id, url string, failoverURLs []string, useSticky bool, headers map[string]string, startedAt time.Time) *Session {
	known := make(map[string]struct{}, len(failoverURLs)+1)
	known[url] = struct{}{}
	for _, u := range failoverURLs {
		known[u] = struct{}{}
	}
	fo := make([]string, len(failoverURLs))
	copy(fo, failoverURLs)
	hdr := make(map[string]string, len(headers))
	for k, v := range headers {
		hdr[k] = v
	}
	return &Session{
		ID:           id,
		originalURL:  url,
		failoverURLs: fo,
		currentURL:   url,
		useSticky:    useSticky,
		headers:      hdr,
		startedAt:    startedAt,
		knownURLs:    known,
		state:        StateConnected,
		fanout:       NewFanout(),
	}
}

// Snapshot is a read-only view of a session for the API surface.
type Snapshot struct {
	ID               string    `json:"id"`
	URL              string    `json:"url"`
	CurrentURL       string    `json:"current_url"`
	FailoverURLs     []string  `json:"failover_urls,omitempty"`
	UseStickySession bool      `json:"use_sticky_session"`
	State            State     `json:"state"`
	RetryCount       int       `json:"retry_count"`
	FailoverCount    int       `json:"failover_count"`
	StartedAt        time.Time `json:"started_at"`
	Clients          int       `json:"clients"`
}

// Snapshot returns a consistent view of the session's observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	fo := make([]string, len(s.failoverURLs))
	copy(fo, s.failoverURLs)
	return Snapshot{
		ID:               s.ID,
		URL:              s.originalURL,
		CurrentURL:       s.currentURL,
		FailoverURLs:     fo,
		UseStickySession: s.useSticky,
		State:            s.state,
		RetryCount:       s.retryCount,
		FailoverCount:    s.failoverCount,
		StartedAt:        s.startedAt,
		Clients:          s.fanout.Clients(),
	}
}

// CurrentURL returns the URL used for the next fetch.
func (s *Session) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentURL
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartedAt returns the session's total-timeout origin. It never changes
// after creation.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// counters returns retry and failover counters consistently.
func (s *Session) counters() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retryCount, s.failoverCount
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) setCurrentURL(url string) {
	s.mu.Lock()
	s.currentURL = url
	s.mu.Unlock()
}

func (s *Session) incRetry() {
	s.mu.Lock()
	s.retryCount++
	s.mu.Unlock()
}

func (s *Session) resetRetry() {
	s.mu.Lock()
	s.retryCount = 0
	s.mu.Unlock()
}

func (s *Session) incFailover() {
	s.mu.Lock()
	s.failoverCount++
	s.mu.Unlock()
}

// knownURL reports whether u is one of the configured origins.
func (s *Session) knownURL(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.knownURLs[u]
	return ok
}
