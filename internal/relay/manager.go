// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package relay implements the per-stream connection resilience engine: the
// decision loop that, on every upstream failure, retries the current origin,
// reverts a stale sticky lock, fails over to an alternate provider, or gives
// up under the session's global time budget.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/streamrelay/internal/config"
	xglog "github.com/ManuGH/streamrelay/internal/log"
	"github.com/ManuGH/streamrelay/internal/metrics"
	"github.com/ManuGH/streamrelay/internal/origin"
	"github.com/ManuGH/streamrelay/internal/registry"
	"github.com/ManuGH/streamrelay/internal/resilience"
)

// ErrSessionNotFound is returned for operations on unknown stream ids.
var ErrSessionNotFound = errors.New("stream session not found")

// StreamSpec is the collaborator-facing stream creation request.
type StreamSpec struct {
	URL              string            `json:"url"`
	FailoverURLs     []string          `json:"failover_urls,omitempty"`
	UseStickySession *bool             `json:"use_sticky_session,omitempty"`
	Headers          map[string]string `json:"headers,omitempty"`
}

// Manager owns all active stream sessions and drives one decision loop per
// session. Sessions never share mutable state; within a session, fetch
// issuance, failure handling and counter mutation are serialized on its loop.
type Manager struct {
	cfg     config.Config
	fetcher origin.Fetcher
	reg     registry.Registry
	sink    EventSink
	clock   resilience.Clock
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
	rootCtx  context.Context
	stop     context.CancelFunc
}

// ManagerOption configures manager construction.
type ManagerOption func(*Manager)

// WithEventSink forwards lifecycle events to sink in emission order.
func WithEventSink(sink EventSink) ManagerOption {
	return func(m *Manager) { m.sink = sink }
}

// WithClock replaces the time source, for tests.
func WithClock(c resilience.Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager builds a manager. cfg must already be validated.
func NewManager(cfg config.Config, fetcher origin.Fetcher, reg registry.Registry, opts ...ManagerOption) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:      cfg,
		fetcher:  fetcher,
		reg:      reg,
		clock:    resilience.RealClock{},
		logger:   xglog.WithComponent("relay"),
		sessions: make(map[string]*Session),
		rootCtx:  ctx,
		stop:     cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start creates a session for spec and launches its decision loop. When the
// URL is already being ingested it returns the existing session and false.
func (m *Manager) Start(ctx context.Context, spec StreamSpec) (*Session, bool, error) {
	if strings.TrimSpace(spec.URL) == "" {
		return nil, false, fmt.Errorf("%w: stream url must not be empty", config.ErrInvalidConfig)
	}
	for _, u := range spec.FailoverURLs {
		if strings.TrimSpace(u) == "" {
			return nil, false, fmt.Errorf("%w: failover url must not be empty", config.ErrInvalidConfig)
		}
	}

	useSticky := m.cfg.UseStickySession
	if spec.UseStickySession != nil {
		useSticky = *spec.UseStickySession
	}

	id := uuid.New().String()

	// Claim and publish atomically with respect to other local Starts: a
	// concurrent create for the same URL must either win the claim or find
	// the winner's session already published, never fall in between.
	m.mu.Lock()
	owner, acquired, err := m.reg.Acquire(ctx, spec.URL, id)
	if err != nil {
		m.mu.Unlock()
		return nil, false, fmt.Errorf("acquire stream ownership: %w", err)
	}
	if !acquired {
		existing := m.sessions[owner]
		m.mu.Unlock()
		if existing != nil {
			return existing, false, nil
		}
		// Owned by another relay instance; nothing to serve locally.
		return nil, false, fmt.Errorf("stream for %s is owned by session %s on another instance", spec.URL, owner)
	}

	s := newSession(id, spec.URL, spec.FailoverURLs, useSticky, spec.Headers, m.clock.Now())
	sessCtx, cancel := context.WithCancel(m.rootCtx)
	s.cancel = cancel
	m.sessions[id] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	retry := resilience.NewRetryPolicy(resilience.RetryConfig{
		MaxAttempts:        m.cfg.RetryAttempts,
		BaseDelay:          m.cfg.RetryDelay,
		TotalTimeout:       m.cfg.TotalTimeout,
		ExponentialBackoff: m.cfg.ExponentialBackoff,
	}, resilience.WithClock(m.clock))
	sticky := resilience.NewStickyTracker(useSticky)
	failover := resilience.NewFailoverSelector(spec.FailoverURLs, resilience.DefaultMaxFailovers)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.finish(s)
		m.run(sessCtx, s, retry, sticky, failover)
	}()

	m.logger.Info().
		Str(xglog.FieldStreamID, id).
		Str(xglog.FieldURL, spec.URL).
		Int("failover_candidates", len(spec.FailoverURLs)).
		Bool("use_sticky_session", useSticky).
		Msg("stream session started")

	return s, true, nil
}

// Get returns the session for id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// List returns snapshots of all live sessions.
func (m *Manager) List() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Attach registers a downstream connection on the stream.
func (m *Manager) Attach(streamID, clientID string) (*ClientConn, error) {
	s, ok := m.Get(streamID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.fanout.Attach(clientID)
}

// Detach removes a downstream connection. See Fanout.Detach for the
// connection-id semantics.
func (m *Manager) Detach(streamID, clientID, connectionID string) {
	if s, ok := m.Get(streamID); ok {
		s.fanout.Detach(clientID, connectionID)
	}
}

// Stop cancels a session. Stop is honored at the next suspension point and
// is not a failure: no stream_failed event is emitted.
func (m *Manager) Stop(id string) bool {
	s, ok := m.Get(id)
	if !ok {
		return false
	}
	s.cancel()
	return true
}

// Shutdown stops all sessions and waits for their loops to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the per-session connect/deliver/recover loop.
func (m *Manager) run(ctx context.Context, s *Session, retry *resilience.RetryPolicy, sticky *resilience.StickyTracker, failover *resilience.FailoverSelector) {
	logger := xglog.WithStream("relay", s.ID)
	for {
		if ctx.Err() != nil {
			return
		}
		conn, err := m.fetcher.Connect(ctx, s.CurrentURL(), s.headers)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Debug().Err(err).Str(xglog.FieldURL, s.CurrentURL()).Msg("upstream connect failed")
			if !m.recover(ctx, s, retry, sticky, failover) {
				return
			}
			continue
		}

		if final := conn.FinalURL(); final != s.CurrentURL() {
			logger.Debug().
				Str(xglog.FieldURL, s.CurrentURL()).
				Str(xglog.FieldFinalURL, final).
				Msg("origin redirected")
		}
		m.onConnected(s, sticky, conn.FinalURL())

		err = conn.Stream(ctx, s.fanout)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// Live origins are continuous; a clean EOF means the origin went
			// away and is handled like any other upstream failure.
			err = origin.ErrUpstream
		}
		logger.Debug().Err(err).Str(xglog.FieldURL, s.CurrentURL()).Msg("upstream delivery interrupted")
		if !m.recover(ctx, s, retry, sticky, failover) {
			return
		}
	}
}

// onConnected applies sticky affinity and publishes the recovery.
func (m *Manager) onConnected(s *Session, sticky *resilience.StickyTracker, finalURL string) {
	if url, locked := sticky.Lock(s.CurrentURL(), finalURL); locked {
		prev := s.CurrentURL()
		s.setCurrentURL(url)
		metrics.RecordStickyLocked()
		m.emit(s, Event{
			Kind:        EventStickyLocked,
			URL:         url,
			PreviousURL: prev,
		})
	}

	retries, _ := s.counters()
	s.resetRetry()
	s.setState(StateConnected)
	metrics.RecoveryRetries.Observe(float64(retries))
	m.emit(s, Event{
		Kind:           EventConnected,
		URL:            s.CurrentURL(),
		RecoveredAfter: retries,
	})
}

// recover composes the three policies in their fixed order: retry budget
// first (the global time budget dominates it), then sticky revert, then
// provider failover. It returns false once the session is terminal.
func (m *Manager) recover(ctx context.Context, s *Session, retry *resilience.RetryPolicy, sticky *resilience.StickyTracker, failover *resilience.FailoverSelector) bool {
	for {
		retries, _ := s.counters()
		dec := retry.Decide(retries, s.StartedAt())

		if dec.Retry {
			s.setState(StateRetrying)
			metrics.RetriesTotal.Inc()
			m.emit(s, Event{
				Kind:        EventRetrying,
				URL:         s.CurrentURL(),
				Attempt:     retries + 1,
				MaxAttempts: retry.MaxAttempts(),
				Delay:       dec.Delay,
			})
			if !sleepCtx(ctx, dec.Delay) {
				return false
			}
			s.incRetry()
			return true
		}

		if dec.Reason == resilience.ExhaustTotalTimeout {
			// The global budget dominates sticky revert and failover
			// eligibility alike.
			m.fail(s, ReasonTotalTimeout)
			return false
		}

		if url, reverted := sticky.Revert(s.CurrentURL(), s.originalURL, s.knownURLs); reverted {
			prev := s.CurrentURL()
			s.setCurrentURL(url)
			s.resetRetry()
			metrics.RecordStickyReverted()
			m.emit(s, Event{
				Kind:        EventStickyReverted,
				URL:         url,
				PreviousURL: prev,
			})
			// One fresh retry cycle against the reverted URL. The reverted
			// URL is a configured origin, so a second revert cannot trigger.
			continue
		}

		_, failovers := s.counters()
		if failover.HasNext(failovers) {
			s.setState(StateFailingOver)
			prev := s.CurrentURL()
			next, err := failover.Advance(failovers)
			if err != nil {
				// Unreachable after HasNext; treat as exhaustion.
				m.fail(s, ReasonFailoverExhausted)
				return false
			}
			s.setCurrentURL(next)
			s.incFailover()
			s.resetRetry()
			metrics.FailoversTotal.Inc()
			m.emit(s, Event{
				Kind:        EventFailover,
				URL:         next,
				PreviousURL: prev,
			})
			continue
		}

		reason := ReasonRetriesExhausted
		if failovers > 0 {
			reason = ReasonFailoverExhausted
		}
		m.fail(s, reason)
		return false
	}
}

func (m *Manager) fail(s *Session, reason FailureReason) {
	s.setState(StateFailed)
	metrics.RecordStreamFailed(string(reason))
	m.emit(s, Event{
		Kind:   EventStreamFailed,
		URL:    s.CurrentURL(),
		Reason: reason,
	})
}

// finish tears a session down after its loop exits, whether by terminal
// failure or by explicit stop.
func (m *Manager) finish(s *Session) {
	s.fanout.CloseAll()
	s.cancel()

	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.reg.Release(releaseCtx, s.originalURL, s.ID); err != nil {
		m.logger.Warn().Err(err).Str(xglog.FieldStreamID, s.ID).Msg("failed to release stream ownership")
	}

	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()
	metrics.ActiveSessions.Dec()

	m.logger.Info().
		Str(xglog.FieldStreamID, s.ID).
		Str(xglog.FieldState, string(s.State())).
		Msg("stream session finished")
}

// emit publishes one lifecycle event with counters consistent with the
// mutation that preceded it.
func (m *Manager) emit(s *Session, ev Event) {
	ev.StreamID = s.ID
	ev.Timestamp = m.clock.Now()
	ev.RetryCount, ev.FailoverCount = s.counters()

	lg := m.logger.Info().
		Str(xglog.FieldStreamID, ev.StreamID).
		Str(xglog.FieldEvent, string(ev.Kind)).
		Str(xglog.FieldURL, ev.URL).
		Int(xglog.FieldRetryCount, ev.RetryCount).
		Int(xglog.FieldFailoverCount, ev.FailoverCount)
	if ev.Kind == EventRetrying {
		lg = lg.Int(xglog.FieldAttempt, ev.Attempt).
			Int(xglog.FieldMaxAttempts, ev.MaxAttempts).
			Dur(xglog.FieldDelay, ev.Delay)
	}
	if ev.Reason != "" {
		lg = lg.Str(xglog.FieldReason, string(ev.Reason))
	}
	if ev.PreviousURL != "" {
		lg = lg.Str(xglog.FieldPreviousURL, ev.PreviousURL)
	}
	lg.Msg("stream lifecycle event")

	if m.sink != nil {
		m.sink.Emit(ev)
	}
}

// sleepCtx waits for d, honoring cancellation. It returns false when ctx
// ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
