// Copyright (c) 2026 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the relay's HTTP surface: stream creation, playback,
// stop and session listing.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/ManuGH/streamrelay/internal/config"
	xglog "github.com/ManuGH/streamrelay/internal/log"
	"github.com/ManuGH/streamrelay/internal/relay"
)

// createRateLimit bounds stream creation per client IP.
const (
	createRateLimit  = 30
	createRateWindow = time.Minute
)

// Server wires relay operations onto a chi router.
type Server struct {
	manager *relay.Manager
	logger  zerolog.Logger
}

func NewServer(manager *relay.Manager) *Server {
	return &Server{
		manager: manager,
		logger:  xglog.WithComponent("api"),
	}
}

// Routes builds the full router, including health and readiness probes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/streams", func(r chi.Router) {
		r.With(httprate.Limit(
			createRateLimit,
			createRateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
		)).Post("/", s.handleCreate)
		r.Get("/", s.handleList)
		r.Get("/{id}/play", s.handlePlay)
		r.Delete("/{id}", s.handleStop)
	})

	return r
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var spec relay.StreamSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, created, err := s.manager.Start(r.Context(), spec)
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.logger.Error().Err(err).Str(xglog.FieldURL, spec.URL).Msg("stream start failed")
		writeError(w, http.StatusInternalServerError, "stream start failed")
		return
	}

	status := http.StatusCreated
	if !created {
		// The URL is already being ingested; the caller joins that session.
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]string{"id": sess.ID})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.List())
}

// handlePlay relays the live byte stream to the client. Delivery pauses while
// the session reconnects and the response ends when the session terminates.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "id")
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = r.RemoteAddr
	}

	conn, err := s.manager.Attach(streamID, clientID)
	if err != nil {
		if errors.Is(err, relay.ErrSessionNotFound) || errors.Is(err, relay.ErrStreamClosed) {
			writeError(w, http.StatusNotFound, "stream not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "attach failed")
		return
	}
	defer s.manager.Detach(streamID, clientID, conn.ID)

	logger := s.logger.With().
		Str(xglog.FieldStreamID, streamID).
		Str(xglog.FieldClientID, clientID).
		Str(xglog.FieldConnectionID, conn.ID).
		Logger()
	logger.Info().Msg("client attached")

	w.Header().Set("Content-Type", "video/mp2t")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)

	for {
		select {
		case <-r.Context().Done():
			logger.Info().Msg("client disconnected")
			return
		case chunk, ok := <-conn.Chunks():
			if !ok {
				logger.Info().Msg("stream ended")
				return
			}
			if _, err := w.Write(chunk); err != nil {
				logger.Debug().Err(err).Msg("client write failed")
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	streamID := chi.URLParam(r, "id")
	if !s.manager.Stop(streamID) {
		writeError(w, http.StatusNotFound, "stream not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
