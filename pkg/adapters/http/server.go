// Package http exposes a graft engine over HTTP: synchronous run
// invocation, run snapshot lookup, an SSE stream of step events, and
// prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/graft/pkg/domain"
	"github.com/aretw0/graft/pkg/ports"
)

// Runner is the part of the graft engine the server needs. The root
// graft.Engine implements it (Start/StartStream carry the run ID and
// config explicitly so the adapter stays decoupled from the engine's
// functional options).
type Runner interface {
	Start(ctx context.Context, initial domain.State, runID string, cfg domain.RunConfig) (*domain.Run, error)
	StartStream(ctx context.Context, initial domain.State, runID string, cfg domain.RunConfig) <-chan domain.StepEvent
}

// Server wires the engine, an optional store for snapshot lookups, and
// optional metrics exposure into a chi router.
type Server struct {
	engine  Runner
	store   ports.RunStore
	logger  *slog.Logger
	metrics prometheus.Gatherer
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore enables GET /runs/{id} snapshot lookups.
func WithStore(store ports.RunStore) ServerOption {
	return func(s *Server) { s.store = store }
}

// WithMetrics exposes the gatherer at GET /metrics.
func WithMetrics(g prometheus.Gatherer) ServerOption {
	return func(s *Server) { s.metrics = g }
}

// NewHandler builds the HTTP handler around an engine runner.
func NewHandler(runner Runner, opts ...ServerOption) http.Handler {
	s := &Server{
		engine: runner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Post("/runs", s.handleInvoke)
	r.Post("/runs/stream", s.handleStream)
	r.Get("/runs/{id}", s.handleGetRun)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	return enableCORS(r)
}

// startRequest is the body of POST /runs and POST /runs/stream.
type startRequest struct {
	RunID   string           `json:"run_id,omitempty"`
	Initial domain.State     `json:"initial,omitempty"`
	Config  domain.RunConfig `json:"config,omitempty"`
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("invoke: invalid request body", "err", err)
		return
	}

	run, err := s.engine.Start(r.Context(), body.Initial, body.RunID, body.Config)
	if err != nil && run == nil {
		http.Error(w, fmt.Sprintf("run error: %v", err), http.StatusInternalServerError)
		s.logger.Error("invoke failed", "err", err)
		return
	}

	// A failed run still returns its diagnostic snapshot.
	status := http.StatusOK
	if run.Status == domain.StatusFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, run, s.logger)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.logger.Warn("stream: invalid request body", "err", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := s.engine.StartStream(r.Context(), body.Initial, body.RunID, body.Config)
	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("stream: event encode failed", "err", err)
			return
		}
		fmt.Fprintf(w, "event: step\ndata: %s\n\n", payload)
		flusher.Flush()
	}
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "run store not configured", http.StatusNotImplemented)
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.store.Load(r.Context(), id)
	if errors.Is(err, domain.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "store error", http.StatusInternalServerError)
		s.logger.Error("get run failed", "run", id, "err", err)
		return
	}
	writeJSON(w, http.StatusOK, run, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
