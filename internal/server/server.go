// Package server implements the HTTP API that exposes the document chat
// pipeline: POST /chat streams grounded answers as plain text, with
// liveness, readiness, and Prometheus metrics endpoints alongside.
// The server is started by the `docchat serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docchat/docchat-go/internal/chat"
	"github.com/docchat/docchat-go/internal/logging"
	"github.com/docchat/docchat-go/internal/rag"
)

// New constructs a Server from the provided orchestrator and config.
func New(orchestrator *chat.Orchestrator, cfg *Config) (*Server, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("server: orchestrator must not be nil")
	}
	return newWithAsker(orchestrator, cfg)
}

// newWithAsker is the test seam behind New: it accepts the asker interface
// so handler tests can inject a fake orchestrator.
func newWithAsker(orchestrator asker, cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must be long enough for streaming responses.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		orchestrator: orchestrator,
		cfg:          cfg,
		log:          cfg.Logger,
		pingers:      cfg.Pingers,
		metrics:      newServerMetrics(cfg.Registry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		cfg.Logger.Warn("authentication disabled: no API key configured")
	}

	mux := http.NewServeMux()
	mux.Handle("POST /chat", authMiddleware(cfg.APIKey, rl.middleware(http.HandlerFunc(s.handleChat))))
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(cfg.Logger, s.instrument(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("docchat server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /chat. The request carries the full conversation
// plus the selected document; the response streams the answer as raw
// text/plain tokens, flushed as they arrive from the model.
//
// Error mapping: malformed input is 400 with a plain-text reason; any
// pre-stream failure (retrieval, prompt, opening the model stream) is 500
// with a JSON {"error": ...} body and a generic message. Once streaming
// has begun the status is already committed, so a mid-stream failure only
// truncates the body.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	start := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.finishChat("invalid", start)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sr, err := s.orchestrator.Ask(r.Context(), req.Messages, req.SelectedDoc)
	if err != nil {
		s.writeChatError(w, log, err, start)
		return
	}

	s.metrics.chatActiveStreams.Inc()
	defer s.metrics.chatActiveStreams.Dec()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if err := s.orchestrator.Relay(r.Context(), sr, w); err != nil {
		// Headers are gone; the client sees a truncated body.
		log.Error("chat stream aborted", slog.Any("error", err))
		s.finishChat("stream_error", start)
		return
	}
	s.finishChat("ok", start)
}

// writeChatError maps a pre-stream orchestrator error onto the wire
// contract. Internal failure detail is logged, never sent to the client.
func (s *Server) writeChatError(w http.ResponseWriter, log *slog.Logger, err error, start time.Time) {
	switch {
	case errors.Is(err, chat.ErrInvalidRequest):
		s.finishChat("invalid", start)
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rag.ErrCollectionNotFound):
		log.Warn("chat request for unknown collection", slog.Any("error", err))
		s.finishChat("error", start)
		writeJSONError(w, "selected document has not been ingested", http.StatusInternalServerError)
	default:
		log.Error("chat request failed", slog.Any("error", err))
		s.finishChat("error", start)
		writeJSONError(w, "failed to process chat request", http.StatusInternalServerError)
	}
}

// finishChat records the outcome and duration metrics for one /chat request.
func (s *Server) finishChat(outcome string, start time.Time) {
	s.metrics.chatRequestsTotal.WithLabelValues(outcome).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

// writeJSONError writes a {"error": msg} body with the given status.
func writeJSONError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

// handleHealth handles GET /health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
