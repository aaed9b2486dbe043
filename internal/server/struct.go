package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/docchat/docchat-go/internal/chat"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /ready.
	// If empty, /ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on POST /chat.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics and backs GET /metrics.
	// If nil, a private registry is created.
	Registry *prometheus.Registry
}

// asker is the interface handleChat uses to run a chat turn.
// *chat.Orchestrator satisfies it; tests inject a fake.
type asker interface {
	// Ask validates the conversation, retrieves context, and opens the
	// model stream. No response bytes exist until Relay drains it.
	Ask(ctx context.Context, messages []chat.Message, collection string) (*schema.StreamReader[*schema.Message], error)

	// Relay copies stream fragments to w as they arrive.
	Relay(ctx context.Context, sr *schema.StreamReader[*schema.Message], w io.Writer) error
}

// Server is the HTTP front end over the chat orchestrator.
type Server struct {
	// orchestrator runs the retrieve/assemble/stream pipeline for /chat.
	orchestrator asker
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /chat.
type chatRequest struct {
	// Messages is the conversation so far; the final entry is the question.
	Messages []chat.Message `json:"messages"`
	// SelectedDoc names the document collection to ground the answer in.
	SelectedDoc string `json:"selectedDoc"`
}

// errorResponse is the JSON body sent on 5xx failures.
type errorResponse struct {
	Error string `json:"error"`
}
