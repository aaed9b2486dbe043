package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docchat/docchat-go/internal/logging"
	"github.com/docchat/docchat-go/internal/server"
	"github.com/docchat/docchat-go/internal/tracing"
)

// NewServeCmd constructs the `docchat serve` command, which starts the HTTP
// server that streams grounded chat answers.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the docchat HTTP server",
		Long: `Start the docchat HTTP server on localhost.

The server exposes POST /chat for streaming document-grounded answers,
plus /health, /ready, and /metrics for operations.

Examples:
  docchat serve
  docchat serve --port 9090
  MODEL_PROVIDER=openai docchat serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Flags latch their defaults before config.Load runs, so
			// SERVER_HOST/SERVER_PORT are consulted here instead.
			host = flagOrEnvStr(cmd, "host", "SERVER_HOST", host)
			port = flagOrEnvInt(cmd, "port", "SERVER_PORT", port)

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			orchestrator, index, emb, closeIndex, err := buildOrchestrator(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeIndex()

			pingers := []server.Pinger{
				server.NewQdrantPinger(index.Client()),
				server.NewEmbeddingsPinger(emb),
			}

			srv, err := server.New(orchestrator, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("DOCCHAT_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
