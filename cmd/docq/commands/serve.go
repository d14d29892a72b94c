package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/docq-ai/docq-go/internal/logging"
	"github.com/docq-ai/docq-go/internal/server"
	"github.com/docq-ai/docq-go/internal/tracing"
)

// NewServeCmd constructs the `docq serve` command, which starts the HTTP
// server exposing the query, document, index, and analytics API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the DocQ HTTP server",
		Long: `Start the DocQ HTTP server.

The server exposes the REST API: POST /api/query runs an agent query,
POST /api/documents ingests uploads, DELETE /api/index wipes a user's
vectors, and GET /api/analytics/overview reports usage. Liveness, readiness,
and Prometheus metrics are served on /api/health, /api/ready, and /metrics.

Examples:
  docq serve
  docq serve --port 9090
  MODEL_PROVIDER=azure docq serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			c, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer c.Close()

			pingers := []server.Pinger{
				server.NewEmbedderPinger(c.embedder),
				server.NewDBPinger(c.records, "records"),
				server.NewLLMPinger(c.chatModel, string(c.settings.Provider.Backend)),
			}
			if c.recorder != nil {
				pingers = append(pingers, server.NewDBPinger(c.recorder, "analytics"))
			}

			if host == "" {
				host = c.settings.Host
			}
			if port == 0 {
				port = c.settings.Port
			}

			deps := server.Deps{
				Agent:     c.orchestrator,
				Ingester:  c.pipeline,
				Documents: c.records,
				Index:     c.indexStore,
			}
			if c.recorder != nil {
				deps.Analytics = c.recorder
			}

			srv, err := server.New(deps, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  c.settings.APIKey,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Host address to bind to (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "TCP port to listen on (default from config)")

	return cmd
}
