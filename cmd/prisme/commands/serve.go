package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/prisme/backend/internal/api"
	"github.com/wonny/prisme/backend/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the status API server",
	Long: `Serves read-only ETL status over HTTP.

Endpoints:
  GET /health                 - Health check
  GET /api/universe           - Resolved universe
  GET /api/runs/latest        - Latest run summary
  GET /api/artifacts/{tier}   - Artifacts of raw, interim or processed
  GET /metrics                - Prometheus metrics

Example:
  go run ./cmd/prisme serve
  go run ./cmd/prisme serve --port 9090`,
	RunE: runServe,
}

var (
	servePort       string
	serveConfigPath string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default PORT)")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "universe document (JSON or YAML)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer a.close()

	server := api.New(cfg, a.log, a.router(universePath(serveConfigPath, cfg)))
	return server.Run(ctx)
}

// router builds the status API over the app's components
func (a *app) router(configPath string) http.Handler {
	h := handlers.NewEtlHandler(a.resolver, configPath, a.runs, a.store, a.log)
	return api.NewRouter(h, a.metrics.Handler(), a.log)
}
