package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/prisme/backend/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL once",
	Long: `Runs the full pipeline once over the resolved universe.

Every instrument goes through:
- extract: price history, info, dividends from Yahoo Finance
- raw: CSV/JSON as fetched
- interim: timezone stripped, info keys sorted
- processed: parquet with a fixed info schema

A failing instrument is logged and skipped; the command only fails
when the universe document cannot be parsed.

Example:
  go run ./cmd/prisme run
  go run ./cmd/prisme run --config products_config.json --period 1y --workers 4`,
	RunE: runETL,
}

var (
	runConfigPath string
	runPeriod     string
	runWorkers    int
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "universe document (JSON or YAML, default UNIVERSE_CONFIG or built-in)")
	runCmd.Flags().StringVar(&runPeriod, "period", "", "history lookback (default PERIOD or 5y)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "instruments processed concurrently (default WORKERS)")
}

func runETL(cmd *cobra.Command, args []string) error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Wire components
	a, err := newApp(ctx, cfg, runWorkers)
	if err != nil {
		return err
	}
	defer a.close()

	period := runPeriod
	if period == "" {
		period = cfg.Pipeline.Period
	}

	// 3. Run
	summary, err := a.orchestrator.Run(ctx, pipeline.RunConfig{
		ConfigPath: universePath(runConfigPath, cfg),
		Period:     period,
	})
	if err != nil {
		return fmt.Errorf("resolve universe: %w", err)
	}

	PrintRunSummary(cmd.OutOrStdout(), summary)
	return nil
}
