package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/prisme/backend/pkg/config"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prisme",
	Short: "Prisme - PEA/ETF market data ETL",
	Long: `Prisme ETL CLI

Pulls price history, descriptive info and dividends for a universe of
PEA-eligible ETFs and writes them through three tiers:
raw (as fetched), interim (timezone stripped), processed (parquet).

Usage:
  go run ./cmd/prisme [command]

Examples:
  go run ./cmd/prisme run
  go run ./cmd/prisme run --config products_config.json --period 1y
  go run ./cmd/prisme universe
  go run ./cmd/prisme schedule
  go run ./cmd/prisme serve`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads the environment and applies the global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyGlobalFlags(cfg, env, verbose)
	return cfg, nil
}

func applyGlobalFlags(cfg *config.Config, envOverride string, debug bool) {
	if envOverride != "" {
		cfg.Env = envOverride
	}
	if debug {
		cfg.LogLevel = "debug"
	}
}
