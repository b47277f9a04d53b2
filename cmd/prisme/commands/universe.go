package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/prisme/backend/internal/universe"
)

// universeCmd represents the universe command
var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Print the resolved universe",
	Long: `Resolves the universe the next run would process and prints it.

Example:
  go run ./cmd/prisme universe
  go run ./cmd/prisme universe --config products_config.yaml`,
	RunE: showUniverse,
}

var universeConfigPath string

func init() {
	rootCmd.AddCommand(universeCmd)

	universeCmd.Flags().StringVar(&universeConfigPath, "config", "", "universe document (JSON or YAML)")
}

func showUniverse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	resolver := universe.NewResolver(universe.DefaultUniverse())
	u, err := resolver.Resolve(universePath(universeConfigPath, cfg))
	if err != nil {
		return err
	}

	hash, err := universe.Hash(u)
	if err != nil {
		return err
	}

	PrintUniverse(cmd.OutOrStdout(), u, hash)
	return nil
}
