package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/prisme/backend/internal/storage"
	"github.com/wonny/prisme/backend/pkg/config"
	"github.com/wonny/prisme/backend/pkg/database"
	"github.com/wonny/prisme/backend/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and backing services",
	Long: `Loads the configuration and checks every backing service:

- artifact store (fs or s3) can be listed
- Redis answers a ping when REDIS_ENABLED=true
- PostgreSQL answers a ping when DATABASE_URL is set

Example:
  go run ./cmd/prisme check
  go run ./cmd/prisme check --env production`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== Prisme ETL Connectivity Check ===")

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Fprintf(out, "✅ Config loaded (ENV: %s)\n", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := checkStorage(ctx, out, cfg); err != nil {
		return err
	}
	if err := checkRedis(ctx, out, cfg); err != nil {
		return err
	}
	if err := checkDatabase(ctx, out, cfg); err != nil {
		return err
	}

	fmt.Fprintln(out, "✅ All checks passed")
	return nil
}

func checkStorage(ctx context.Context, out io.Writer, cfg *config.Config) error {
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("❌ Failed to create artifact store: %w", err)
	}
	keys, err := store.List(ctx, "runs/")
	if err != nil {
		return fmt.Errorf("❌ Failed to list artifact store: %w", err)
	}
	fmt.Fprintf(out, "✅ Artifact store reachable (backend: %s, recorded runs: %d)\n", cfg.Storage.Backend, len(keys))
	return nil
}

func checkRedis(ctx context.Context, out io.Writer, cfg *config.Config) error {
	if !cfg.Redis.Enabled {
		fmt.Fprintln(out, "–  Redis disabled")
		return nil
	}
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to Redis: %w", err)
	}
	defer rc.Close()
	if err := rc.Ping(ctx); err != nil {
		return fmt.Errorf("❌ Failed to ping Redis: %w", err)
	}
	fmt.Fprintf(out, "✅ Redis reachable (%s:%s)\n", cfg.Redis.Host, cfg.Redis.Port)
	return nil
}

func checkDatabase(ctx context.Context, out io.Writer, cfg *config.Config) error {
	if !cfg.Database.Enabled() {
		fmt.Fprintln(out, "–  Database disabled (DATABASE_URL not set)")
		return nil
	}
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()

	start := time.Now()
	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("❌ Failed to ping database: %w", err)
	}
	stat := db.Pool.Stat()
	fmt.Fprintf(out, "✅ Database reachable (%s, %v, %d/%d conns)\n",
		maskPassword(cfg.Database.URL), time.Since(start), stat.TotalConns(), stat.MaxConns())
	return nil
}

// maskPassword hides the password of a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
