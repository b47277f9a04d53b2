package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/prisme/backend/internal/api"
	"github.com/wonny/prisme/backend/internal/pipeline"
	"github.com/wonny/prisme/backend/internal/scheduler"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the ETL on a cron schedule",
	Long: `Starts the scheduler and runs the ETL on SCHEDULE
(cron with seconds, default "0 30 18 * * 1-5": weekdays 18:30).

A run that is still in progress when the next one fires is skipped.
Stop with Ctrl+C.

Example:
  go run ./cmd/prisme schedule
  go run ./cmd/prisme schedule --now --serve`,
	RunE: runSchedule,
}

var (
	scheduleConfigPath string
	scheduleNow        bool
	scheduleServe      bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&scheduleConfigPath, "config", "", "universe document (JSON or YAML)")
	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run once immediately after start")
	scheduleCmd.Flags().BoolVar(&scheduleServe, "serve", false, "also serve the status API")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, 0)
	if err != nil {
		return err
	}
	defer a.close()

	job := scheduler.NewEtlJob(a.orchestrator, pipeline.RunConfig{
		ConfigPath: universePath(scheduleConfigPath, cfg),
		Period:     cfg.Pipeline.Period,
	}, cfg.Schedule, a.log)

	s := scheduler.New(a.log)
	if err := s.AddJob(job); err != nil {
		return err
	}
	s.Start()
	defer s.Stop()

	if next, ok := s.NextRun(job.Name()); ok {
		a.log.WithField("next_run", next.Format("2006-01-02 15:04:05 MST")).Info("Scheduler started")
	}

	if scheduleNow {
		go func() {
			if _, err := s.RunJob(job.Name()); err != nil {
				a.log.WithError(err).Error("Immediate run failed")
			}
		}()
	}

	if scheduleServe {
		server := api.New(cfg, a.log, a.router(universePath(scheduleConfigPath, cfg)))
		return server.Run(ctx)
	}

	<-ctx.Done()
	return nil
}
