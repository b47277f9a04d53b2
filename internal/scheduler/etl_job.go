package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/pipeline"
	"github.com/wonny/prisme/backend/pkg/logger"
)

// DefaultSchedule runs weekdays after the Euronext close
const DefaultSchedule = "0 30 18 * * 1-5"

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, cfg pipeline.RunConfig) (*contracts.RunSummary, error)
}

// EtlJob runs the pipeline on a cron schedule
// ⭐ SSOT: scheduled ETL runs go through this job only
type EtlJob struct {
	runner   Runner
	cfg      pipeline.RunConfig
	schedule string
	logger   *logger.Logger

	mu   sync.RWMutex
	last *contracts.RunSummary
}

// NewEtlJob creates the scheduled ETL job; an empty schedule uses DefaultSchedule
func NewEtlJob(runner Runner, cfg pipeline.RunConfig, schedule string, log *logger.Logger) *EtlJob {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &EtlJob{
		runner:   runner,
		cfg:      cfg,
		schedule: schedule,
		logger:   log.WithModule("etl_job"),
	}
}

// Name returns the job name
func (j *EtlJob) Name() string {
	return "etl"
}

// Schedule returns the cron schedule (with seconds)
func (j *EtlJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline run.
// Instrument failures do not fail the job; only a universe error does.
func (j *EtlJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled ETL run")

	summary, err := j.runner.Run(ctx, j.cfg)
	if err != nil {
		return fmt.Errorf("etl run: %w", err)
	}

	j.mu.Lock()
	j.last = summary
	j.mu.Unlock()

	counts := summary.Counts()
	j.logger.WithFields(map[string]interface{}{
		"run_id":  summary.RunID.String(),
		"success": counts.Success,
		"failed":  counts.Failed,
		"total":   counts.Total,
	}).Info("Scheduled ETL run finished")

	return nil
}

// LastSummary returns the summary of the latest completed run
func (j *EtlJob) LastSummary() (*contracts.RunSummary, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.last, j.last != nil
}
