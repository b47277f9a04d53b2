package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/transform"
	"github.com/wonny/prisme/backend/internal/universe"
	"github.com/wonny/prisme/backend/pkg/logger"
)

// DefaultPeriod is used when a run does not name a lookback
const DefaultPeriod = "5y"

// Stage names reported in failed outcomes
const (
	StageExtract   = "extract"
	StageRaw       = "raw"
	StageInterim   = "interim"
	StageProcessed = "processed"
)

// UniverseResolver produces the run's universe
type UniverseResolver interface {
	Resolve(path string) (contracts.Universe, error)
}

// FacetExtractor fetches the facets of one ticker
type FacetExtractor interface {
	Extract(ctx context.Context, ticker, period string) (contracts.Facets, error)
}

// RawWriter persists raw facets
type RawWriter interface {
	Write(ctx context.Context, name string, f contracts.Facets) ([]string, error)
}

// InterimWriter persists interim facets
type InterimWriter interface {
	Write(ctx context.Context, name string, in transform.Interim) ([]string, error)
}

// ProcessedWriter persists processed facets
type ProcessedWriter interface {
	Write(ctx context.Context, name string, p transform.Processed) ([]string, error)
}

// Options tunes the orchestrator
type Options struct {
	Workers int // instruments processed concurrently; <= 1 is sequential
}

// RunConfig is the input of one run
type RunConfig struct {
	ConfigPath string
	Period     string
}

// Orchestrator drives every instrument of the universe through
// Extract → Raw → Interim → Processed
// ⭐ SSOT: per-instrument failure isolation lives here only
type Orchestrator struct {
	resolver  UniverseResolver
	extractor FacetExtractor
	raw       RawWriter
	interim   InterimWriter
	processed ProcessedWriter
	recorder  contracts.Recorder
	logger    *logger.Logger
	workers   int
	now       func() time.Time
}

// New creates an orchestrator; recorder may be nil
func New(
	resolver UniverseResolver,
	extractor FacetExtractor,
	raw RawWriter,
	interim InterimWriter,
	processed ProcessedWriter,
	recorder contracts.Recorder,
	log *logger.Logger,
	opts Options,
) *Orchestrator {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		resolver:  resolver,
		extractor: extractor,
		raw:       raw,
		interim:   interim,
		processed: processed,
		recorder:  recorder,
		logger:    log.WithModule("pipeline"),
		workers:   workers,
		now:       time.Now,
	}
}

// Run resolves the universe once and processes every instrument.
// Only a universe error is returned; instrument failures are reported
// in the summary's outcomes.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*contracts.RunSummary, error) {
	period := cfg.Period
	if period == "" {
		period = DefaultPeriod
	}

	summary := &contracts.RunSummary{
		RunID:     uuid.New(),
		Period:    period,
		StartedAt: o.now(),
	}
	runLog := o.logger.WithRun(summary.RunID)

	u, err := o.resolver.Resolve(cfg.ConfigPath)
	if err != nil {
		runLog.WithError(err).Error("Universe resolution failed, no instrument processed")
		return nil, err
	}
	summary.ConfigPath = u.Source
	if hash, err := universe.Hash(u); err == nil {
		summary.UniverseHash = hash
	}

	workers := o.workers
	if workers > u.Count() {
		workers = u.Count()
	}

	runLog.WithFields(map[string]interface{}{
		"instruments": u.Count(),
		"period":      period,
		"source":      u.Source,
		"workers":     workers,
		"started_at":  summary.StartedAt.Format(time.RFC3339),
	}).Info("Starting ETL run")

	summary.Outcomes = o.processAll(ctx, runLog, u.Instruments, period, workers)
	summary.FinishedAt = o.now()

	counts := summary.Counts()
	runLog.WithFields(map[string]interface{}{
		"success":       counts.Success,
		"skipped_empty": counts.SkippedEmpty,
		"failed":        counts.Failed,
		"total":         counts.Total,
		"finished_at":   summary.FinishedAt.Format(time.RFC3339),
		"duration":      summary.Duration().String(),
	}).Info("ETL run completed")

	if o.recorder != nil {
		// An interrupted run is still recorded
		if err := o.recorder.Record(context.WithoutCancel(ctx), summary); err != nil {
			runLog.WithError(err).Warn("Failed to record run summary")
		}
	}

	return summary, nil
}

// processAll fans instruments out to the workers; outcomes keep universe order
func (o *Orchestrator) processAll(ctx context.Context, log *logger.Logger, instruments []contracts.Instrument, period string, workers int) []contracts.Outcome {
	outcomes := make([]contracts.Outcome, len(instruments))
	if len(instruments) == 0 {
		return outcomes
	}

	if workers <= 1 {
		for i, inst := range instruments {
			outcomes[i] = o.processInstrument(ctx, log, inst, period)
		}
		return outcomes
	}

	jobCh := make(chan int, len(instruments))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerLog := log.WithField("worker", workerID)
			for i := range jobCh {
				outcomes[i] = o.processInstrument(ctx, workerLog, instruments[i], period)
			}
		}(w)
	}

	for i := range instruments {
		jobCh <- i
	}
	close(jobCh)
	wg.Wait()

	return outcomes
}

// processInstrument runs one instrument's stages in sequence.
// Every error or panic ends up in the returned outcome.
func (o *Orchestrator) processInstrument(ctx context.Context, log *logger.Logger, inst contracts.Instrument, period string) (outcome contracts.Outcome) {
	instLog := log.WithInstrument(inst.Name, inst.Ticker)

	outcome = contracts.Outcome{Instrument: inst, StartedAt: o.now()}
	stage := StageExtract

	fail := func(err error) contracts.Outcome {
		outcome.Status = contracts.StatusFailed
		outcome.Stage = stage
		outcome.Error = err.Error()
		outcome.Duration = o.now().Sub(outcome.StartedAt)
		instLog.WithError(err).WithField("stage", stage).Error("Instrument failed")
		return outcome
	}

	defer func() {
		if r := recover(); r != nil {
			instLog.WithField("stack", string(debug.Stack())).Debug("recovered panic")
			outcome = fail(fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	facets, err := o.extractor.Extract(ctx, inst.Ticker, period)
	if err != nil {
		return fail(err)
	}

	stage = StageRaw
	keys, err := o.raw.Write(ctx, inst.Name, facets)
	outcome.Artifacts = append(outcome.Artifacts, keys...)
	if err != nil {
		return fail(err)
	}

	if facets.Prices.Empty() {
		outcome.Status = contracts.StatusSkippedEmpty
		outcome.Duration = o.now().Sub(outcome.StartedAt)
		instLog.Warn("Empty price history, instrument skipped after raw tier")
		return outcome
	}

	stage = StageInterim
	interim := transform.BuildInterim(facets)
	keys, err = o.interim.Write(ctx, inst.Name, interim)
	outcome.Artifacts = append(outcome.Artifacts, keys...)
	if err != nil {
		return fail(err)
	}

	stage = StageProcessed
	processed, err := transform.BuildProcessed(interim)
	if err != nil {
		return fail(err)
	}
	keys, err = o.processed.Write(ctx, inst.Name, processed)
	outcome.Artifacts = append(outcome.Artifacts, keys...)
	if err != nil {
		return fail(err)
	}

	outcome.Status = contracts.StatusSuccess
	outcome.Duration = o.now().Sub(outcome.StartedAt)
	instLog.WithFields(map[string]interface{}{
		"bars":      len(processed.Prices),
		"artifacts": len(outcome.Artifacts),
		"duration":  outcome.Duration.String(),
	}).Info("Instrument processed")
	return outcome
}
