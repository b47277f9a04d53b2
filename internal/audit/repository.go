package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/prisme/backend/internal/contracts"
)

// Schema creates the run history tables
const Schema = `
CREATE SCHEMA IF NOT EXISTS etl;

CREATE TABLE IF NOT EXISTS etl.runs (
	run_id        UUID PRIMARY KEY,
	period        TEXT NOT NULL,
	config_path   TEXT NOT NULL DEFAULT '',
	universe_hash TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL,
	success       INT NOT NULL,
	skipped_empty INT NOT NULL,
	failed        INT NOT NULL,
	total         INT NOT NULL
);

CREATE TABLE IF NOT EXISTS etl.run_outcomes (
	run_id      UUID NOT NULL REFERENCES etl.runs (run_id) ON DELETE CASCADE,
	position    INT NOT NULL,
	instrument  TEXT NOT NULL,
	ticker      TEXT NOT NULL,
	status      TEXT NOT NULL,
	stage       TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	artifacts   JSONB NOT NULL DEFAULT '[]',
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	PRIMARY KEY (run_id, instrument)
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON etl.runs (started_at DESC);
`

// Repository handles run history persistence
// ⭐ SSOT: run history is written and read here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new run history repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create run history schema: %w", err)
	}
	return nil
}

// Record implements contracts.Recorder
func (r *Repository) Record(ctx context.Context, summary *contracts.RunSummary) error {
	return r.SaveRun(ctx, summary)
}

// SaveRun upserts the run and replaces its outcomes in one transaction
func (r *Repository) SaveRun(ctx context.Context, summary *contracts.RunSummary) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	counts := summary.Counts()
	runQuery := `
		INSERT INTO etl.runs (
			run_id, period, config_path, universe_hash, started_at, finished_at,
			success, skipped_empty, failed, total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (run_id) DO UPDATE SET
			period = EXCLUDED.period,
			config_path = EXCLUDED.config_path,
			universe_hash = EXCLUDED.universe_hash,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at,
			success = EXCLUDED.success,
			skipped_empty = EXCLUDED.skipped_empty,
			failed = EXCLUDED.failed,
			total = EXCLUDED.total
	`
	runID := summary.RunID.String()
	if _, err := tx.Exec(ctx, runQuery,
		runID, summary.Period, summary.ConfigPath, summary.UniverseHash,
		summary.StartedAt, summary.FinishedAt,
		counts.Success, counts.SkippedEmpty, counts.Failed, counts.Total,
	); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM etl.run_outcomes WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to clear outcomes: %w", err)
	}

	outcomeQuery := `
		INSERT INTO etl.run_outcomes (
			run_id, position, instrument, ticker, status, stage, error,
			artifacts, started_at, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	batch := &pgx.Batch{}
	for i, o := range summary.Outcomes {
		artifacts, err := json.Marshal(o.Artifacts)
		if err != nil {
			return fmt.Errorf("failed to marshal artifacts: %w", err)
		}
		batch.Queue(outcomeQuery,
			runID, i, o.Instrument.Name, o.Instrument.Ticker, string(o.Status), o.Stage, o.Error,
			artifacts, o.StartedAt, o.Duration.Milliseconds(),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save outcomes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently started run with its outcomes
func (r *Repository) LatestRun(ctx context.Context) (*contracts.RunSummary, error) {
	query := `
		SELECT run_id, period, config_path, universe_hash, started_at, finished_at
		FROM etl.runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	var summary contracts.RunSummary
	var runID string
	err := r.pool.QueryRow(ctx, query).Scan(
		&runID, &summary.Period, &summary.ConfigPath, &summary.UniverseHash,
		&summary.StartedAt, &summary.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	if summary.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	outcomes, err := r.getOutcomes(ctx, runID)
	if err != nil {
		return nil, err
	}
	summary.Outcomes = outcomes
	return &summary, nil
}

func (r *Repository) getOutcomes(ctx context.Context, runID string) ([]contracts.Outcome, error) {
	query := `
		SELECT instrument, ticker, status, stage, error, artifacts, started_at, duration_ms
		FROM etl.run_outcomes
		WHERE run_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []contracts.Outcome
	for rows.Next() {
		var o contracts.Outcome
		var status string
		var artifacts []byte
		var durationMS int64
		if err := rows.Scan(
			&o.Instrument.Name, &o.Instrument.Ticker, &status, &o.Stage, &o.Error,
			&artifacts, &o.StartedAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Status = contracts.Status(status)
		o.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal(artifacts, &o.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifacts: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outcomes: %w", err)
	}
	return outcomes, nil
}
