package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/storage"
)

// ErrNoRun is returned when no run has been recorded yet
var ErrNoRun = errors.New("no run recorded")

// RunReader reads back the most recent run summary
type RunReader interface {
	LatestRun(ctx context.Context) (*contracts.RunSummary, error)
}

// MultiRecorder fans a summary out to several recorders
type MultiRecorder []contracts.Recorder

// Record calls every recorder and joins their errors
func (m MultiRecorder) Record(ctx context.Context, summary *contracts.RunSummary) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, summary); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Store keys of recorded runs
const (
	LatestRunKey = "runs/latest.json"
	runKeyPrefix = "runs/"
)

// RunKey is the store key of one run's summary
func RunKey(summary *contracts.RunSummary) string {
	return runKeyPrefix + summary.StartedAt.UTC().Format("20060102T150405Z") + "_" + summary.RunID.String() + ".json"
}

// FileRecorder writes summaries next to the artifacts
type FileRecorder struct {
	store storage.Store
}

// NewFileRecorder creates a recorder over the artifact store
func NewFileRecorder(store storage.Store) *FileRecorder {
	return &FileRecorder{store: store}
}

// Record writes the run under its own key and as runs/latest.json
func (r *FileRecorder) Record(ctx context.Context, summary *contracts.RunSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	if err := r.store.Put(ctx, RunKey(summary), data); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	if err := r.store.Put(ctx, LatestRunKey, data); err != nil {
		return fmt.Errorf("failed to write latest run: %w", err)
	}
	return nil
}

// LatestRun reads runs/latest.json
func (r *FileRecorder) LatestRun(ctx context.Context) (*contracts.RunSummary, error) {
	data, err := r.store.Get(ctx, LatestRunKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, err
	}
	var summary contracts.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run summary: %w", err)
	}
	return &summary, nil
}
