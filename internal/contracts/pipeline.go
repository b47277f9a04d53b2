package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Tier is a persistence stage
type Tier string

const (
	TierRaw       Tier = "raw"
	TierInterim   Tier = "interim"
	TierProcessed Tier = "processed"
)

// Tiers lists the tiers in pipeline order
var Tiers = []Tier{TierRaw, TierInterim, TierProcessed}

// Valid reports whether t is a known tier
func (t Tier) Valid() bool {
	switch t {
	case TierRaw, TierInterim, TierProcessed:
		return true
	}
	return false
}

// Facet is one category of extracted data
type Facet string

const (
	FacetPrices    Facet = "prices"
	FacetInfos     Facet = "infos"
	FacetDividends Facet = "dividends"
)

// Status is the per-instrument result of a run
type Status string

const (
	StatusSuccess      Status = "success"
	StatusSkippedEmpty Status = "skipped_empty"
	StatusFailed       Status = "failed"
)

// Outcome reports what happened to one instrument
type Outcome struct {
	Instrument Instrument    `json:"instrument"`
	Status     Status        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Stage      string        `json:"stage,omitempty"` // stage that failed
	Artifacts  []string      `json:"artifacts,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// RunSummary is the report of one pipeline execution
// ⭐ SSOT: the orchestrator's only output besides artifacts
type RunSummary struct {
	RunID        uuid.UUID `json:"run_id"`
	Period       string    `json:"period"`
	ConfigPath   string    `json:"config_path,omitempty"`   // universe source
	UniverseHash string    `json:"universe_hash,omitempty"` // fingerprint of the resolved instruments
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Outcomes     []Outcome `json:"outcomes"`
}

// RunCounts aggregates outcomes by status
type RunCounts struct {
	Success      int `json:"success"`
	SkippedEmpty int `json:"skipped_empty"`
	Failed       int `json:"failed"`
	Total        int `json:"total"`
}

// Counts aggregates the outcomes by status
func (r *RunSummary) Counts() RunCounts {
	var c RunCounts
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusSuccess:
			c.Success++
		case StatusSkippedEmpty:
			c.SkippedEmpty++
		case StatusFailed:
			c.Failed++
		}
	}
	c.Total = len(r.Outcomes)
	return c
}

// Duration returns the wall time of the run
func (r *RunSummary) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Outcome returns the outcome of a named instrument
func (r *RunSummary) Outcome(name string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Instrument.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}
