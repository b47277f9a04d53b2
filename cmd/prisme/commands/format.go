package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/wonny/prisme/backend/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// ═══════════════════════════════════════════════════════════

const (
	ruleHeavy = "═══════════════════════════════════════════════════════════"
	ruleLight = "───────────────────────────────────────────────────────────"
)

// PrintRunSummary prints one line per instrument and the totals
func PrintRunSummary(w io.Writer, s *contracts.RunSummary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, ruleHeavy)
	fmt.Fprintf(w, "  ETL run %s\n", s.RunID)
	fmt.Fprintln(w, ruleLight)
	fmt.Fprintf(w, "  Period    : %s\n", s.Period)
	fmt.Fprintf(w, "  Universe  : %s\n", s.ConfigPath)
	fmt.Fprintf(w, "  Started   : %s\n", s.StartedAt.Format(time.RFC3339))
	fmt.Fprintln(w, ruleLight)

	for _, o := range s.Outcomes {
		fmt.Fprintf(w, "  %s %-16s %-10s %s\n", statusIcon(o.Status), o.Instrument.Name, o.Instrument.Ticker, outcomeDetail(o))
	}

	c := s.Counts()
	fmt.Fprintln(w, ruleLight)
	fmt.Fprintf(w, "  %d success, %d skipped (empty), %d failed of %d in %.2fs\n",
		c.Success, c.SkippedEmpty, c.Failed, c.Total, s.Duration().Seconds())
	fmt.Fprintln(w, ruleHeavy)
}

// PrintUniverse prints the resolved instruments
func PrintUniverse(w io.Writer, u contracts.Universe, hash string) {
	fmt.Fprintln(w, ruleHeavy)
	fmt.Fprintf(w, "  Universe  : %s\n", u.Source)
	fmt.Fprintf(w, "  Hash      : %s\n", hash)
	fmt.Fprintf(w, "  Count     : %d\n", u.Count())
	fmt.Fprintln(w, ruleLight)
	for _, inst := range u.Instruments {
		fmt.Fprintf(w, "  %-16s %s\n", inst.Name, inst.Ticker)
	}
	fmt.Fprintln(w, ruleHeavy)
}

func statusIcon(s contracts.Status) string {
	switch s {
	case contracts.StatusSuccess:
		return "✅"
	case contracts.StatusSkippedEmpty:
		return "⚠️ "
	default:
		return "❌"
	}
}

func outcomeDetail(o contracts.Outcome) string {
	switch o.Status {
	case contracts.StatusSuccess:
		return fmt.Sprintf("%d artifacts", len(o.Artifacts))
	case contracts.StatusSkippedEmpty:
		return "empty price history"
	default:
		return fmt.Sprintf("%s: %s", o.Stage, o.Error)
	}
}
