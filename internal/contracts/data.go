package contracts

import (
	"fmt"
	"sort"
	"time"
)

// Timestamp layouts of the row-oriented tiers
const (
	// AwareLayout keeps the exchange offset (raw tier)
	AwareLayout = "2006-01-02 15:04:05-07:00"
	// NaiveLayout is a local calendar date/time without offset (interim tier)
	NaiveLayout = "2006-01-02 15:04:05"
)

// Canonical price columns in their fixed order
const (
	ColumnDate   = "Date"
	ColumnOpen   = "Open"
	ColumnHigh   = "High"
	ColumnLow    = "Low"
	ColumnClose  = "Close"
	ColumnVolume = "Volume"

	// ColumnDividends is the processed-tier label of the distribution value column
	ColumnDividends = "Dividends"
)

// PriceColumns are the columns every price series carries
var PriceColumns = []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume}

// Bar is one daily price bar
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
	Extra  []float64 // values for PriceSeries.Extra, same order
}

// PriceSeries is an ordered daily price history.
// An empty series means "no usable data" for the instrument.
type PriceSeries struct {
	Extra []string // provider columns beyond OHLCV
	Bars  []Bar
	Naive bool // true once timestamps have been stripped of their zone
}

// Len returns the number of bars
func (p PriceSeries) Len() int {
	return len(p.Bars)
}

// Empty reports whether the series has no bars
func (p PriceSeries) Empty() bool {
	return len(p.Bars) == 0
}

// Columns returns all value columns: OHLCV then Extra
func (p PriceSeries) Columns() []string {
	cols := make([]string, 0, len(PriceColumns)+len(p.Extra))
	cols = append(cols, PriceColumns...)
	return append(cols, p.Extra...)
}

// Validate checks strictly increasing timestamps and Extra arity
func (p PriceSeries) Validate() error {
	for i, bar := range p.Bars {
		if len(bar.Extra) != len(p.Extra) {
			return fmt.Errorf("bar %d: %d extra values for %d extra columns", i, len(bar.Extra), len(p.Extra))
		}
		if i > 0 && !bar.Time.After(p.Bars[i-1].Time) {
			return fmt.Errorf("bar %d: timestamp %s not after %s", i,
				bar.Time.Format(time.RFC3339), p.Bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Clone returns a deep copy
func (p PriceSeries) Clone() PriceSeries {
	out := PriceSeries{
		Extra: append([]string(nil), p.Extra...),
		Naive: p.Naive,
	}
	if p.Bars != nil {
		out.Bars = make([]Bar, len(p.Bars))
		for i, bar := range p.Bars {
			bar.Extra = append([]float64(nil), bar.Extra...)
			out.Bars[i] = bar
		}
	}
	return out
}

// SortAndDedupe orders bars by time and keeps the last bar of each timestamp
func (p *PriceSeries) SortAndDedupe() {
	sort.SliceStable(p.Bars, func(i, j int) bool { return p.Bars[i].Time.Before(p.Bars[j].Time) })
	out := p.Bars[:0]
	for _, bar := range p.Bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(bar.Time) {
			out[n-1] = bar
			continue
		}
		out = append(out, bar)
	}
	p.Bars = out
}

// DescriptiveRecord is a provider-shaped attribute document, one per instrument
type DescriptiveRecord map[string]any

// Keys returns the document keys sorted
func (d DescriptiveRecord) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InfoFrame is a one-row table built from a DescriptiveRecord
type InfoFrame struct {
	Columns []string
	Values  []any
}

// Get returns the value of a column and whether the column exists
func (f InfoFrame) Get(column string) (any, bool) {
	for i, c := range f.Columns {
		if c == column {
			return f.Values[i], true
		}
	}
	return nil, false
}

// Record turns the frame back into a document
func (f InfoFrame) Record() DescriptiveRecord {
	rec := make(DescriptiveRecord, len(f.Columns))
	for i, c := range f.Columns {
		rec[c] = f.Values[i]
	}
	return rec
}

// Distribution is one dividend payment
type Distribution struct {
	Time   time.Time
	Amount float64
}

// DistributionSeries is an ordered dividend history; empty when nothing was paid
type DistributionSeries struct {
	Column string // name of the value column
	Points []Distribution
	Naive  bool
}

// Empty reports whether the series has no points
func (d DistributionSeries) Empty() bool {
	return len(d.Points) == 0
}

// Clone returns a deep copy
func (d DistributionSeries) Clone() DistributionSeries {
	out := d
	out.Points = append([]Distribution(nil), d.Points...)
	return out
}

// Facets is the full extraction result for one instrument
type Facets struct {
	Prices    PriceSeries
	Info      DescriptiveRecord
	Dividends DistributionSeries
}

// StripZone returns t's wall clock reinterpreted in UTC: same calendar
// date and time of day, no offset.
func StripZone(t time.Time) time.Time {
	y, m, d := t.Date()
	hh, mm, ss := t.Clock()
	return time.Date(y, m, d, hh, mm, ss, t.Nanosecond(), time.UTC)
}
