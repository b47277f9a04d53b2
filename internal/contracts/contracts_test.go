package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	paris, _ := time.LoadLocation("Europe/Paris")
	if paris == nil {
		paris = time.FixedZone("CET", 3600)
	}
	return time.Date(2024, 1, d, 0, 0, 0, 0, paris)
}

func TestNewUniverse(t *testing.T) {
	tests := []struct {
		name        string
		instruments []Instrument
		wantErr     bool
	}{
		{"valid", []Instrument{{"CAC40_ETF", "C40.PA"}, {"S&P500_PEA", "PE500.PA"}}, false},
		{"empty universe", nil, false},
		{"duplicate name", []Instrument{{"A", "A.PA"}, {"A", "B.PA"}}, true},
		{"case sensitive names", []Instrument{{"a", "A.PA"}, {"A", "B.PA"}}, false},
		{"empty name", []Instrument{{"", "A.PA"}}, true},
		{"empty ticker", []Instrument{{"A", " "}}, true},
		{"slash in name", []Instrument{{"a/b", "A.PA"}}, true},
		{"backslash in name", []Instrument{{`a\b`, "A.PA"}}, true},
		{"dot dot name", []Instrument{{"..", "A.PA"}}, true},
		{"single dot name", []Instrument{{".", "A.PA"}}, true},
		{"inner dots allowed", []Instrument{{"Fund..A", "A.PA"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUniverse(tt.instruments...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.instruments), u.Count())
		})
	}
}

func TestUniverse_Lookup(t *testing.T) {
	u := MustUniverse(Instrument{"CAC40_ETF", "C40.PA"}, Instrument{"NASDAQ_PEA", "PUST.PA"})

	ticker, ok := u.Ticker("NASDAQ_PEA")
	assert.True(t, ok)
	assert.Equal(t, "PUST.PA", ticker)

	_, ok = u.Ticker("nasdaq_pea")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"CAC40_ETF": "C40.PA", "NASDAQ_PEA": "PUST.PA"}, u.Map())
}

func TestPriceSeries_Validate(t *testing.T) {
	ok := PriceSeries{
		Extra: []string{"Dividends"},
		Bars: []Bar{
			{Time: day(2), Close: 1, Extra: []float64{0}},
			{Time: day(3), Close: 2, Extra: []float64{0.5}},
		},
	}
	assert.NoError(t, ok.Validate())

	unordered := ok.Clone()
	unordered.Bars[1].Time = day(1)
	assert.Error(t, unordered.Validate())

	duplicate := ok.Clone()
	duplicate.Bars[1].Time = day(2)
	assert.Error(t, duplicate.Validate())

	arity := ok.Clone()
	arity.Bars[0].Extra = nil
	assert.Error(t, arity.Validate())
}

func TestPriceSeries_CloneIsDeep(t *testing.T) {
	src := PriceSeries{Extra: []string{"X"}, Bars: []Bar{{Time: day(2), Extra: []float64{1}}}}
	cp := src.Clone()
	cp.Bars[0].Extra[0] = 42
	cp.Bars[0].Close = 7

	assert.Equal(t, 1.0, src.Bars[0].Extra[0])
	assert.Equal(t, 0.0, src.Bars[0].Close)
}

func TestPriceSeries_SortAndDedupe(t *testing.T) {
	p := PriceSeries{Bars: []Bar{
		{Time: day(3), Close: 3},
		{Time: day(2), Close: 2},
		{Time: day(3), Close: 33},
	}}
	p.SortAndDedupe()

	require.Len(t, p.Bars, 2)
	assert.Equal(t, 2.0, p.Bars[0].Close)
	assert.Equal(t, 33.0, p.Bars[1].Close)
	assert.NoError(t, p.Validate())
}

func TestPriceSeries_Columns(t *testing.T) {
	p := PriceSeries{Extra: []string{"Dividends", "Stock Splits"}}
	assert.Equal(t, []string{"Open", "High", "Low", "Close", "Volume", "Dividends", "Stock Splits"}, p.Columns())
}

func TestDescriptiveRecord_Keys(t *testing.T) {
	rec := DescriptiveRecord{"symbol": "C40.PA", "currency": "EUR", "beta3Year": nil}
	assert.Equal(t, []string{"beta3Year", "currency", "symbol"}, rec.Keys())
	assert.Empty(t, DescriptiveRecord{}.Keys())
}

func TestInfoFrame(t *testing.T) {
	f := InfoFrame{Columns: []string{"a", "b"}, Values: []any{1.0, nil}}

	v, ok := f.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = f.Get("b")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = f.Get("c")
	assert.False(t, ok)

	assert.Equal(t, DescriptiveRecord{"a": 1.0, "b": nil}, f.Record())
}

func TestStripZone(t *testing.T) {
	aware := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	naive := StripZone(aware)

	assert.Equal(t, time.UTC, naive.Location())
	assert.Equal(t, "2024-03-01 09:30:00", naive.Format(NaiveLayout))
	assert.Equal(t, "2024-03-01 09:30:00+01:00", aware.Format(AwareLayout))
}

func TestRunSummary_Counts(t *testing.T) {
	start := time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC)
	r := &RunSummary{
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Outcomes: []Outcome{
			{Instrument: Instrument{"A", "A.PA"}, Status: StatusSuccess},
			{Instrument: Instrument{"B", "B.PA"}, Status: StatusFailed, Error: "boom"},
			{Instrument: Instrument{"C", "C.PA"}, Status: StatusSkippedEmpty},
			{Instrument: Instrument{"D", "D.PA"}, Status: StatusSuccess},
		},
	}

	assert.Equal(t, RunCounts{Success: 2, SkippedEmpty: 1, Failed: 1, Total: 4}, r.Counts())
	assert.Equal(t, 90*time.Second, r.Duration())

	o, ok := r.Outcome("B")
	require.True(t, ok)
	assert.Equal(t, "boom", o.Error)
}

func TestTier_Valid(t *testing.T) {
	for _, tier := range Tiers {
		assert.True(t, tier.Valid(), tier)
	}
	assert.False(t, Tier("cold").Valid())
}
