package transform

import (
	"github.com/wonny/prisme/backend/internal/contracts"
)

// Processed is the processed-tier form of one instrument's facets
type Processed struct {
	Prices    []PriceRow
	Info      InfoRow
	Dividends []DividendRow // nil when absent
}

// ProcessedPrices projects the series to Date, Open, High, Low, Close, Volume.
// An empty or unordered series is an *InvariantError.
func ProcessedPrices(interim contracts.PriceSeries) ([]PriceRow, error) {
	if interim.Empty() {
		return nil, &InvariantError{Stage: "processed prices", Message: "empty price series"}
	}
	if err := interim.Validate(); err != nil {
		return nil, &InvariantError{Stage: "processed prices", Message: "malformed price series", Err: err}
	}

	rows := make([]PriceRow, len(interim.Bars))
	for i, bar := range interim.Bars {
		rows[i] = PriceRow{
			Date:   contracts.StripZone(bar.Time),
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		}
	}
	return rows, nil
}

// ProcessedInfo restricts the frame to exactly the allow-listed keys.
// Absent keys and values of the wrong shape become null.
func ProcessedInfo(frame contracts.InfoFrame) InfoRow {
	var row InfoRow
	for _, f := range infoFields(&row) {
		v, ok := frame.Get(f.key)
		if !ok || v == nil {
			continue
		}
		switch p := f.ptr.(type) {
		case **string:
			*p = asString(v)
		case **float64:
			*p = asDouble(v)
		}
	}
	return row
}

// ProcessedDividends renames the value column to Dividends; absent stays absent
func ProcessedDividends(interim *contracts.DistributionSeries) []DividendRow {
	if interim == nil || interim.Empty() {
		return nil
	}
	rows := make([]DividendRow, len(interim.Points))
	for i, p := range interim.Points {
		rows[i] = DividendRow{Date: contracts.StripZone(p.Time), Dividends: p.Amount}
	}
	return rows
}

// BuildProcessed applies the processed transforms to an interim result
func BuildProcessed(in Interim) (Processed, error) {
	prices, err := ProcessedPrices(in.Prices)
	if err != nil {
		return Processed{}, err
	}
	return Processed{
		Prices:    prices,
		Info:      ProcessedInfo(in.Info),
		Dividends: ProcessedDividends(in.Dividends),
	}, nil
}
