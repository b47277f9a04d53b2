package transform

import (
	"github.com/wonny/prisme/backend/internal/contracts"
)

// Interim is the interim-tier form of one instrument's facets
type Interim struct {
	Prices    contracts.PriceSeries
	Info      contracts.InfoFrame
	Dividends *contracts.DistributionSeries // nil when nothing was paid
}

// InterimPrices strips the timezone from every timestamp, keeping all
// columns. An empty series comes back empty.
func InterimPrices(raw contracts.PriceSeries) contracts.PriceSeries {
	out := raw.Clone()
	for i := range out.Bars {
		out.Bars[i].Time = contracts.StripZone(out.Bars[i].Time)
	}
	out.Naive = true
	return out
}

// InterimInfo frames the document as one row whose columns are its keys
func InterimInfo(raw contracts.DescriptiveRecord) contracts.InfoFrame {
	keys := raw.Keys()
	frame := contracts.InfoFrame{
		Columns: keys,
		Values:  make([]any, len(keys)),
	}
	for i, k := range keys {
		frame.Values[i] = raw[k]
	}
	return frame
}

// InterimDividends strips the timezone; an empty series is absent (nil)
func InterimDividends(raw contracts.DistributionSeries) *contracts.DistributionSeries {
	if raw.Empty() {
		return nil
	}
	out := raw.Clone()
	for i := range out.Points {
		out.Points[i].Time = contracts.StripZone(out.Points[i].Time)
	}
	out.Naive = true
	return &out
}

// BuildInterim applies the interim transforms to all three facets
func BuildInterim(f contracts.Facets) Interim {
	return Interim{
		Prices:    InterimPrices(f.Prices),
		Info:      InterimInfo(f.Info),
		Dividends: InterimDividends(f.Dividends),
	}
}
