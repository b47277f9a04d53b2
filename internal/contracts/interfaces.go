package contracts

import "context"

// Provider is the external market data boundary
// ⭐ SSOT: the single integration seam with the data source
type Provider interface {
	History(ctx context.Context, ticker, period string) (PriceSeries, error)
	Info(ctx context.Context, ticker string) (DescriptiveRecord, error)
	Dividends(ctx context.Context, ticker string) (DistributionSeries, error)
}

// Recorder receives the summary of every completed run
type Recorder interface {
	Record(ctx context.Context, summary *RunSummary) error
}
