package extract

import (
	"context"
	"fmt"

	"github.com/wonny/prisme/backend/internal/contracts"
)

// ExtractionError is a provider failure for one facet of one ticker
type ExtractionError struct {
	Ticker string
	Facet  contracts.Facet
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s %s: %v", e.Ticker, e.Facet, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extractor fetches the three facets of a ticker from a Provider.
// It neither retries nor recovers: failures go to the caller.
type Extractor struct {
	provider contracts.Provider
}

// NewExtractor creates an extractor over provider
func NewExtractor(provider contracts.Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Extract fetches history, info and dividends in that order.
// period is forwarded to the provider untouched.
func (e *Extractor) Extract(ctx context.Context, ticker, period string) (contracts.Facets, error) {
	prices, err := e.provider.History(ctx, ticker, period)
	if err != nil {
		return contracts.Facets{}, &ExtractionError{Ticker: ticker, Facet: contracts.FacetPrices, Err: err}
	}

	info, err := e.provider.Info(ctx, ticker)
	if err != nil {
		return contracts.Facets{}, &ExtractionError{Ticker: ticker, Facet: contracts.FacetInfos, Err: err}
	}
	if info == nil {
		info = contracts.DescriptiveRecord{}
	}

	dividends, err := e.provider.Dividends(ctx, ticker)
	if err != nil {
		return contracts.Facets{}, &ExtractionError{Ticker: ticker, Facet: contracts.FacetDividends, Err: err}
	}

	return contracts.Facets{
		Prices:    prices,
		Info:      info,
		Dividends: dividends,
	}, nil
}
