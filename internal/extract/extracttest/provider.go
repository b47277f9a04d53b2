// Package extracttest provides a scripted Provider for deterministic tests
package extracttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/prisme/backend/internal/contracts"
)

// Response is the scripted answer for one ticker
type Response struct {
	Prices       contracts.PriceSeries
	Info         contracts.DescriptiveRecord
	Dividends    contracts.DistributionSeries
	HistoryErr   error
	InfoErr      error
	DividendsErr error
	Panic        string // non-empty makes History panic
}

// Provider answers from a ticker → Response table and records calls
type Provider struct {
	mu        sync.Mutex
	responses map[string]Response
	calls     []string
}

// NewProvider creates a provider over responses
func NewProvider(responses map[string]Response) *Provider {
	return &Provider{responses: responses}
}

// Calls returns the recorded calls as "facet:ticker[:period]"
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *Provider) record(call, ticker string) (Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	r, ok := p.responses[ticker]
	if !ok {
		return Response{}, fmt.Errorf("unknown ticker %q", ticker)
	}
	return r, nil
}

// History implements contracts.Provider
func (p *Provider) History(_ context.Context, ticker, period string) (contracts.PriceSeries, error) {
	r, err := p.record("history:"+ticker+":"+period, ticker)
	if err != nil {
		return contracts.PriceSeries{}, err
	}
	if r.Panic != "" {
		panic(r.Panic)
	}
	return r.Prices.Clone(), r.HistoryErr
}

// Info implements contracts.Provider
func (p *Provider) Info(_ context.Context, ticker string) (contracts.DescriptiveRecord, error) {
	r, err := p.record("info:"+ticker, ticker)
	if err != nil {
		return nil, err
	}
	info := make(contracts.DescriptiveRecord, len(r.Info))
	for k, v := range r.Info {
		info[k] = v
	}
	return info, r.InfoErr
}

// Dividends implements contracts.Provider
func (p *Provider) Dividends(_ context.Context, ticker string) (contracts.DistributionSeries, error) {
	r, err := p.record("dividends:"+ticker, ticker)
	if err != nil {
		return contracts.DistributionSeries{}, err
	}
	return r.Dividends.Clone(), r.DividendsErr
}
