package extract

import (
	"context"
	"time"

	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/pkg/logger"
	"github.com/wonny/prisme/backend/pkg/redis"
)

// CachedProvider serves provider responses from Redis when available.
// Cache errors are logged and fall through to the wrapped provider.
type CachedProvider struct {
	next   contracts.Provider
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedProvider wraps next; a disabled cache makes it a pass-through
func NewCachedProvider(next contracts.Provider, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = redis.TTLLong
	}
	return &CachedProvider{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithModule("provider_cache"),
	}
}

// History implements contracts.Provider
func (p *CachedProvider) History(ctx context.Context, ticker, period string) (contracts.PriceSeries, error) {
	var series contracts.PriceSeries
	if p.lookup(ctx, redis.HistoryKey(ticker, period), &series) {
		return series, nil
	}
	series, err := p.next.History(ctx, ticker, period)
	if err != nil {
		return series, err
	}
	p.store(ctx, redis.HistoryKey(ticker, period), series)
	return series, nil
}

// Info implements contracts.Provider
func (p *CachedProvider) Info(ctx context.Context, ticker string) (contracts.DescriptiveRecord, error) {
	var info contracts.DescriptiveRecord
	if p.lookup(ctx, redis.InfoKey(ticker), &info) {
		return info, nil
	}
	info, err := p.next.Info(ctx, ticker)
	if err != nil {
		return info, err
	}
	p.store(ctx, redis.InfoKey(ticker), info)
	return info, nil
}

// Dividends implements contracts.Provider
func (p *CachedProvider) Dividends(ctx context.Context, ticker string) (contracts.DistributionSeries, error) {
	var series contracts.DistributionSeries
	if p.lookup(ctx, redis.DividendsKey(ticker), &series) {
		return series, nil
	}
	series, err := p.next.Dividends(ctx, ticker)
	if err != nil {
		return series, err
	}
	p.store(ctx, redis.DividendsKey(ticker), series)
	return series, nil
}

func (p *CachedProvider) lookup(ctx context.Context, key string, dest interface{}) bool {
	if p.cache == nil || !p.cache.Enabled() {
		return false
	}
	hit, err := p.cache.Get(ctx, key, dest)
	if err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("cache read failed")
		return false
	}
	if hit {
		p.logger.WithField("key", key).Debug("cache hit")
	}
	return hit
}

func (p *CachedProvider) store(ctx context.Context, key string, value interface{}) {
	if p.cache == nil || !p.cache.Enabled() {
		return
	}
	if err := p.cache.Set(ctx, key, value, p.ttl); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
