package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/extract/extracttest"
	"github.com/wonny/prisme/backend/pkg/logger"
	"github.com/wonny/prisme/backend/pkg/redis"
)

func series() contracts.PriceSeries {
	return contracts.PriceSeries{Bars: []contracts.Bar{
		{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.FixedZone("CET", 3600)), Close: 10, Volume: 5},
	}}
}

func TestExtract_OrderAndPassThrough(t *testing.T) {
	provider := extracttest.NewProvider(map[string]extracttest.Response{
		"C40.PA": {
			Prices: series(),
			Info:   contracts.DescriptiveRecord{"symbol": "C40.PA"},
		},
	})

	facets, err := NewExtractor(provider).Extract(context.Background(), "C40.PA", "max")
	require.NoError(t, err)

	assert.Equal(t, []string{"history:C40.PA:max", "info:C40.PA", "dividends:C40.PA"}, provider.Calls())
	assert.Equal(t, 1, facets.Prices.Len())
	assert.Equal(t, "C40.PA", facets.Info["symbol"])
	assert.True(t, facets.Dividends.Empty())
}

func TestExtract_NilInfoBecomesEmptyDocument(t *testing.T) {
	provider := extracttest.NewProvider(map[string]extracttest.Response{"X": {}})

	facets, err := NewExtractor(provider).Extract(context.Background(), "X", "1y")
	require.NoError(t, err)
	assert.NotNil(t, facets.Info)
	assert.Empty(t, facets.Info)
}

func TestExtract_TypedFailures(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name      string
		response  extracttest.Response
		wantFacet contracts.Facet
		wantCalls int
	}{
		{"history", extracttest.Response{HistoryErr: boom}, contracts.FacetPrices, 1},
		{"info", extracttest.Response{InfoErr: boom}, contracts.FacetInfos, 2},
		{"dividends", extracttest.Response{DividendsErr: boom}, contracts.FacetDividends, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := extracttest.NewProvider(map[string]extracttest.Response{"B.PA": tt.response})

			_, err := NewExtractor(provider).Extract(context.Background(), "B.PA", "5y")
			require.Error(t, err)

			var extErr *ExtractionError
			require.True(t, errors.As(err, &extErr))
			assert.Equal(t, "B.PA", extErr.Ticker)
			assert.Equal(t, tt.wantFacet, extErr.Facet)
			assert.ErrorIs(t, err, boom)
			assert.Len(t, provider.Calls(), tt.wantCalls, "no retry")
		})
	}
}

func TestCachedProvider_PassThroughWhenDisabled(t *testing.T) {
	provider := extracttest.NewProvider(map[string]extracttest.Response{"A": {Prices: series()}})
	cached := NewCachedProvider(provider, nil, 0, logger.Nop())

	for i := 0; i < 2; i++ {
		_, err := cached.History(context.Background(), "A", "5y")
		require.NoError(t, err)
	}
	assert.Len(t, provider.Calls(), 2)
}

func TestCachedProvider_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromClient(db), "prisme")
	provider := extracttest.NewProvider(map[string]extracttest.Response{})

	mock.ExpectGet("prisme:cache:info:C40.PA").SetVal(`{"symbol":"C40.PA","navPrice":98.3}`)

	info, err := NewCachedProvider(provider, cache, time.Hour, logger.Nop()).Info(context.Background(), "C40.PA")
	require.NoError(t, err)
	assert.Equal(t, contracts.DescriptiveRecord{"symbol": "C40.PA", "navPrice": 98.3}, info)
	assert.Empty(t, provider.Calls(), "provider not called on hit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedProvider_MissStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromClient(db), "prisme")
	dividends := contracts.DistributionSeries{
		Column: "amount",
		Points: []contracts.Distribution{{Time: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), Amount: 0.4}},
	}
	provider := extracttest.NewProvider(map[string]extracttest.Response{"A": {Dividends: dividends}})

	payload, err := json.Marshal(dividends)
	require.NoError(t, err)
	mock.ExpectGet("prisme:cache:dividends:A").RedisNil()
	mock.ExpectSet("prisme:cache:dividends:A", payload, time.Hour).SetVal("OK")

	got, err := NewCachedProvider(provider, cache, time.Hour, logger.Nop()).Dividends(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, dividends, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedProvider_CacheFailureFallsThrough(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromClient(db), "prisme")
	provider := extracttest.NewProvider(map[string]extracttest.Response{"A": {Prices: series()}})

	mock.ExpectGet("prisme:cache:history:A:5y").SetErr(errors.New("connection refused"))
	mock.ExpectSet("prisme:cache:history:A:5y", mustJSON(t, series()), time.Hour).SetErr(errors.New("connection refused"))

	got, err := NewCachedProvider(provider, cache, time.Hour, logger.Nop()).History(context.Background(), "A", "5y")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Len())
	assert.Equal(t, []string{"history:A:5y"}, provider.Calls())
}

func TestCachedProvider_ErrorsAreNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromClient(db), "prisme")
	boom := errors.New("404")
	provider := extracttest.NewProvider(map[string]extracttest.Response{"A": {InfoErr: boom}})

	mock.ExpectGet("prisme:cache:info:A").RedisNil()

	_, err := NewCachedProvider(provider, cache, time.Hour, logger.Nop()).Info(context.Background(), "A")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
