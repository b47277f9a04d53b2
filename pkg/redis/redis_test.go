package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/prisme/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestNewClient_Unreachable(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1"})
	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestClient_Ping(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock redismock.ClientMock)
		wantErr bool
	}{
		{
			name:  "pong",
			setup: func(mock redismock.ClientMock) { mock.ExpectPing().SetVal("PONG") },
		},
		{
			name:    "server error",
			setup:   func(mock redismock.ClientMock) { mock.ExpectPing().SetErr(errors.New("LOADING")) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := redismock.NewClientMock()
			tt.setup(mock)

			err := NewFromClient(db).Ping(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClient_PingDisabled(t *testing.T) {
	client := NewFromClient(nil)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(context.Background(), config.RedisConfig{Enabled: false})
	cache := NewCache(client, "prisme")

	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(context.Background(), "key", "value", TTLShort))
	assert.NoError(t, cache.Delete(context.Background(), "key"))
}

func TestCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "prisme")

	mock.ExpectGet("prisme:cache:info:C40.PA").SetVal(`{"symbol":"C40.PA"}`)

	var doc map[string]interface{}
	found, err := cache.Get(context.Background(), InfoKey("C40.PA"), &doc)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "C40.PA", doc["symbol"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "prisme")

	mock.ExpectGet("prisme:cache:info:C40.PA").RedisNil()

	var doc map[string]interface{}
	found, err := cache.Get(context.Background(), InfoKey("C40.PA"), &doc)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "prisme")

	mock.ExpectGet("prisme:cache:info:C40.PA").SetErr(errors.New("connection reset"))

	var doc map[string]interface{}
	_, err := cache.Get(context.Background(), InfoKey("C40.PA"), &doc)
	assert.Error(t, err)
}

func TestCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromClient(db), "prisme")

	mock.ExpectSet("prisme:cache:dividends:C40.PA", []byte(`[1,2]`), time.Hour).SetVal("OK")

	require.NoError(t, cache.Set(context.Background(), DividendsKey("C40.PA"), []int{1, 2}, time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "history:PE500.PA:5y", HistoryKey("PE500.PA", "5y"))
	assert.Equal(t, "info:PE500.PA", InfoKey("PE500.PA"))
	assert.Equal(t, "dividends:PE500.PA", DividendsKey("PE500.PA"))
}
