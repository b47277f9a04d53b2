package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed JSON caching utilities
// ⭐ SSOT: cache helpers live here only
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether the cache talks to Redis at all
func (c *Cache) Enabled() bool {
	return c.client != nil && c.client.Enabled()
}

// FullKey returns the namespaced Redis key for key
func (c *Cache) FullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value into dest.
// A missing key returns (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.rdb.Get(ctx, c.FullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.rdb.Set(ctx, c.FullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}

	return c.client.rdb.Del(ctx, c.FullKey(key)).Err()
}

// Predefined TTLs
const (
	TTLShort = 10 * time.Minute
	TTLLong  = 6 * time.Hour
	TTLDaily = 24 * time.Hour
)

// HistoryKey is the cache key of a price history request
func HistoryKey(ticker, period string) string {
	return fmt.Sprintf("history:%s:%s", ticker, period)
}

// InfoKey is the cache key of a descriptive document
func InfoKey(ticker string) string {
	return fmt.Sprintf("info:%s", ticker)
}

// DividendsKey is the cache key of a distribution history
func DividendsKey(ticker string) string {
	return fmt.Sprintf("dividends:%s", ticker)
}
