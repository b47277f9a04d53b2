package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/prisme/backend/pkg/config"
)

// pingTimeout bounds the connection check done by New
const pingTimeout = 3 * time.Second

// Client holds the provider cache connection.
// A disabled client turns every cache call into a miss.
// ⭐ SSOT: Redis connections are managed here only
type Client struct {
	rdb *redis.Client
}

// New connects to Redis when the cache is enabled.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{}, nil
	}

	c := &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		_ = c.rdb.Close()
		return nil, fmt.Errorf("redis connection to %s:%s failed: %w", cfg.Host, cfg.Port, err)
	}
	return c, nil
}

// NewFromClient wraps an existing go-redis client (used with redismock in tests).
// A nil client yields a disabled Client.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Ping checks the connection. A disabled client has nothing to check.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled reports whether the provider cache talks to Redis
func (c *Client) Enabled() bool {
	return c.rdb != nil
}
