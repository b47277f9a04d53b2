package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/prisme/backend/pkg/config"
)

// ErrNotFound is returned by Get for a missing artifact
var ErrNotFound = errors.New("storage: artifact not found")

// Store persists tier artifacts under slash-separated keys
// ⭐ SSOT: sinks never touch the filesystem or S3 directly
type Store interface {
	// Put fully overwrites key; readers never see a partial artifact
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the sorted keys starting with prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// New opens the store selected by cfg.Backend
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "fs":
		return NewOSStore(cfg.DataDir), nil
	case "s3":
		return NewS3StoreFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}
