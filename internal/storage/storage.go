// Package storage persists the set of headline texts already recorded.
package storage

import (
	"context"
	"fmt"

	"github.com/deusflow/headwatch/internal/config"
)

// SeenStore is an append-only store of headline texts.
//
// Append must only receive entries that are not already stored; backends
// with a uniqueness constraint tolerate duplicates, the file backend keeps them.
type SeenStore interface {
	Load(ctx context.Context) ([]string, error)
	Append(ctx context.Context, entries []string) error
	Count(ctx context.Context) (int, error)
	Close() error
}

// Open returns the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (SeenStore, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileSeenStore(cfg.SeenFile), nil
	case config.BackendPostgres:
		return NewPostgresSeenStore(ctx, cfg.PostgresDSN)
	case config.BackendRedis:
		return NewRedisSeenStore(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
