// Package storage provides the durable key-value backends the cart is
// written through to.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/storefront/internal/config"
)

var ErrNotFound = errors.New("key not found")

// KV is a string-valued key-value store.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected by CART_STORAGE.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (KV, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	backend := cfg.StorageBackend()
	logger.Debug().Str("backend", backend).Msg("opening cart storage")

	switch backend {
	case config.StorageMemory:
		return NewMemory(), nil
	case config.StorageFile:
		return NewFile(cfg.CartStoragePath)
	case config.StorageRedis:
		return NewRedisFromURL(ctx, cfg.RedisURL)
	case config.StoragePostgres:
		return NewPostgres(ctx, PostgresOptions{
			DatabaseURL: cfg.DatabaseURL,
			MaxConns:    int(cfg.DBMaxConns),
			LogLevel:    cfg.LogLevel,
			Environment: cfg.Environment,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
