package repository

import (
	"context"
	"fmt"

	"github.com/okian/gazecluster/pkg/logger"
)

// Type represents the type of session store.
type Type string

const (
	// TypeMemory keeps sessions in process.
	TypeMemory Type = "memory"
	// TypeRedis keeps sessions in Redis.
	TypeRedis Type = "redis"
)

// Config selects and configures a Store backend.
type Config struct {
	Type  string
	Redis RedisConfig
}

// NewStore creates a session store based on configuration.
func NewStore(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	logger.Get().Info(ctx, "initializing session store", logger.String("type", cfg.Type))
	switch Type(cfg.Type) {
	case TypeMemory, "":
		return NewMemoryStore(ctx, opts...), nil
	case TypeRedis:
		s, err := NewRedisStore(ctx, cfg.Redis, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, cfg.Type)
	}
}
