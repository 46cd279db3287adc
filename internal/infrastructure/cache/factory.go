package cache

import (
	"github.com/autoshop/billing/internal/domain/shared"
	"github.com/autoshop/billing/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore picks the duplicate-filter backend from configuration.
// Redis is preferred when enabled; if it is unreachable the service degrades
// to an in-memory filter rather than refusing to start, since the database
// guard still enforces correctness.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger) shared.IdempotencyStore {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Enabled {
		logger.Info("redis disabled, using in-memory duplicate filter")
		return NewInMemoryIdempotencyStore()
	}

	store, err := NewRedisIdempotencyStore(cfg.Addr(), cfg.Password, cfg.DB)
	if err != nil {
		logger.Warn("redis unavailable, falling back to in-memory duplicate filter",
			zap.String("addr", cfg.Addr()),
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore()
	}

	logger.Info("using redis duplicate filter", zap.String("addr", cfg.Addr()))
	return store
}
