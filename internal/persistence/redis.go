package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-desk/internal/config"
)

const redisDialCheckTimeout = 3 * time.Second

// Redis holds the client backing the resolution cache.
type Redis struct {
	Client *redis.Client
	addr   string
}

// NewRedis builds the client and checks it once. An unreachable server is
// not fatal: cache reads fail, are logged and fall through to a fresh
// calculation.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if !cfg.Enabled() {
		logger.Warn("REDIS_ADDR not provided; resolution cache disabled")
		return &Redis{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		ClientName: "ticket-desk",
	})
	r := &Redis{Client: client, addr: cfg.Addr}

	pingCtx, cancel := context.WithTimeout(ctx, redisDialCheckTimeout)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable; resolution cache will miss", zap.Error(err))
	} else {
		logger.Info("connected to redis",
			zap.String("addr", cfg.Addr),
			zap.Duration("resolution_ttl", cfg.ResolutionCacheTTL()))
	}
	return r
}

// Configured reports whether a server address was given.
func (r *Redis) Configured() bool {
	return r != nil && r.Client != nil
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping reports whether the server answers.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", r.addr, err)
	}
	return nil
}
