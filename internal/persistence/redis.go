package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client    *redis.Client
	keyPrefix string
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client, keyPrefix: cfg.KeyPrefix}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Next atomically increments the named counter. It satisfies ticketid.CounterStore.
func (r *Redis) Next(ctx context.Context, name string) (int64, error) {
	if r == nil || r.Client == nil {
		return 0, errors.New("redis client not configured")
	}
	return r.Client.Incr(ctx, r.counterKey(name)).Result()
}

// SeedCounter raises the named counter to at least floor. Used at boot so a
// fresh Redis does not reissue codes already stored in Postgres.
func (r *Redis) SeedCounter(ctx context.Context, name string, floor int64) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	key := r.counterKey(name)
	current, err := r.Client.Get(ctx, key).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if current >= floor {
		return nil
	}
	return r.Client.IncrBy(ctx, key, floor-current).Err()
}

func (r *Redis) counterKey(name string) string {
	return r.keyPrefix + "counter:" + name
}
