// Package cache wires the optional Redis client and the distributed lock
// built on it. Every constructor tolerates an unconfigured Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"docketflow/internal/platform/config"
)

// ErrLocked is returned when another caller holds the lock.
var ErrLocked = errors.New("lock already held")

// NewClient connects to Redis. It returns nil, nil when no address is configured.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	log.Info().Str("addr", cfg.Addr).Msg("connected to redis")
	return rdb, nil
}

// Locker hands out short-lived exclusive locks keyed by string.
type Locker struct {
	client *redislock.Client
}

// NewLocker returns nil when rdb is nil so callers can skip locking.
func NewLocker(rdb *redis.Client) *Locker {
	if rdb == nil {
		return nil
	}
	return &Locker{client: redislock.New(rdb)}
}

// Acquire takes key for ttl without retrying. The returned func releases it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func() {
		// the request context may already be cancelled here
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Str("key", key).Msg("failed to release redis lock")
		}
	}, nil
}
