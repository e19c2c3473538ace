package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"docketflow/internal/pkg/errors"
	"docketflow/internal/platform/config"
)

const (
	LimitAPIRead  = "api_read"
	LimitAPIWrite = "api_write"
	LimitUpload   = "upload"
)

// RateLimiter enforces per-caller request budgets per minute. Budgets are
// shared across replicas through Redis when it is configured; otherwise, or
// when Redis errors, each process keeps its own token buckets.
type RateLimiter struct {
	redis  *redis_rate.Limiter
	local  *localLimiter
	limits map[string]int
}

func NewRateLimiter(rdb *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		local: newLocalLimiter(),
		limits: map[string]int{
			LimitAPIRead:  orDefault(cfg.APIReadPerMinute, 1000),
			LimitAPIWrite: orDefault(cfg.APIWritePerMinute, 100),
			LimitUpload:   orDefault(cfg.UploadPerMinute, 60),
		},
	}
	if rdb != nil {
		rl.redis = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (rl *RateLimiter) Limit(limitType string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			limit, ok := rl.limits[limitType]
			if !ok {
				limit = 100
			}
			key := fmt.Sprintf("ratelimit:%s:%s", callerKey(r), limitType)

			allowed, retryAfter := rl.allow(r.Context(), key, limit)
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}
			next(w, r)
		}
	}
}

func (rl *RateLimiter) allow(ctx context.Context, key string, limit int) (bool, time.Duration) {
	if rl.redis != nil {
		res, err := rl.redis.Allow(ctx, key, redis_rate.PerMinute(limit))
		if err == nil {
			return res.Allowed > 0, res.RetryAfter
		}
		log.Warn().Err(err).Msg("redis rate limiter unavailable, using local buckets")
	}
	return rl.local.Allow(key, limit), time.Minute / time.Duration(limit)
}

func callerKey(r *http.Request) string {
	if p := PrincipalFrom(r.Context()); p != nil {
		if p.Service {
			return "service"
		}
		return "user:" + p.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

type localLimiter struct {
	store *sync.Map // map[string]*bucket
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
	mu         sync.Mutex
}

func newLocalLimiter() *localLimiter {
	l := &localLimiter{store: &sync.Map{}}
	go l.cleanupLoop()
	return l
}

func (l *localLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		l.sweep(time.Now(), 10*time.Minute)
	}
}

func (l *localLimiter) sweep(now time.Time, idle time.Duration) {
	l.store.Range(func(key, value interface{}) bool {
		b := value.(*bucket)
		b.mu.Lock()
		if now.Sub(b.lastAccess) > idle {
			l.store.Delete(key)
		}
		b.mu.Unlock()
		return true
	})
}

func (l *localLimiter) Allow(key string, limit int) bool {
	now := time.Now()

	val, _ := l.store.LoadOrStore(key, &bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	b := val.(*bucket)
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastAccess = now

	// limit tokens per minute
	refill := int(now.Sub(b.lastRefill).Seconds() * float64(limit) / 60.0)
	if refill > 0 {
		b.tokens += refill
		if b.tokens > limit {
			b.tokens = limit
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}
