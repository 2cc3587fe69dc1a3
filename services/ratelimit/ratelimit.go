package ratelimitsvc

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/Ing-la/future-navigator/core"
)

const keyPrefix = "ratelimit:"

// Result of a hit on a fixed window counter.
type Result struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

// New returns a redis limiter when an address is configured, a memory one otherwise.
func New(conf *core.Config, logger core.Logger) (Limiter, func() error, error) {
	if conf.Redis.Address == "" {
		return NewMemoryLimiter(), func() error { return nil }, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Address,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, errors.Wrap(err, "connecting to redis")
	}
	logger.Info("rate limiting with redis at " + conf.Redis.Address)
	return NewRedisLimiter(rdb), rdb.Close, nil
}

type RedisLimiter struct {
	rdb *redis.Client
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

// Allow counts the hit and starts the window expiry on the first one.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error) {
	key = keyPrefix + key
	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, errors.Wrap(err, "counting hit")
	}

	retryAfter := ttl.Val()
	if retryAfter < 0 { // no expiry yet
		if err := l.rdb.PExpire(ctx, key, window).Err(); err != nil {
			return Result{}, errors.Wrap(err, "setting window expiry")
		}
		retryAfter = window
	}

	res := Result{Count: incr.Val(), Allowed: incr.Val() <= int64(limit)}
	if !res.Allowed {
		res.RetryAfter = retryAfter
	}
	return res, nil
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	now     func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*memoryWindow), now: time.Now}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &memoryWindow{resetAt: now.Add(window)}
		l.windows[key] = w
		l.sweep(now)
	}
	w.count++

	res := Result{Count: w.count, Allowed: w.count <= int64(limit)}
	if !res.Allowed {
		res.RetryAfter = w.resetAt.Sub(now)
	}
	return res, nil
}

// sweep drops expired windows so the map does not grow forever.
func (l *MemoryLimiter) sweep(now time.Time) {
	for k, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, k)
		}
	}
}
