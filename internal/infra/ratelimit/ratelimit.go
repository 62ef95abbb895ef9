package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Result describes the limiter state after a hit.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	Limit(ctx context.Context, key string) (Result, error)
}

// RedisLimiter is a fixed-window counter stored in Redis. Each hit runs
// INCR, EXPIRE NX and TTL in one MULTI/EXEC; EXPIRE NX needs Redis 7.
type RedisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	prefix string
}

// NewRedisLimiter allows max hits per window for each key.
func NewRedisLimiter(client *redis.Client, max int, window time.Duration, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, max: max, window: window, prefix: prefix}
}

func (l *RedisLimiter) Limit(ctx context.Context, key string) (Result, error) {
	fullKey := key
	if l.prefix != "" {
		fullKey = l.prefix + ":" + key
	}

	// EXPIRE NX runs on every hit, so a key whose first expiry was lost
	// still gets one.
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, fullKey)
		pipe.ExpireNX(ctx, fullKey, l.window)
		ttl = pipe.TTL(ctx, fullKey)
		return nil
	})
	if err != nil {
		return Result{Allowed: true, Limit: l.max, Remaining: l.max}, fmt.Errorf("ratelimit: %w", err)
	}

	count := incr.Val()
	reset := ttl.Val()
	if reset <= 0 {
		reset = l.window
	}

	return Result{
		Allowed:   count <= int64(l.max),
		Limit:     l.max,
		Remaining: max(0, l.max-int(count)),
		Reset:     time.Now().Add(reset),
	}, nil
}

// MemoryLimiter is a per-key token bucket kept in process memory. It is used
// when Redis is disabled and by tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*rate.Limiter
}

// NewMemoryLimiter allows bursts of max hits refilled evenly over window.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*rate.Limiter),
	}
}

func (l *MemoryLimiter) Limit(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), l.max)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	allowed := b.Allow()
	return Result{
		Allowed:   allowed,
		Limit:     l.max,
		Remaining: max(0, int(b.Tokens())),
		Reset:     time.Now().Add(l.window),
	}, nil
}
