// Package ratelimit implements fixed-window request limits keyed by device.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Defaults: 30 requests per device per minute.
const (
	DefaultLimit  = 30
	DefaultWindow = time.Minute
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a request keyed by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps windows in process memory. Expired windows are
// replaced lazily on the next request for the same key.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryLimiter creates an in-process limiter. Non-positive arguments
// fall back to the defaults.
func NewMemoryLimiter(limit int, win time.Duration) *MemoryLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if win <= 0 {
		win = DefaultWindow
	}
	return &MemoryLimiter{
		limit:   limit,
		window:  win,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(l.window)}
		l.windows[key] = w
		return Decision{Allowed: true, Remaining: l.limit - 1, ResetAt: w.resetAt}, nil
	}
	if w.count >= l.limit {
		return Decision{Allowed: false, ResetAt: w.resetAt}, nil
	}
	w.count++
	return Decision{Allowed: true, Remaining: l.limit - w.count, ResetAt: w.resetAt}, nil
}

// Prune drops windows that have already expired and returns how many were removed.
func (l *MemoryLimiter) Prune() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
			n++
		}
	}
	return n
}

// RedisLimiter shares windows across processes through Redis counters.
// Keys are stored as "{prefix}:{key}" and expire with the window.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter. Non-positive arguments
// fall back to the defaults.
func NewRedisLimiter(client redis.UniversalClient, limit int, win time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if win <= 0 {
		win = DefaultWindow
	}
	return &RedisLimiter{
		client: client,
		prefix: "ratelimit",
		limit:  limit,
		window: win,
		now:    time.Now,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := fmt.Sprintf("%s:%s", l.prefix, key)

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	remaining := ttl.Val()
	// A fresh counter (or one that lost its expiry) starts a new window.
	if remaining < 0 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return Decision{}, fmt.Errorf("rate limit expire %s: %w", key, err)
		}
		remaining = l.window
	}

	n := int(incr.Val())
	d := Decision{ResetAt: l.now().Add(remaining)}
	if n > l.limit {
		return d, nil
	}
	d.Allowed = true
	d.Remaining = l.limit - n
	return d, nil
}

// Close releases the underlying client.
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// NewRedisClient parses a redis:// URL into a client.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
