package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a request keyed by key may proceed. RetryAfter is
// the time left in the current window when the request is refused.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration)
}

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter counts requests per key in Redis so every instance
// shares one quota. It fails closed when Redis is unreachable.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisFixedWindowLimiter builds a limiter on an existing client.
func NewRedisFixedWindowLimiter(client *redis.Client, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	if client == nil {
		return nil, errors.New("rate limiter redis client is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "portfolio:ratelimit"
	}
	return &FixedWindowLimiter{
		limit:  limit,
		window: window,
		client: client,
		prefix: prefix,
		now:    time.Now,
	}, nil
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l == nil {
		return false, 0
	}
	slot, retry := windowSlot(l.now(), l.window)
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, normalizeKey(key), slot)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		slog.Warn("rate limiter unavailable", "err", err)
		return false, retry
	}
	if count > int64(l.limit) {
		return false, retry
	}
	return true, 0
}

// LocalFixedWindowLimiter keeps counters in process memory. Used when no
// Redis is configured.
type LocalFixedWindowLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	slot     int64
	counters map[string]int
}

func NewLocalFixedWindowLimiter(limit int, window time.Duration) (*LocalFixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	return &LocalFixedWindowLimiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string]int),
	}, nil
}

func (l *LocalFixedWindowLimiter) Allow(_ context.Context, key string) (bool, time.Duration) {
	slot, retry := windowSlot(l.now(), l.window)
	l.mu.Lock()
	defer l.mu.Unlock()
	if slot != l.slot {
		l.slot = slot
		clear(l.counters)
	}
	key = normalizeKey(key)
	l.counters[key]++
	if l.counters[key] > l.limit {
		return false, retry
	}
	return true, 0
}

func windowSlot(now time.Time, window time.Duration) (int64, time.Duration) {
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		windowMs = 1
	}
	ms := now.UTC().UnixMilli()
	slot := ms / windowMs
	retry := time.Duration((slot+1)*windowMs-ms) * time.Millisecond
	return slot, retry
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "unknown"
	}
	return key
}
