package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisLimiter(t *testing.T, limit int) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter, err := NewRedisFixedWindowLimiter(client, "test:ratelimit", limit, time.Minute)
	if err != nil {
		t.Fatalf("new redis limiter: %v", err)
	}
	fixed := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	limiter.now = func() time.Time { return fixed }
	return limiter, mr
}

func TestFixedWindowLimiterRedis(t *testing.T) {
	limiter, _ := newRedisLimiter(t, 2)
	ctx := context.Background()
	if ok, _ := limiter.Allow(ctx, "ip-1"); !ok {
		t.Fatalf("first request should pass")
	}
	if ok, _ := limiter.Allow(ctx, "ip-1"); !ok {
		t.Fatalf("second request should pass")
	}
	ok, retry := limiter.Allow(ctx, "ip-1")
	if ok {
		t.Fatalf("third request should be blocked")
	}
	if retry != 50*time.Second {
		t.Fatalf("expected 50s until next window, got %v", retry)
	}
	if ok, _ := limiter.Allow(ctx, "ip-2"); !ok {
		t.Fatalf("other keys keep their own quota")
	}
}

func TestFixedWindowLimiterRedisFailClosed(t *testing.T) {
	limiter, mr := newRedisLimiter(t, 1)
	mr.Close()
	if ok, _ := limiter.Allow(context.Background(), "ip-1"); ok {
		t.Fatalf("limiter should fail closed on redis errors")
	}
}

func TestFixedWindowLimiterRequiresClient(t *testing.T) {
	limiter, err := NewRedisFixedWindowLimiter(nil, "test:ratelimit", 1, time.Second)
	if err == nil || limiter != nil {
		t.Fatalf("expected constructor error for nil redis client")
	}
}

func TestLocalFixedWindowLimiterResetsPerWindow(t *testing.T) {
	limiter, err := NewLocalFixedWindowLimiter(1, time.Minute)
	if err != nil {
		t.Fatalf("new local limiter: %v", err)
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()
	if ok, _ := limiter.Allow(ctx, "k"); !ok {
		t.Fatalf("first request should pass")
	}
	if ok, _ := limiter.Allow(ctx, "k"); ok {
		t.Fatalf("second request in window should be blocked")
	}
	now = now.Add(time.Minute)
	if ok, _ := limiter.Allow(ctx, "k"); !ok {
		t.Fatalf("new window should reset quota")
	}
}
