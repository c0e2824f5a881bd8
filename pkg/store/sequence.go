package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Sequencer hands out strictly increasing per-chat message sequence numbers.
// floor is the highest number already persisted; the result is always above it.
type Sequencer interface {
	Next(ctx context.Context, chatID string, floor int64) (int64, error)
}

// LocalSequencer is a Sequencer for a single process.
type LocalSequencer struct {
	mu   sync.Mutex
	last map[string]int64
}

func NewLocalSequencer() *LocalSequencer {
	return &LocalSequencer{last: make(map[string]int64)}
}

func (s *LocalSequencer) Next(_ context.Context, chatID string, floor int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.last[chatID]
	if cur < floor {
		cur = floor
	}
	cur++
	s.last[chatID] = cur
	return cur, nil
}

// RedisSequencer shares counters across instances through Redis.
type RedisSequencer struct {
	client *redis.Client
	prefix string
}

// raise the counter to the persisted floor before incrementing, so a flushed
// or fresh Redis never reissues numbers that are already stored.
var nextSeqScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local floor = tonumber(ARGV[1])
if cur < floor then
  redis.call("SET", KEYS[1], floor)
end
return redis.call("INCR", KEYS[1])
`)

func NewRedisSequencer(client *redis.Client, prefix string) *RedisSequencer {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "portfolio:chat"
	}
	return &RedisSequencer{client: client, prefix: prefix}
}

func (s *RedisSequencer) Next(ctx context.Context, chatID string, floor int64) (int64, error) {
	key := fmt.Sprintf("%s:%s:seq", s.prefix, chatID)
	seq, err := nextSeqScript.Run(ctx, s.client, []string{key}, floor).Int64()
	if err != nil {
		return 0, fmt.Errorf("next message seq: %w", err)
	}
	return seq, nil
}
