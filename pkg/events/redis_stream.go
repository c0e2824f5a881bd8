package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisStreamPublisher appends events to a capped Redis stream.
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStreamPublisher(client *redis.Client, stream string, maxLen int64) *RedisStreamPublisher {
	stream = strings.TrimSpace(stream)
	if stream == "" {
		stream = "portfolio:events"
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &RedisStreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

func (p *RedisStreamPublisher) PublishPagePublished(ctx context.Context, evt PagePublished) error {
	body, err := encode(evt)
	if err != nil {
		return err
	}
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":    TypePagePublished,
			"chat_id": evt.ChatID,
			"payload": string(body),
		},
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", p.stream, err)
	}
	return nil
}

// Close is a no-op; the Redis client is owned by the caller.
func (p *RedisStreamPublisher) Close() error { return nil }
