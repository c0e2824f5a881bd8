package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"portfolioai/pkg/events"
	"portfolioai/pkg/storage"
	"portfolioai/pkg/store"
	"portfolioai/services/portfolio/internal/config"
)

const eventsStreamMaxLen = 10000

func newStore(cfg config.FileConfig) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		return store.NewMemoryStore(), nil
	case config.StoreDriverPostgres:
		return store.NewGormStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func newObjectStore(ctx context.Context, cfg config.FileConfig) (storage.ObjectStore, error) {
	switch cfg.ObjectStoreDriver {
	case config.ObjectStoreMemory:
		return storage.NewMemoryStore(), nil
	case config.ObjectStoreMinio:
		return storage.NewMinioStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL, cfg.InputBucket, cfg.OutputBucket)
	case config.ObjectStoreS3:
		return storage.NewS3Store(ctx, storage.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return nil, fmt.Errorf("unknown object store driver %q", cfg.ObjectStoreDriver)
	}
}

// newPublisher prefers AMQP, then a Redis stream, and otherwise drops events.
func newPublisher(cfg config.FileConfig, client *redis.Client) (events.Publisher, error) {
	switch {
	case cfg.AMQPURL != "":
		return events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	case cfg.EventsStream != "" && client != nil:
		return events.NewRedisStreamPublisher(client, cfg.EventsStream, eventsStreamMaxLen), nil
	default:
		return events.NoopPublisher{}, nil
	}
}
