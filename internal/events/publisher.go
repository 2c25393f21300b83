package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/walletapi/backend/internal/ledger"
)

const DefaultQueue = "ledger:events"

// RedisPublisher appends committed ledger events to a Redis list for downstream consumers.
type RedisPublisher struct {
	client *redis.Client
	queue  string
}

func NewRedisPublisher(client *redis.Client, queue string) *RedisPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	return &RedisPublisher{client: client, queue: queue}
}

func (p *RedisPublisher) Publish(ctx context.Context, event ledger.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push event to %s: %w", p.queue, err)
	}
	return nil
}

var _ ledger.Publisher = (*RedisPublisher)(nil)
