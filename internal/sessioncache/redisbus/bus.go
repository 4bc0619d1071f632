// Package redisbus carries session cache messages over Redis Pub/Sub so that
// cache instances in different processes stay in sync.
package redisbus

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const channelPrefix = "studiobooks:sessioncache:"

// Bus publishes on one channel per owner.
type Bus struct {
	client  *redis.Client
	channel string
}

func New(client *redis.Client, ownerID uuid.UUID) *Bus {
	return &Bus{client: client, channel: channelPrefix + ownerID.String()}
}

func (b *Bus) Channel() string {
	return b.channel
}

func (b *Bus) Publish(ctx context.Context, data []byte) error {
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", b.channel, err)
	}

	return nil
}

// Subscribe waits for Redis to confirm the subscription, then delivers every
// message to handle from a single goroutine until unsubscribe is called or
// ctx ends.
func (b *Bus) Subscribe(ctx context.Context, handle func([]byte)) (func() error, error) {
	pubsub := b.client.Subscribe(ctx, b.channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}

	ch := pubsub.Channel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				handle([]byte(msg.Payload))
			}
		}
	}()

	return pubsub.Close, nil
}
