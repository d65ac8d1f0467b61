package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// updatesChannel is the Pub/Sub channel carrying strategy update payloads to
// dashboard WebSocket hubs.
const updatesChannel = "strategy_updates"

// UpdateBus implements domain.UpdateBus using Redis Pub/Sub. Every accepted
// strategy update is published here; the dashboard hub subscribes and fans
// the payloads out to its browser clients. Delivery is best-effort: a
// subscriber that is not listening when an update is published never sees it,
// which is fine because only the latest snapshot matters.
type UpdateBus struct {
	rdb *redis.Client
}

// NewUpdateBus creates an UpdateBus backed by the given Client.
func NewUpdateBus(c *Client) *UpdateBus {
	return &UpdateBus{rdb: c.Underlying()}
}

// Publish sends a raw update payload to every subscribed hub.
func (b *UpdateBus) Publish(ctx context.Context, payload []byte) error {
	if err := b.rdb.Publish(ctx, updatesChannel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish update: %w", err)
	}
	return nil
}

// Subscribe creates a Pub/Sub subscription and returns a read-only channel
// emitting raw update payloads. The subscription closes when the context is
// cancelled; the returned channel is closed at that point as well.
func (b *UpdateBus) Subscribe(ctx context.Context) (<-chan []byte, error) {
	pubsub := b.rdb.Subscribe(ctx, updatesChannel)

	// Verify the subscription is established by receiving the confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe updates: %w", err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
