package redis

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// EventBus implements domain.EventBus on Redis Pub/Sub.
type EventBus struct {
	client *Client
}

// NewEventBus creates an EventBus backed by the given Client.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{client: c}
}

// Publish sends payload to channel.
func (eb *EventBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := eb.client.rdb.Publish(ctx, eb.client.key(channel), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. It is
// closed when ctx is cancelled.
func (eb *EventBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := eb.client.rdb.Subscribe(ctx, eb.client.key(channel))

	// Wait for the subscription confirmation so no message published after
	// Subscribe returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", channel, err)
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

var _ domain.EventBus = (*EventBus)(nil)
