package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// historyMaxLen caps each event history stream (XADD MAXLEN ~).
const historyMaxLen int64 = 1000

// EventBus implements domain.EventBus with Redis Pub/Sub for live delivery
// and a capped stream per channel for history.
type EventBus struct {
	c *Client
}

// NewEventBus creates an EventBus backed by c.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{c: c}
}

func (b *EventBus) channel(name string) string { return b.c.Key("events", name) }
func (b *EventBus) stream(name string) string  { return b.c.Key("history", name) }

// Publish appends payload to the channel history and broadcasts it.
func (b *EventBus) Publish(ctx context.Context, channel string, payload []byte) error {
	pipe := b.c.rdb.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream(channel),
		MaxLen: historyMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": payload},
	})
	pipe.Publish(ctx, b.channel(channel), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Subscribe returns a channel of payloads published to channel. It is
// closed when ctx is cancelled.
func (b *EventBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	pubsub := b.c.rdb.Subscribe(ctx, b.channel(channel))
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

// Recent returns up to n of the newest payloads on channel, oldest first.
func (b *EventBus) Recent(ctx context.Context, channel string, n int) ([][]byte, error) {
	msgs, err := b.c.rdb.XRevRangeN(ctx, b.stream(channel), "+", "-", int64(n)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: recent %s: %w", channel, err)
	}

	out := make([][]byte, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		switch v := msgs[i].Values["payload"].(type) {
		case string:
			out = append(out, []byte(v))
		case []byte:
			out = append(out, v)
		}
	}
	return out, nil
}

var (
	_ domain.EventBus     = (*EventBus)(nil)
	_ domain.EventHistory = (*EventBus)(nil)
)
