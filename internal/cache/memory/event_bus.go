package memory

import (
	"context"
	"sync"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// DefaultHistory is the number of payloads kept per channel.
const DefaultHistory = 256

// EventBus is a fan-out domain.EventBus with a bounded history per channel.
// Slow subscribers drop messages rather than block publishers.
type EventBus struct {
	mu      sync.Mutex
	subs    map[string]map[chan []byte]struct{}
	history map[string][][]byte
	keep    int
}

// NewEventBus creates a bus that remembers the last keep payloads per
// channel. keep <= 0 selects DefaultHistory.
func NewEventBus(keep int) *EventBus {
	if keep <= 0 {
		keep = DefaultHistory
	}
	return &EventBus{
		subs:    make(map[string]map[chan []byte]struct{}),
		history: make(map[string][][]byte),
		keep:    keep,
	}
}

// Publish records payload and delivers it to current subscribers.
func (b *EventBus) Publish(_ context.Context, channel string, payload []byte) error {
	msg := append([]byte(nil), payload...)

	b.mu.Lock()
	defer b.mu.Unlock()

	h := append(b.history[channel], msg)
	if len(h) > b.keep {
		h = h[len(h)-b.keep:]
	}
	b.history[channel] = h

	for ch := range b.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is cancelled.
func (b *EventBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 64)

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[channel], ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch, nil
}

// Recent returns up to n of the newest payloads on channel, oldest first.
func (b *EventBus) Recent(_ context.Context, channel string, n int) ([][]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.history[channel]
	if n > 0 && len(h) > n {
		h = h[len(h)-n:]
	}
	out := make([][]byte, len(h))
	copy(out, h)
	return out, nil
}

var (
	_ domain.EventBus     = (*EventBus)(nil)
	_ domain.EventHistory = (*EventBus)(nil)
)
