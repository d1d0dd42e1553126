package events

import (
	"context"
	"log"
	"sync"
)

const subscriberBuffer = 64

// LocalBus is the in-process bus used when Redis is not configured.
// Publish never blocks; a subscriber that falls behind loses events.
type LocalBus struct {
	subs   map[chan Event]struct{}
	closed bool
	mu     sync.RWMutex
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[chan Event]struct{})}
}

func (b *LocalBus) Publish(_ context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			log.Printf("[EVENTS] Subscriber buffer full, dropping %s for session %s", e.Type, e.SessionToken)
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(ctx context.Context, fn func(Event)) error {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-ch:
			if !ok {
				return ErrBusClosed
			}
			fn(e)
		}
	}
}

// Subscribers reports how many subscriptions are live.
func (b *LocalBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *LocalBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	return nil
}
