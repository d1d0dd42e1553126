package events

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// RedisBus publishes events over Redis Pub/Sub so every server instance sees them.
// Publishes go through a circuit breaker: while Redis is failing, publishing
// fails fast instead of holding up the session that emitted the event.
type RedisBus struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker
}

func NewRedisBus(rdb *redis.Client) *RedisBus {
	settings := gobreaker.Settings{
		Name:        "lab-events",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[EVENTS] Circuit %s: %s -> %s", name, from, to)
		},
	}
	return &RedisBus{rdb: rdb, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (b *RedisBus) Publish(ctx context.Context, e Event) error {
	payload, err := e.Marshal()
	if err != nil {
		return err
	}
	_, err = b.breaker.Execute(func() (interface{}, error) {
		return b.rdb.Publish(ctx, Channel, payload).Result()
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, fn func(Event)) error {
	pubsub := b.rdb.Subscribe(ctx, Channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reading messages.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", Channel, err)
	}
	log.Printf("[EVENTS] %s subscriber started", Channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return ErrBusClosed
			}
			e, err := Unmarshal([]byte(msg.Payload))
			if err != nil {
				log.Printf("[EVENTS] invalid event payload: %v", err)
				continue
			}
			fn(e)
		}
	}
}

// Close leaves the client open; it belongs to the caller.
func (b *RedisBus) Close() error {
	return nil
}
