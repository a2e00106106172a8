package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/fangwater/crypto-trade/internal/event"
)

// EventPublisher ships events to the downstream processor over a redis
// channel. A circuit breaker turns a flapping transport into fast "try again
// next cycle" failures so the dispatcher keeps events queued instead of
// blocking on timeouts.
type EventPublisher struct {
	client  *redis.Client
	channel string
	breaker *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewEventPublisher wraps a redis client and output channel.
func NewEventPublisher(client *redis.Client, channel string, log zerolog.Logger) *EventPublisher {
	settings := gobreaker.Settings{Name: "event-publisher"}
	settings.Interval = 60 * time.Second
	settings.Timeout = 10 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return &EventPublisher{
		client:  client,
		channel: channel,
		breaker: gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

// Publish encodes the event envelope as JSON and publishes it. Errors mean
// "transport unavailable": the caller keeps the event queued.
func (p *EventPublisher) Publish(ctx context.Context, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	_, err = p.breaker.Execute(func() (interface{}, error) {
		return nil, p.client.Publish(ctx, p.channel, payload).Err()
	})
	if err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
