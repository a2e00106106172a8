package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fangwater/crypto-trade/internal/metrics"
	"github.com/fangwater/crypto-trade/internal/signal"
)

const busRedis = "redis"

// NewRedisClient builds a client with the pool and timeout settings the
// collector expects from a local signal bus.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,

		PoolSize:     10,
		MinIdleConns: 2,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	})
}

// RedisBus subscribes to the primary signal channels and feeds decoded
// signals into the dispatcher queue.
type RedisBus struct {
	client   *redis.Client
	channels []string
	log      zerolog.Logger
}

// NewRedisBus wraps an existing client for the given channels.
func NewRedisBus(client *redis.Client, channels []string, log zerolog.Logger) *RedisBus {
	return &RedisBus{client: client, channels: channels, log: log}
}

// Run pushes decoded signals onto out until the context is canceled.
// Malformed frames are counted and skipped; they never stop the bus.
func (b *RedisBus) Run(ctx context.Context, out chan<- signal.Signal) error {
	if len(b.channels) == 0 {
		return fmt.Errorf("redis bus requires at least one channel")
	}

	sub := b.client.Subscribe(ctx, b.channels...)
	defer sub.Close()

	// Force the subscription handshake so a bad address fails fast.
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	b.log.Info().Strs("channels", b.channels).Msg("redis bus subscribed")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("redis subscription closed")
			}
			sig, err := DecodeSignal([]byte(msg.Payload))
			if err != nil {
				metrics.DecodeErrorsTotal.WithLabelValues(busRedis).Inc()
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping undecodable frame")
				continue
			}
			select {
			case out <- sig:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
