package transport

import (
	"context"
	"math"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/fangwater/crypto-trade/internal/metrics"
	"github.com/fangwater/crypto-trade/internal/signal"
)

const busWebsocket = "websocket"

// WSBus consumes binary signal frames from the fallback socket bus. It may
// carry a subset of the signal kinds the primary bus does; the dispatcher
// cannot tell the two apart.
type WSBus struct {
	url string
	log zerolog.Logger
}

// NewWSBus points the fallback bus at a websocket endpoint.
func NewWSBus(url string, log zerolog.Logger) *WSBus {
	return &WSBus{url: url, log: log}
}

// Run pushes decoded signals onto out until the context is canceled,
// reconnecting with exponential backoff when the stream drops.
func (b *WSBus) Run(ctx context.Context, out chan<- signal.Signal) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := b.consume(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.log.Warn().Err(err).Msg("websocket bus disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (b *WSBus) consume(ctx context.Context, out chan<- signal.Signal) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	b.log.Info().Str("url", b.url).Msg("connected fallback signal bus")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					b.log.Warn().Err(err).Msg("websocket ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		sig, err := DecodeSignal(message)
		if err != nil {
			metrics.DecodeErrorsTotal.WithLabelValues(busWebsocket).Inc()
			b.log.Warn().Err(err).Msg("dropping undecodable frame")
			continue
		}

		select {
		case out <- sig:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
