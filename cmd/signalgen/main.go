// Binary signalgen publishes synthetic signal frames onto the redis bus so
// the collector can be exercised without live upstream producers.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	sig "github.com/fangwater/crypto-trade/internal/signal"
	"github.com/fangwater/crypto-trade/internal/transport"
	"github.com/fangwater/crypto-trade/internal/util"
)

func main() {
	redisAddr := flag.String("redis", "127.0.0.1:6379", "redis address")
	channel := flag.String("channel", "signals", "channel to publish on")
	instruments := flag.String("instruments", "BTCUSDT", "comma-separated instruments")
	interval := flag.Duration("interval", 500*time.Millisecond, "publish cadence")
	flag.Parse()

	log := util.NewConsoleLogger("info")

	client := transport.NewRedisClient(*redisAddr, "", 0)
	defer client.Close()

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	symbols := strings.Split(*instruments, ",")
	log.Info().Strs("instruments", symbols).Str("channel", *channel).Msg("signal generator started")

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	var seq uint64
	percentile := 0.5
	rate := 0.00005
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("signal generator stopped")
			return
		case ts := <-ticker.C:
			seq++
			// Drift the synthetic values so triggers eventually qualify.
			percentile += 0.02
			if percentile > 0.99 {
				percentile = 0.5
			}
			rate += 0.00001
			if rate > 0.0005 {
				rate = 0.00005
			}
			for _, instrument := range symbols {
				instrument = strings.TrimSpace(instrument)
				if instrument == "" {
					continue
				}
				batch := []sig.Signal{
					{
						Key:      sig.Key{Kind: sig.KindAdaptiveSpreadDeviation, Instrument: instrument},
						Sequence: seq,
						Ts:       ts,
						Payload:  sig.SpreadDeviation{Exchange: 1, Percentile: percentile, Current: 0.002, Threshold: 0.8},
					},
					{
						Key:      sig.Key{Kind: sig.KindFixedSpreadDeviation, Instrument: instrument},
						Sequence: seq,
						Ts:       ts,
						Payload:  sig.SpreadDeviation{Exchange: 1, Percentile: percentile, Current: 0.001, Threshold: 0.001},
					},
					{
						Key:      sig.Key{Kind: sig.KindFundingRateDirection, Instrument: instrument},
						Sequence: seq,
						Ts:       ts,
						Payload:  sig.FundingRate{Exchange: 1, Rate: rate, Direction: sig.FundingPositive},
					},
				}
				for _, s := range batch {
					frame, err := transport.EncodeSignal(s)
					if err != nil {
						log.Error().Err(err).Msg("encode frame")
						continue
					}
					if err := client.Publish(ctx, *channel, frame).Err(); err != nil {
						log.Warn().Err(err).Msg("publish frame")
					}
				}
			}
			if seq%20 == 0 {
				log.Info().Uint64("seq", seq).Float64("percentile", percentile).Msg("published batch")
			}
		}
	}
}
