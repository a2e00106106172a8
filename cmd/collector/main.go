// Binary collector ingests signals from the primary and fallback buses,
// evaluates the trigger registry, and publishes prioritized trading events.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/fangwater/crypto-trade/internal/config"
	"github.com/fangwater/crypto-trade/internal/dispatch"
	"github.com/fangwater/crypto-trade/internal/emit"
	"github.com/fangwater/crypto-trade/internal/journal"
	"github.com/fangwater/crypto-trade/internal/metrics"
	sig "github.com/fangwater/crypto-trade/internal/signal"
	"github.com/fangwater/crypto-trade/internal/store"
	"github.com/fangwater/crypto-trade/internal/transport"
	"github.com/fangwater/crypto-trade/internal/trigger"
	"github.com/fangwater/crypto-trade/internal/util"
)

func main() {
	_ = godotenv.Load() // best-effort

	configPath := flag.String("config", "internal/config/config.yaml", "path to YAML config")
	flag.Parse()

	log := util.NewLogger("info")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	log = newLogger(cfg)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	registry, err := trigger.NewRegistry(toSpecs(cfg.Triggers))
	if err != nil {
		log.Fatal().Err(err).Msg("build trigger registry")
	}
	maxAge, err := toMaxAge(cfg.SignalMaxAgeMS)
	if err != nil {
		log.Fatal().Err(err).Msg("parse signal max ages")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	client := transport.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer client.Close()

	signals := make(chan sig.Signal, 1024)

	redisBus := transport.NewRedisBus(client, cfg.Redis.Channels, log)
	go func() {
		if err := redisBus.Run(ctx, signals); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("redis bus stopped")
			cancel()
		}
	}()

	if cfg.Websocket.Enabled {
		wsBus := transport.NewWSBus(cfg.Websocket.URL, log)
		go func() {
			if err := wsBus.Run(ctx, signals); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("websocket bus stopped")
				cancel()
			}
		}()
	}

	st := store.New()
	engine := trigger.NewEngine(st, maxAge, log)
	emitter := emit.New(cfg.Emitter.MaxQueue)
	publisher := transport.NewEventPublisher(client, cfg.Output.Channel, log)

	opts := []dispatch.Option{}
	if cfg.Output.JournalPath != "" {
		jnl, err := journal.New(cfg.Output.JournalPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open event journal")
		}
		defer jnl.Close()
		opts = append(opts, dispatch.WithRecorder(jnl))
	}

	dispatcher := dispatch.New(st, registry, engine, emitter, publisher, signals, log, opts...)
	log.Info().Str("env", cfg.App.Env).Int("triggers", registry.Len()).Msg("signal collector started")
	if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("dispatcher exited")
	}
	log.Info().Msg("shutting down")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.App.Env == "dev" {
		return util.NewConsoleLogger(cfg.App.LogLevel)
	}
	return util.NewLogger(cfg.App.LogLevel)
}

func toSpecs(triggers []config.Trigger) []trigger.Spec {
	specs := make([]trigger.Spec, len(triggers))
	for i, t := range triggers {
		specs[i] = trigger.Spec{
			ID:               t.ID,
			Kind:             t.Kind,
			Instrument:       t.Instrument,
			Priority:         t.Priority,
			CooldownSeconds:  t.CooldownSeconds,
			Quantity:         t.Quantity,
			SpreadPercentile: t.SpreadPercentile,
			FundingRate:      t.FundingRate,
			RiskLevel:        t.RiskLevel,
			MaxPositionCost:  t.MaxPositionCost,
			Imbalance:        t.Imbalance,
			HedgeExchange:    t.HedgeExchange,
		}
	}
	return specs
}

func toMaxAge(byName map[string]int) (map[sig.Kind]time.Duration, error) {
	maxAge := make(map[sig.Kind]time.Duration, len(byName))
	for name, ms := range byName {
		kind, err := sig.ParseKind(name)
		if err != nil {
			return nil, err
		}
		maxAge[kind] = time.Duration(ms) * time.Millisecond
	}
	return maxAge, nil
}
