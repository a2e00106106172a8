// Package dispatch runs the single control loop driving the collector:
// signal in, store update, trigger evaluation, prioritized event out.
package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/fangwater/crypto-trade/internal/emit"
	"github.com/fangwater/crypto-trade/internal/event"
	"github.com/fangwater/crypto-trade/internal/metrics"
	"github.com/fangwater/crypto-trade/internal/signal"
	"github.com/fangwater/crypto-trade/internal/store"
	"github.com/fangwater/crypto-trade/internal/trigger"
)

// Publisher hands ordered events to the output transport.
type Publisher interface {
	Publish(ctx context.Context, ev event.Event) error
}

// Recorder receives a copy of every successfully published event.
type Recorder interface {
	Record(ev event.Event)
}

// Dispatcher owns the signal store, registry, engine, and emitter. Exactly
// one Run loop processes signals, so none of them need locking.
type Dispatcher struct {
	store    *store.SignalStore
	registry *trigger.Registry
	engine   *trigger.Engine
	emitter  *emit.Emitter
	pub      Publisher
	rec      Recorder
	in       <-chan signal.Signal
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures Dispatcher construction.
type Option func(*Dispatcher)

// WithRecorder attaches an event recorder such as the JSONL journal.
func WithRecorder(rec Recorder) Option {
	return func(d *Dispatcher) { d.rec = rec }
}

// WithClock overrides the time source; tests use it to pin evaluation time.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// New wires a dispatcher over its collaborators.
func New(
	st *store.SignalStore,
	registry *trigger.Registry,
	engine *trigger.Engine,
	emitter *emit.Emitter,
	pub Publisher,
	in <-chan signal.Signal,
	log zerolog.Logger,
	opts ...Option,
) *Dispatcher {
	d := &Dispatcher{
		store:    st,
		registry: registry,
		engine:   engine,
		emitter:  emitter,
		pub:      pub,
		in:       in,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run pulls signals off the merged inbound channel until the context is
// canceled. Each iteration is fully sequential: no two signals are ever
// evaluated concurrently.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Info().Int("triggers", d.registry.Len()).Msg("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("dispatcher stopped")
			return ctx.Err()
		case sig := <-d.in:
			d.Process(ctx, sig)
		}
	}
}

// Process handles one decoded signal end to end.
func (d *Dispatcher) Process(ctx context.Context, sig signal.Signal) {
	now := d.now()
	metrics.SignalsTotal.WithLabelValues(sig.Key.Kind.String()).Inc()

	outcome := d.store.Update(sig)
	if outcome != store.Applied {
		metrics.UpdatesRejectedTotal.WithLabelValues(outcome.String()).Inc()
		d.log.Debug().Str("key", sig.Key.String()).Uint64("seq", sig.Sequence).Str("outcome", outcome.String()).Msg("update rejected")
		return
	}

	// A trigger may appear under several keys; evaluate it at most once per
	// dispatch cycle.
	seen := make(map[string]struct{})
	for _, tr := range d.registry.TriggersFor(sig.Key) {
		if _, dup := seen[tr.ID]; dup {
			continue
		}
		seen[tr.ID] = struct{}{}
		for _, ev := range d.engine.Evaluate(tr, sig, now) {
			d.emitter.Enqueue(ev)
			d.log.Debug().Str("trigger", tr.ID).Str("kind", ev.Kind.String()).Int("priority", ev.Priority).Msg("trigger fired")
		}
	}

	d.Flush(ctx)
}

// Flush publishes queued events in priority order. A publish failure leaves
// the event (and everything behind it) queued for the next cycle; the
// emitter's bound decides what survives sustained unavailability.
func (d *Dispatcher) Flush(ctx context.Context) {
	for {
		ev, ok := d.emitter.Peek()
		if !ok {
			return
		}
		if err := d.pub.Publish(ctx, ev); err != nil {
			metrics.PublishFailuresTotal.Inc()
			d.log.Warn().Err(err).Str("kind", ev.Kind.String()).Msg("publish failed, keeping event queued")
			return
		}
		d.emitter.Pop()
		metrics.EventsEmittedTotal.WithLabelValues(ev.Kind.String()).Inc()
		if d.rec != nil {
			d.rec.Record(ev)
		}
	}
}
