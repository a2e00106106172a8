package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fangwater/crypto-trade/internal/emit"
	"github.com/fangwater/crypto-trade/internal/event"
	"github.com/fangwater/crypto-trade/internal/signal"
	"github.com/fangwater/crypto-trade/internal/store"
	"github.com/fangwater/crypto-trade/internal/trigger"
)

type stubPublisher struct {
	published []event.Event
	fail      bool
}

func (p *stubPublisher) Publish(_ context.Context, ev event.Event) error {
	if p.fail {
		return errors.New("transport unavailable")
	}
	p.published = append(p.published, ev)
	return nil
}

type countingRecorder struct {
	recorded []event.Event
}

func (r *countingRecorder) Record(ev event.Event) {
	r.recorded = append(r.recorded, ev)
}

func newTestDispatcher(t *testing.T, pub Publisher, rec Recorder) (*Dispatcher, *store.SignalStore) {
	t.Helper()
	registry, err := trigger.NewRegistry([]trigger.Spec{
		{ID: "mt-btc", Kind: "momentum", Instrument: "BTCUSDT", Priority: 10, CooldownSeconds: 30},
		{ID: "close-btc", Kind: "close", Instrument: "BTCUSDT", Priority: 30},
	})
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	st := store.New()
	engine := trigger.NewEngine(st, nil, zerolog.Nop())
	emitter := emit.New(16)
	opts := []Option{}
	if rec != nil {
		opts = append(opts, WithRecorder(rec))
	}
	d := New(st, registry, engine, emitter, pub, nil, zerolog.Nop(), opts...)
	return d, st
}

func spread(seq uint64, percentile float64) signal.Signal {
	return signal.Signal{
		Key:      signal.Key{Kind: signal.KindAdaptiveSpreadDeviation, Instrument: "BTCUSDT"},
		Sequence: seq,
		Ts:       time.Now(),
		Payload:  signal.SpreadDeviation{Exchange: 1, Percentile: percentile, Current: 0.002},
	}
}

func funding(seq uint64) signal.Signal {
	return signal.Signal{
		Key:      signal.Key{Kind: signal.KindFundingRateDirection, Instrument: "BTCUSDT"},
		Sequence: seq,
		Ts:       time.Now(),
		Payload:  signal.FundingRate{Exchange: 1, Rate: 0.0003, Direction: signal.FundingPositive},
	}
}

func risk(seq uint64, level signal.RiskLevel) signal.Signal {
	return signal.Signal{
		Key:      signal.Key{Kind: signal.KindFundingRateRisk, Instrument: "BTCUSDT"},
		Sequence: seq,
		Ts:       time.Now(),
		Payload:  signal.FundingRisk{Exchange: 1, Level: level, Rate: 0.0004, PositionCost: 100},
	}
}

func TestProcessFiresStrategyOnQualifyingUpdate(t *testing.T) {
	pub := &stubPublisher{}
	d, _ := newTestDispatcher(t, pub, nil)
	ctx := context.Background()

	d.Process(ctx, funding(1))
	if len(pub.published) != 0 {
		t.Fatalf("funding alone must not fire (spread dependency unmet)")
	}

	d.Process(ctx, spread(1, 0.9))
	if len(pub.published) != 1 {
		t.Fatalf("expected exactly one trading event, got %d", len(pub.published))
	}
	if pub.published[0].Priority != 10 {
		t.Fatalf("event priority must match trigger priority, got %d", pub.published[0].Priority)
	}
}

func TestDuplicateDeliveryProducesNoSecondEvent(t *testing.T) {
	pub := &stubPublisher{}
	d, _ := newTestDispatcher(t, pub, nil)
	ctx := context.Background()

	d.Process(ctx, funding(1))
	d.Process(ctx, spread(1, 0.9))
	if len(pub.published) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.published))
	}
	firstKey := pub.published[0].IdempotencyKey

	// Redelivery of the same sequence: the store rejects it, no evaluation runs.
	d.Process(ctx, spread(1, 0.9))
	if len(pub.published) != 1 {
		t.Fatalf("duplicate delivery must not produce more events, got %d", len(pub.published))
	}
	for _, ev := range pub.published[1:] {
		if ev.IdempotencyKey == firstKey {
			t.Fatalf("no second event may reuse a fired idempotency key")
		}
	}
}

func TestStaleDeliveryProducesNoEvent(t *testing.T) {
	pub := &stubPublisher{}
	d, st := newTestDispatcher(t, pub, nil)
	ctx := context.Background()

	d.Process(ctx, funding(1))
	d.Process(ctx, spread(5, 0.9))
	published := len(pub.published)

	d.Process(ctx, spread(3, 0.99))
	if len(pub.published) != published {
		t.Fatalf("stale delivery must not trigger evaluation")
	}
	stored, _ := st.Get(signal.Key{Kind: signal.KindAdaptiveSpreadDeviation, Instrument: "BTCUSDT"})
	if stored.Sequence != 5 {
		t.Fatalf("store must keep the newer signal, got seq %d", stored.Sequence)
	}
}

func TestCloseFiresWhileStrategyCoolsDown(t *testing.T) {
	pub := &stubPublisher{}
	d, _ := newTestDispatcher(t, pub, nil)
	ctx := context.Background()

	d.Process(ctx, funding(1))
	d.Process(ctx, spread(1, 0.9))
	if len(pub.published) != 1 {
		t.Fatalf("expected strategy fire first, got %d events", len(pub.published))
	}

	// Strategy is inside its 30s cooldown; a risk breach must still close.
	d.Process(ctx, risk(1, signal.RiskHigh))
	if len(pub.published) != 2 {
		t.Fatalf("close trigger must not be throttled, got %d events", len(pub.published))
	}
	if _, ok := pub.published[1].Payload.(event.ClosePosition); !ok {
		t.Fatalf("expected ClosePosition, got %T", pub.published[1].Payload)
	}

	// And the strategy itself stays quiet on further spread updates.
	d.Process(ctx, spread(2, 0.95))
	if len(pub.published) != 2 {
		t.Fatalf("strategy must stay in cooldown, got %d events", len(pub.published))
	}
}

func TestPublishFailureKeepsEventsQueued(t *testing.T) {
	pub := &stubPublisher{fail: true}
	d, _ := newTestDispatcher(t, pub, nil)
	ctx := context.Background()

	d.Process(ctx, funding(1))
	d.Process(ctx, spread(1, 0.9))
	if len(pub.published) != 0 {
		t.Fatalf("nothing should publish while the transport is down")
	}

	// Transport recovers; the queued event goes out on the next cycle.
	pub.fail = false
	d.Process(ctx, risk(1, signal.RiskCritical))
	if len(pub.published) != 3 {
		t.Fatalf("expected queued open plus close and alert, got %d", len(pub.published))
	}
	// Higher-priority close (30) must drain ahead of the queued open (10).
	if pub.published[0].Priority < pub.published[1].Priority {
		t.Fatalf("drain order must be priority-descending")
	}
}

func TestRecorderSeesPublishedEvents(t *testing.T) {
	pub := &stubPublisher{}
	rec := &countingRecorder{}
	d, _ := newTestDispatcher(t, pub, rec)
	ctx := context.Background()

	d.Process(ctx, funding(1))
	d.Process(ctx, spread(1, 0.9))
	if len(rec.recorded) != len(pub.published) {
		t.Fatalf("journal must see every published event: %d vs %d", len(rec.recorded), len(pub.published))
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	pub := &stubPublisher{}
	registry, err := trigger.NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	st := store.New()
	engine := trigger.NewEngine(st, nil, zerolog.Nop())
	in := make(chan signal.Signal)
	d := New(st, registry, engine, emit.New(4), pub, in, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("dispatcher did not stop on cancel")
	}
}
