package store

import (
	"testing"
	"time"

	"github.com/fangwater/crypto-trade/internal/signal"
)

func spreadSignal(instrument string, seq uint64, percentile float64) signal.Signal {
	return signal.Signal{
		Key:      signal.Key{Kind: signal.KindAdaptiveSpreadDeviation, Instrument: instrument},
		Sequence: seq,
		Ts:       time.Now(),
		Payload:  signal.SpreadDeviation{Exchange: 1, Percentile: percentile},
	}
}

func TestUpdateAppliesNewKey(t *testing.T) {
	st := New()
	if outcome := st.Update(spreadSignal("BTCUSDT", 1, 0.5)); outcome != Applied {
		t.Fatalf("expected Applied for first update, got %s", outcome)
	}
	if st.Len() != 1 {
		t.Fatalf("expected 1 key, got %d", st.Len())
	}
}

func TestUpdateRejectsStaleAfterNewer(t *testing.T) {
	st := New()
	newer := spreadSignal("BTCUSDT", 5, 0.9)
	older := spreadSignal("BTCUSDT", 2, 0.1)

	if outcome := st.Update(newer); outcome != Applied {
		t.Fatalf("expected Applied, got %s", outcome)
	}
	if outcome := st.Update(older); outcome != StaleRejected {
		t.Fatalf("expected StaleRejected, got %s", outcome)
	}

	got, ok := st.Get(newer.Key)
	if !ok {
		t.Fatalf("expected stored signal")
	}
	if got.Sequence != 5 {
		t.Fatalf("store should still hold seq 5, got %d", got.Sequence)
	}
	if got.Payload.(signal.SpreadDeviation).Percentile != 0.9 {
		t.Fatalf("stale rejection must have no side effects")
	}
}

func TestUpdateRejectsDuplicate(t *testing.T) {
	st := New()
	first := spreadSignal("ETHUSDT", 3, 0.4)
	dup := spreadSignal("ETHUSDT", 3, 0.7)

	if outcome := st.Update(first); outcome != Applied {
		t.Fatalf("expected Applied, got %s", outcome)
	}
	if outcome := st.Update(dup); outcome != DuplicateRejected {
		t.Fatalf("expected DuplicateRejected, got %s", outcome)
	}

	got, _ := st.Get(first.Key)
	if got.Payload.(signal.SpreadDeviation).Percentile != 0.4 {
		t.Fatalf("duplicate rejection must have no side effects")
	}
}

func TestGetMissingKey(t *testing.T) {
	st := New()
	if _, ok := st.Get(signal.Key{Kind: signal.KindFundingRateRisk, Instrument: "BTCUSDT"}); ok {
		t.Fatalf("expected miss for never-observed key")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	st := New()
	st.Update(spreadSignal("BTCUSDT", 10, 0.9))
	if outcome := st.Update(spreadSignal("ETHUSDT", 1, 0.2)); outcome != Applied {
		t.Fatalf("sequence gating must be per key, got %s", outcome)
	}
}
