package transport

import (
	"testing"
	"time"

	"github.com/fangwater/crypto-trade/internal/signal"
)

func TestCodecRoundTrip(t *testing.T) {
	ts := time.Now().Truncate(time.Millisecond).UTC()
	signals := []signal.Signal{
		{
			Key:      signal.Key{Kind: signal.KindAdaptiveSpreadDeviation, Instrument: "BTCUSDT"},
			Sequence: 42,
			Ts:       ts,
			Payload:  signal.SpreadDeviation{Exchange: 1, Percentile: 0.91, Current: 0.0021, Threshold: 0.8},
		},
		{
			Key:      signal.Key{Kind: signal.KindFundingRateRisk, Instrument: "ETHUSDT"},
			Sequence: 7,
			Ts:       ts,
			Payload:  signal.FundingRisk{Exchange: 2, Level: signal.RiskCritical, Rate: -0.0004, PositionCost: 1234.5},
		},
		{
			Key:      signal.Key{Kind: signal.KindOrderResponse, Instrument: "BTCUSDT"},
			Sequence: 9,
			Ts:       ts,
			Payload:  signal.OrderResponse{Exchange: 1, OrderID: "ord-99", Status: signal.OrderRejected},
		},
	}

	for _, want := range signals {
		frame, err := EncodeSignal(want)
		if err != nil {
			t.Fatalf("encode %s: %v", want.Key, err)
		}
		got, err := DecodeSignal(frame)
		if err != nil {
			t.Fatalf("decode %s: %v", want.Key, err)
		}
		if got.Key != want.Key || got.Sequence != want.Sequence {
			t.Fatalf("round trip changed identity: got %+v want %+v", got, want)
		}
		if !got.Ts.Equal(want.Ts) {
			t.Fatalf("round trip changed timestamp: got %s want %s", got.Ts, want.Ts)
		}
		if got.Payload != want.Payload {
			t.Fatalf("round trip changed payload: got %+v want %+v", got.Payload, want.Payload)
		}
	}
}

func TestDecodeRejectsTruncatedFrame(t *testing.T) {
	sig := signal.Signal{
		Key:      signal.Key{Kind: signal.KindFundingRateDirection, Instrument: "BTCUSDT"},
		Sequence: 1,
		Ts:       time.Now(),
		Payload:  signal.FundingRate{Exchange: 1, Rate: 0.0001, Direction: signal.FundingPositive},
	}
	frame, err := EncodeSignal(sig)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeSignal(frame[:len(frame)-3]); err == nil {
		t.Fatalf("expected error for truncated frame")
	}
	if _, err := DecodeSignal(nil); err == nil {
		t.Fatalf("expected error for empty frame")
	}
}

func TestDecodeRejectsUnknownKindTag(t *testing.T) {
	frame := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := DecodeSignal(frame); err == nil {
		t.Fatalf("expected error for unknown kind tag")
	}
}
