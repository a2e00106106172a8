// Package transport hosts the ingest bus adapters, the output publisher, and
// the binary wire codec shared with the upstream signal producers.
package transport

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/fangwater/crypto-trade/internal/signal"
)

// Wire layout (all little-endian):
//
//	u32 kind | u64 sequence | i64 ts millis | u32 exchange |
//	u32 instrument len | instrument bytes | kind-specific payload
//
// payloads:
//
//	spread deviation: f64 percentile | f64 current | f64 threshold
//	funding direction: f64 rate | u32 direction
//	funding risk:      u32 level | f64 rate | f64 position cost
//	order response:    u32 status | u32 order id len | order id bytes

// EncodeSignal renders a signal into its wire frame.
func EncodeSignal(sig signal.Signal) ([]byte, error) {
	w := frameWriter{}
	w.u32(uint32(sig.Key.Kind))
	w.u64(sig.Sequence)
	w.i64(sig.Ts.UnixMilli())

	switch p := sig.Payload.(type) {
	case signal.SpreadDeviation:
		w.u32(p.Exchange)
		w.str(sig.Key.Instrument)
		w.f64(p.Percentile)
		w.f64(p.Current)
		w.f64(p.Threshold)
	case signal.FundingRate:
		w.u32(p.Exchange)
		w.str(sig.Key.Instrument)
		w.f64(p.Rate)
		w.u32(uint32(p.Direction))
	case signal.FundingRisk:
		w.u32(p.Exchange)
		w.str(sig.Key.Instrument)
		w.u32(uint32(p.Level))
		w.f64(p.Rate)
		w.f64(p.PositionCost)
	case signal.OrderResponse:
		w.u32(p.Exchange)
		w.str(sig.Key.Instrument)
		w.u32(uint32(p.Status))
		w.str(p.OrderID)
	default:
		return nil, fmt.Errorf("encode: unsupported payload %T", sig.Payload)
	}
	return w.buf, nil
}

// DecodeSignal parses a wire frame into a typed signal.
func DecodeSignal(frame []byte) (signal.Signal, error) {
	r := frameReader{buf: frame}
	kindTag, err := r.u32()
	if err != nil {
		return signal.Signal{}, fmt.Errorf("decode: %w", err)
	}
	kind := signal.Kind(kindTag)
	if kindTag > uint32(signal.KindOrderResponse) {
		return signal.Signal{}, fmt.Errorf("decode: unknown signal kind tag %d", kindTag)
	}

	sequence, err := r.u64()
	if err != nil {
		return signal.Signal{}, fmt.Errorf("decode: %w", err)
	}
	millis, err := r.i64()
	if err != nil {
		return signal.Signal{}, fmt.Errorf("decode: %w", err)
	}
	exchange, err := r.u32()
	if err != nil {
		return signal.Signal{}, fmt.Errorf("decode: %w", err)
	}
	instrument, err := r.str()
	if err != nil {
		return signal.Signal{}, fmt.Errorf("decode: %w", err)
	}
	if instrument == "" {
		return signal.Signal{}, fmt.Errorf("decode: empty instrument")
	}

	sig := signal.Signal{
		Key:      signal.Key{Kind: kind, Instrument: instrument},
		Sequence: sequence,
		Ts:       time.UnixMilli(millis).UTC(),
	}

	switch kind {
	case signal.KindAdaptiveSpreadDeviation, signal.KindFixedSpreadDeviation:
		percentile, err := r.f64()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode spread: %w", err)
		}
		current, err := r.f64()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode spread: %w", err)
		}
		threshold, err := r.f64()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode spread: %w", err)
		}
		sig.Payload = signal.SpreadDeviation{Exchange: exchange, Percentile: percentile, Current: current, Threshold: threshold}
	case signal.KindFundingRateDirection:
		rate, err := r.f64()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode funding: %w", err)
		}
		direction, err := r.u32()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode funding: %w", err)
		}
		if direction > uint32(signal.FundingNeutral) {
			return signal.Signal{}, fmt.Errorf("decode funding: unknown direction %d", direction)
		}
		sig.Payload = signal.FundingRate{Exchange: exchange, Rate: rate, Direction: signal.FundingDirection(direction)}
	case signal.KindFundingRateRisk:
		level, err := r.u32()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode risk: %w", err)
		}
		if level > uint32(signal.RiskCritical) {
			return signal.Signal{}, fmt.Errorf("decode risk: unknown level %d", level)
		}
		rate, err := r.f64()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode risk: %w", err)
		}
		cost, err := r.f64()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode risk: %w", err)
		}
		sig.Payload = signal.FundingRisk{Exchange: exchange, Level: signal.RiskLevel(level), Rate: rate, PositionCost: cost}
	case signal.KindOrderResponse:
		status, err := r.u32()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode order response: %w", err)
		}
		if status > uint32(signal.OrderCancelled) {
			return signal.Signal{}, fmt.Errorf("decode order response: unknown status %d", status)
		}
		orderID, err := r.str()
		if err != nil {
			return signal.Signal{}, fmt.Errorf("decode order response: %w", err)
		}
		sig.Payload = signal.OrderResponse{Exchange: exchange, OrderID: orderID, Status: signal.OrderStatus(status)}
	}
	return sig, nil
}

type frameWriter struct {
	buf []byte
}

func (w *frameWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *frameWriter) u64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *frameWriter) i64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

func (w *frameWriter) f64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}

func (w *frameWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

type frameReader struct {
	buf []byte
	off int
}

func (r *frameReader) need(n int) error {
	if len(r.buf)-r.off < n {
		return fmt.Errorf("frame truncated at offset %d (need %d bytes, have %d)", r.off, n, len(r.buf)-r.off)
	}
	return nil
}

func (r *frameReader) u32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *frameReader) u64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *frameReader) i64() (int64, error) {
	v, err := r.u64()
	return int64(v), err
}

func (r *frameReader) f64() (float64, error) {
	v, err := r.u64()
	return math.Float64frombits(v), err
}

func (r *frameReader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}
