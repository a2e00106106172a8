package trigger

import (
	"fmt"
	"math"
	"time"

	"github.com/fangwater/crypto-trade/internal/event"
	"github.com/fangwater/crypto-trade/internal/metrics"
	"github.com/fangwater/crypto-trade/internal/signal"
)

// evalMomentum opens a position when the adaptive spread percentile and the
// funding rate jointly exceed their thresholds. Positive funding means longs
// pay shorts, so the entry sells; negative funding buys.
func (e *Engine) evalMomentum(tr *Trigger, inbound signal.Signal, now time.Time) []event.Event {
	if tr.Cooldown > 0 && !tr.lastFired.IsZero() && now.Sub(tr.lastFired) < tr.Cooldown {
		metrics.CooldownSkipsTotal.WithLabelValues(tr.ID).Inc()
		return nil
	}

	spreadSig, ok := e.fresh(tr, tr.deps[0], now)
	if !ok {
		return nil
	}
	fundingSig, ok := e.fresh(tr, tr.deps[1], now)
	if !ok {
		return nil
	}
	spread, ok := spreadSig.Payload.(signal.SpreadDeviation)
	if !ok {
		return nil
	}
	funding, ok := fundingSig.Payload.(signal.FundingRate)
	if !ok {
		return nil
	}

	if spread.Percentile <= tr.spreadPercentile || math.Abs(funding.Rate) <= tr.fundingRate {
		return nil
	}

	var side event.Side
	switch funding.Direction {
	case signal.FundingPositive:
		side = event.Sell
	case signal.FundingNegative:
		side = event.Buy
	default:
		return nil
	}

	tr.lastFired = now
	reason := fmt.Sprintf("spread percentile %.3f > %.3f, funding %.6f", spread.Percentile, tr.spreadPercentile, funding.Rate)
	return []event.Event{{
		Kind:           event.Trading,
		Priority:       tr.Priority,
		CreatedAt:      now,
		IdempotencyKey: event.NewIdempotencyKey(tr.ID, inbound.Key, inbound.Sequence, "open"),
		Payload: event.OpenPosition{
			Instrument: tr.Instrument,
			Exchange:   spread.Exchange,
			Side:       side,
			Quantity:   tr.Quantity,
			OrderType:  "market",
			Reason:     reason,
		},
	}}
}
