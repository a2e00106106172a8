package trigger

import (
	"fmt"
	"math"
	"time"

	"github.com/fangwater/crypto-trade/internal/event"
	"github.com/fangwater/crypto-trade/internal/signal"
)

// evalHedge fires when the adaptive and fixed spread measures of the
// arbitrage leg diverge beyond the imbalance threshold, meaning one leg has
// drifted and needs rebalancing.
func (e *Engine) evalHedge(tr *Trigger, inbound signal.Signal, now time.Time) []event.Event {
	adaptiveSig, ok := e.fresh(tr, tr.deps[0], now)
	if !ok {
		return nil
	}
	fixedSig, ok := e.fresh(tr, tr.deps[1], now)
	if !ok {
		return nil
	}
	adaptive, ok := adaptiveSig.Payload.(signal.SpreadDeviation)
	if !ok {
		return nil
	}
	fixed, ok := fixedSig.Payload.(signal.SpreadDeviation)
	if !ok {
		return nil
	}

	gap := adaptive.Current - fixed.Current
	if math.Abs(gap) <= tr.imbalance {
		return nil
	}

	side := event.Buy
	if gap > 0 {
		side = event.Sell
	}

	tr.lastFired = now
	reason := fmt.Sprintf("spread gap %.6f exceeds %.6f", gap, tr.imbalance)
	return []event.Event{{
		Kind:           event.Hedge,
		Priority:       tr.Priority,
		CreatedAt:      now,
		IdempotencyKey: event.NewIdempotencyKey(tr.ID, inbound.Key, inbound.Sequence, "hedge"),
		Payload: event.HedgePosition{
			Instrument:      tr.Instrument,
			PrimaryExchange: adaptive.Exchange,
			HedgeExchange:   tr.hedgeExchange,
			Side:            side,
			Quantity:        tr.Quantity,
			Reason:          reason,
		},
	}}
}
