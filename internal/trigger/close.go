package trigger

import (
	"fmt"
	"time"

	"github.com/fangwater/crypto-trade/internal/event"
	"github.com/fangwater/crypto-trade/internal/signal"
)

// evalClose unwinds positions when funding risk crosses the configured level
// or cost bound, and cancels orders the trading engine rejected. No cooldown
// applies on either path.
func (e *Engine) evalClose(tr *Trigger, inbound signal.Signal, now time.Time) []event.Event {
	if inbound.Key.Kind == signal.KindOrderResponse {
		return e.evalRejectedOrder(tr, inbound, now)
	}

	riskSig, ok := e.fresh(tr, tr.deps[0], now)
	if !ok {
		return nil
	}
	risk, ok := riskSig.Payload.(signal.FundingRisk)
	if !ok {
		return nil
	}

	levelHit := risk.Level >= tr.riskLevel
	costHit := tr.maxPositionCost > 0 && risk.PositionCost > tr.maxPositionCost
	if !levelHit && !costHit {
		return nil
	}

	// Positive funding implies the position is short the perp leg; closing
	// buys it back.
	side := event.Sell
	if risk.Rate > 0 {
		side = event.Buy
	}

	reason := fmt.Sprintf("funding risk %s, cost %.2f", risk.Level, risk.PositionCost)
	tr.lastFired = now
	events := []event.Event{{
		Kind:           event.Trading,
		Priority:       tr.Priority,
		CreatedAt:      now,
		IdempotencyKey: event.NewIdempotencyKey(tr.ID, inbound.Key, inbound.Sequence, "close"),
		Payload: event.ClosePosition{
			Instrument: tr.Instrument,
			Exchange:   risk.Exchange,
			Side:       side,
			Quantity:   tr.Quantity,
			Reason:     reason,
		},
	}}

	if risk.Level == signal.RiskCritical {
		events = append(events, event.Event{
			Kind:           event.Alert,
			Priority:       tr.Priority,
			CreatedAt:      now,
			IdempotencyKey: event.NewIdempotencyKey(tr.ID, inbound.Key, inbound.Sequence, "alert"),
			Payload: event.RiskAlert{
				Instrument: tr.Instrument,
				Exchange:   risk.Exchange,
				Level:      risk.Level,
				Rate:       risk.Rate,
				Reason:     "critical funding risk",
			},
		})
	}
	return events
}

// evalRejectedOrder turns a rejected order response into a cancel instruction
// so the processor clears any sibling orders of the failed placement.
func (e *Engine) evalRejectedOrder(tr *Trigger, inbound signal.Signal, now time.Time) []event.Event {
	respSig, ok := e.fresh(tr, tr.deps[1], now)
	if !ok {
		return nil
	}
	resp, ok := respSig.Payload.(signal.OrderResponse)
	if !ok || resp.Status != signal.OrderRejected {
		return nil
	}

	tr.lastFired = now
	return []event.Event{{
		Kind:           event.Control,
		Priority:       tr.Priority,
		CreatedAt:      now,
		IdempotencyKey: event.NewIdempotencyKey(tr.ID, inbound.Key, inbound.Sequence, "cancel"),
		Payload: event.CancelOrder{
			OrderID:    resp.OrderID,
			Instrument: tr.Instrument,
			Exchange:   resp.Exchange,
			Reason:     "order rejected by venue",
		},
	}}
}
