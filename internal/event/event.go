// Package event defines the outbound instructions produced by fired triggers
// and consumed by the downstream risk/order processor.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fangwater/crypto-trade/internal/signal"
)

// Kind enumerates the output event classes.
type Kind int

const (
	Trading Kind = iota
	Hedge
	Control
	Alert
)

// String names the kind for logs, metric labels, and the wire envelope.
func (k Kind) String() string {
	switch k {
	case Trading:
		return "trading"
	case Hedge:
		return "hedge"
	case Control:
		return "control"
	case Alert:
		return "alert"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind by name; the downstream envelope contract
// uses the string form.
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Side enumerates order directions carried by event payloads.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Event is a single output unit. It is immutable after creation: the engine
// builds it, the emitter orders it, the publisher ships it exactly once.
type Event struct {
	Kind           Kind      `json:"kind"`
	Priority       int       `json:"priority"`
	CreatedAt      time.Time `json:"created_at"`
	IdempotencyKey uuid.UUID `json:"idempotency_key"`
	Payload        Payload   `json:"payload"`
}

// Payload narrows the set of types an Event may carry to the fixed catalog.
type Payload interface{ payload() }

// OpenPosition asks the processor to open a position (trading kind).
type OpenPosition struct {
	Instrument string  `json:"instrument"`
	Exchange   uint32  `json:"exchange"`
	Side       Side    `json:"side"`
	Quantity   float64 `json:"quantity"`
	OrderType  string  `json:"order_type"`
	Reason     string  `json:"reason"`
}

// ClosePosition asks the processor to unwind a position (trading kind).
type ClosePosition struct {
	Instrument string  `json:"instrument"`
	Exchange   uint32  `json:"exchange"`
	Side       Side    `json:"side"`
	Quantity   float64 `json:"quantity"`
	Reason     string  `json:"reason"`
}

// HedgePosition asks the processor to rebalance the hedge leg (hedge kind).
type HedgePosition struct {
	Instrument      string  `json:"instrument"`
	PrimaryExchange uint32  `json:"primary_exchange"`
	HedgeExchange   uint32  `json:"hedge_exchange"`
	Side            Side    `json:"side"`
	Quantity        float64 `json:"quantity"`
	Reason          string  `json:"reason"`
}

// CancelOrder asks the processor to pull a resting order (control kind).
type CancelOrder struct {
	OrderID    string `json:"order_id"`
	Instrument string `json:"instrument"`
	Exchange   uint32 `json:"exchange"`
	Reason     string `json:"reason"`
}

// ModifyOrder asks the processor to amend a resting order (control kind).
type ModifyOrder struct {
	OrderID     string   `json:"order_id"`
	Instrument  string   `json:"instrument"`
	Exchange    uint32   `json:"exchange"`
	NewPrice    *float64 `json:"new_price,omitempty"`
	NewQuantity *float64 `json:"new_quantity,omitempty"`
	Reason      string   `json:"reason"`
}

// RiskAlert notifies operators of a critical risk condition (alert kind).
type RiskAlert struct {
	Instrument string           `json:"instrument"`
	Exchange   uint32           `json:"exchange"`
	Level      signal.RiskLevel `json:"level"`
	Rate       float64          `json:"rate"`
	Reason     string           `json:"reason"`
}

func (OpenPosition) payload()  {}
func (ClosePosition) payload() {}
func (HedgePosition) payload() {}
func (CancelOrder) payload()   {}
func (ModifyOrder) payload()   {}
func (RiskAlert) payload()     {}

// idempotencyNamespace seeds the deterministic key derivation. Changing it
// would break downstream de-duplication across deploys, so it is fixed.
var idempotencyNamespace = uuid.MustParse("7d4a3f52-9c1e-4b8a-a6d0-2f5e8c913b47")

// NewIdempotencyKey derives a stable identifier from the trigger identity,
// the triggering signal, and a facet discriminating multiple events produced
// by one evaluation. Re-evaluating the same cause yields the same key.
func NewIdempotencyKey(triggerID string, key signal.Key, sequence uint64, facet string) uuid.UUID {
	name := fmt.Sprintf("%s|%s|%d|%s", triggerID, key, sequence, facet)
	return uuid.NewSHA1(idempotencyNamespace, []byte(name))
}
