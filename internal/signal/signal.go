// Package signal standardizes the typed market and account signals shared
// between the ingest buses and the collector core.
package signal

import (
	"fmt"
	"strings"
	"time"
)

// Kind enumerates the tracked signal streams. Values match the wire tags
// used by the upstream signal producers.
type Kind uint32

const (
	KindAdaptiveSpreadDeviation Kind = iota
	KindFixedSpreadDeviation
	KindFundingRateDirection
	KindFundingRateRisk
	KindOrderResponse
)

var kindNames = map[Kind]string{
	KindAdaptiveSpreadDeviation: "adaptive-spread-deviation",
	KindFixedSpreadDeviation:    "fixed-spread-deviation",
	KindFundingRateDirection:    "funding-rate-direction",
	KindFundingRateRisk:         "funding-rate-risk",
	KindOrderResponse:           "order-response",
}

// String returns the canonical dashed name for the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint32(k))
}

// ParseKind maps a canonical kind name back to its Kind value.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for kind, name := range kindNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown signal kind %q", s)
}

// Key identifies a signal stream: one kind observed on one instrument.
type Key struct {
	Kind       Kind
	Instrument string
}

// String renders the key as kind@instrument, e.g. "funding-rate-direction@BTCUSDT".
func (k Key) String() string {
	return k.Kind.String() + "@" + k.Instrument
}

// Signal is the latest observed value for a Key. Sequence increases
// monotonically per key; the store rejects anything that does not.
type Signal struct {
	Key      Key
	Sequence uint64
	Ts       time.Time
	Payload  Payload
}

// Payload narrows the set of types a Signal may carry to the fixed catalog.
type Payload interface{ payload() }

// FundingDirection classifies the sign of a funding rate.
type FundingDirection uint32

const (
	FundingPositive FundingDirection = iota
	FundingNegative
	FundingNeutral
)

// RiskLevel grades funding risk severity. Ordering is meaningful: a higher
// value is a more severe condition.
type RiskLevel uint32

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = map[RiskLevel]string{
	RiskLow:      "low",
	RiskMedium:   "medium",
	RiskHigh:     "high",
	RiskCritical: "critical",
}

func (r RiskLevel) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint32(r))
}

// ParseRiskLevel maps a level name back to its RiskLevel value.
func ParseRiskLevel(s string) (RiskLevel, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for level, name := range riskNames {
		if name == s {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown risk level %q", s)
}

// OrderStatus reports the terminal state of an order echoed back by the
// trading engine.
type OrderStatus uint32

const (
	OrderFilled OrderStatus = iota
	OrderPartiallyFilled
	OrderRejected
	OrderCancelled
)

// SpreadDeviation carries both adaptive and fixed spread measurements; the
// Key's kind tells which threshold semantics apply.
type SpreadDeviation struct {
	Exchange   uint32
	Percentile float64
	Current    float64
	Threshold  float64
}

// FundingRate reports the latest funding rate and its direction.
type FundingRate struct {
	Exchange  uint32
	Rate      float64
	Direction FundingDirection
}

// FundingRisk reports real-time funding risk for an open position.
type FundingRisk struct {
	Exchange     uint32
	Level        RiskLevel
	Rate         float64
	PositionCost float64
}

// OrderResponse echoes the trading engine's answer to a submitted order.
type OrderResponse struct {
	Exchange uint32
	OrderID  string
	Status   OrderStatus
}

func (SpreadDeviation) payload() {}
func (FundingRate) payload()     {}
func (FundingRisk) payload()     {}
func (OrderResponse) payload()   {}
