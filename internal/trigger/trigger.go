// Package trigger contains the configured rules that inspect signals and
// produce trading events.
package trigger

import (
	"fmt"
	"strings"
	"time"

	"github.com/fangwater/crypto-trade/internal/signal"
)

// Kind enumerates the closed catalog of trigger algorithms.
type Kind int

const (
	// Momentum opens a position when spread deviation and funding direction
	// jointly qualify. Subject to cooldown.
	Momentum Kind = iota
	// Close unwinds a position on funding risk or cancels rejected orders.
	// Never throttled: risk closes must not wait out a cooldown.
	Close
	// HedgeRebalance fires when the two spread measures of an arbitrage leg
	// diverge. Runs at a higher priority than momentum triggers.
	HedgeRebalance
)

// String names the kind for logs and config parsing.
func (k Kind) String() string {
	switch k {
	case Momentum:
		return "momentum"
	case Close:
		return "close"
	case HedgeRebalance:
		return "hedge"
	default:
		return "unknown"
	}
}

// ParseKind maps a config name back to its Kind value.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "momentum":
		return Momentum, nil
	case "close":
		return Close, nil
	case "hedge":
		return HedgeRebalance, nil
	default:
		return 0, fmt.Errorf("unknown trigger kind %q", s)
	}
}

// Spec is the static configuration for one trigger instance. Zero-valued
// thresholds fall back to package defaults; MaxPositionCost of zero disables
// the cost path of the close trigger.
type Spec struct {
	ID               string
	Kind             string
	Instrument       string
	Priority         int
	CooldownSeconds  int
	Quantity         float64
	SpreadPercentile float64
	FundingRate      float64
	RiskLevel        string
	MaxPositionCost  float64
	Imbalance        float64
	HedgeExchange    uint32
}

const (
	defaultSpreadPercentile = 0.8
	defaultFundingRate      = 0.0001
	defaultImbalance        = 0.001
	defaultQuantity         = 100.0
)

// Trigger is a registered trigger instance. Its private state (lastFired) is
// mutated only by the evaluation engine, never concurrently.
type Trigger struct {
	ID         string
	Kind       Kind
	Instrument string
	Priority   int
	Cooldown   time.Duration
	Quantity   float64

	spreadPercentile float64
	fundingRate      float64
	riskLevel        signal.RiskLevel
	maxPositionCost  float64
	imbalance        float64
	hedgeExchange    uint32

	deps      []signal.Key
	lastFired time.Time
}

// newTrigger validates a spec and derives the trigger's signal dependencies.
func newTrigger(spec Spec) (*Trigger, error) {
	if strings.TrimSpace(spec.ID) == "" {
		return nil, fmt.Errorf("trigger without id")
	}
	if strings.TrimSpace(spec.Instrument) == "" {
		return nil, fmt.Errorf("trigger %s: missing instrument", spec.ID)
	}
	kind, err := ParseKind(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("trigger %s: %w", spec.ID, err)
	}
	if spec.CooldownSeconds < 0 {
		return nil, fmt.Errorf("trigger %s: negative cooldown", spec.ID)
	}

	tr := &Trigger{
		ID:               spec.ID,
		Kind:             kind,
		Instrument:       spec.Instrument,
		Priority:         spec.Priority,
		Cooldown:         time.Duration(spec.CooldownSeconds) * time.Second,
		Quantity:         spec.Quantity,
		spreadPercentile: spec.SpreadPercentile,
		fundingRate:      spec.FundingRate,
		riskLevel:        signal.RiskHigh,
		maxPositionCost:  spec.MaxPositionCost,
		imbalance:        spec.Imbalance,
		hedgeExchange:    spec.HedgeExchange,
	}
	if tr.Quantity <= 0 {
		tr.Quantity = defaultQuantity
	}
	if tr.spreadPercentile <= 0 {
		tr.spreadPercentile = defaultSpreadPercentile
	}
	if tr.fundingRate <= 0 {
		tr.fundingRate = defaultFundingRate
	}
	if tr.imbalance <= 0 {
		tr.imbalance = defaultImbalance
	}
	if spec.RiskLevel != "" {
		level, err := signal.ParseRiskLevel(spec.RiskLevel)
		if err != nil {
			return nil, fmt.Errorf("trigger %s: %w", spec.ID, err)
		}
		tr.riskLevel = level
	}

	switch kind {
	case Momentum:
		tr.deps = []signal.Key{
			{Kind: signal.KindAdaptiveSpreadDeviation, Instrument: tr.Instrument},
			{Kind: signal.KindFundingRateDirection, Instrument: tr.Instrument},
		}
	case Close:
		tr.deps = []signal.Key{
			{Kind: signal.KindFundingRateRisk, Instrument: tr.Instrument},
			{Kind: signal.KindOrderResponse, Instrument: tr.Instrument},
		}
	case HedgeRebalance:
		tr.deps = []signal.Key{
			{Kind: signal.KindAdaptiveSpreadDeviation, Instrument: tr.Instrument},
			{Kind: signal.KindFixedSpreadDeviation, Instrument: tr.Instrument},
		}
	}
	return tr, nil
}

// Deps returns the ordered signal keys this trigger depends on.
func (t *Trigger) Deps() []signal.Key {
	return t.deps
}

// LastFired reports when the trigger last produced events.
func (t *Trigger) LastFired() time.Time {
	return t.lastFired
}
