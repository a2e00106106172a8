package trigger

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/fangwater/crypto-trade/internal/event"
	"github.com/fangwater/crypto-trade/internal/metrics"
	"github.com/fangwater/crypto-trade/internal/signal"
	"github.com/fangwater/crypto-trade/internal/store"
)

// Engine runs trigger algorithms against the signal store. Evaluation is
// synchronous, performs no I/O, and mutates only the evaluated trigger's own
// state, so it is safe inside the single dispatcher loop.
type Engine struct {
	store  *store.SignalStore
	maxAge map[signal.Kind]time.Duration
	log    zerolog.Logger
}

// NewEngine wires the engine to the store and the per-kind freshness limits.
// A kind absent from maxAge has no staleness bound.
func NewEngine(st *store.SignalStore, maxAge map[signal.Kind]time.Duration, log zerolog.Logger) *Engine {
	if maxAge == nil {
		maxAge = make(map[signal.Kind]time.Duration)
	}
	return &Engine{store: st, maxAge: maxAge, log: log}
}

// Evaluate runs the trigger's algorithm for the inbound signal update and
// returns zero or more events. Missing or stale dependencies decline the
// evaluation silently; they are never errors.
func (e *Engine) Evaluate(tr *Trigger, inbound signal.Signal, now time.Time) []event.Event {
	switch tr.Kind {
	case Momentum:
		return e.evalMomentum(tr, inbound, now)
	case Close:
		return e.evalClose(tr, inbound, now)
	case HedgeRebalance:
		return e.evalHedge(tr, inbound, now)
	default:
		return nil
	}
}

// fresh fetches a dependency, declining on a never-seen key or one whose
// value is older than the configured max age for its kind.
func (e *Engine) fresh(tr *Trigger, key signal.Key, now time.Time) (signal.Signal, bool) {
	sig, ok := e.store.Get(key)
	if !ok {
		return signal.Signal{}, false
	}
	if maxAge, bounded := e.maxAge[key.Kind]; bounded && now.Sub(sig.Ts) > maxAge {
		metrics.StalenessSkipsTotal.WithLabelValues(tr.ID).Inc()
		e.log.Debug().Str("trigger", tr.ID).Str("key", key.String()).Msg("dependency stale, skipping")
		return signal.Signal{}, false
	}
	return sig, true
}
