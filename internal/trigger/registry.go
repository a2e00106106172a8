package trigger

import (
	"fmt"

	"github.com/fangwater/crypto-trade/internal/signal"
)

// Registry maps each signal key to the triggers depending on it. It is built
// once at startup from static configuration and immutable afterwards.
type Registry struct {
	triggers []*Trigger
	byKey    map[signal.Key][]*Trigger
	byID     map[string]*Trigger
}

// NewRegistry validates the specs and builds the reverse index. Any invalid
// spec is an unrecoverable configuration error: the caller must abort startup.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{
		byKey: make(map[signal.Key][]*Trigger),
		byID:  make(map[string]*Trigger),
	}
	for _, spec := range specs {
		tr, err := newTrigger(spec)
		if err != nil {
			return nil, err
		}
		if _, exists := r.byID[tr.ID]; exists {
			return nil, fmt.Errorf("duplicate trigger id %q", tr.ID)
		}
		r.triggers = append(r.triggers, tr)
		r.byID[tr.ID] = tr
		for _, key := range tr.deps {
			r.byKey[key] = append(r.byKey[key], tr)
		}
	}
	return r, nil
}

// TriggersFor returns the triggers depending on key, in registration order.
// The stable order makes tie-breaking in evaluation and emission deterministic.
func (r *Registry) TriggersFor(key signal.Key) []*Trigger {
	return r.byKey[key]
}

// Get looks a trigger up by identity.
func (r *Registry) Get(id string) (*Trigger, bool) {
	tr, ok := r.byID[id]
	return tr, ok
}

// Triggers returns every registered trigger in registration order.
func (r *Registry) Triggers() []*Trigger {
	return r.triggers
}

// Len reports how many triggers are registered.
func (r *Registry) Len() int {
	return len(r.triggers)
}
