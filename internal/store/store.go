// Package store holds the authoritative latest value of every tracked signal.
package store

import (
	"github.com/fangwater/crypto-trade/internal/signal"
)

// Outcome reports what Update did with a candidate signal.
type Outcome int

const (
	// Applied means the candidate replaced the stored value.
	Applied Outcome = iota
	// StaleRejected means the candidate's sequence was behind the stored one.
	StaleRejected
	// DuplicateRejected means the candidate repeated the stored sequence.
	DuplicateRejected
)

// String names the outcome for logs and metric labels.
func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case StaleRejected:
		return "stale"
	case DuplicateRejected:
		return "duplicate"
	default:
		return "unknown"
	}
}

// SignalStore keeps the newest signal per key, gated by sequence number.
// It is owned exclusively by the dispatcher loop and performs no I/O.
type SignalStore struct {
	latest map[signal.Key]signal.Signal
}

// New returns an empty store.
func New() *SignalStore {
	return &SignalStore{latest: make(map[signal.Key]signal.Signal)}
}

// Update applies the candidate only if its sequence strictly exceeds the
// stored one (or the key was never seen). Rejections have no side effects.
func (s *SignalStore) Update(candidate signal.Signal) Outcome {
	current, ok := s.latest[candidate.Key]
	if ok {
		if candidate.Sequence == current.Sequence {
			return DuplicateRejected
		}
		if candidate.Sequence < current.Sequence {
			return StaleRejected
		}
	}
	s.latest[candidate.Key] = candidate
	return Applied
}

// Get returns the stored signal for key, or false if the key was never
// observed. Triggers treat a miss as "dependency not ready".
func (s *SignalStore) Get(key signal.Key) (signal.Signal, bool) {
	sig, ok := s.latest[key]
	return sig, ok
}

// Len reports how many keys currently hold a value.
func (s *SignalStore) Len() int {
	return len(s.latest)
}
