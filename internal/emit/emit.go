// Package emit orders candidate events by priority and hands them to the
// output transport, bounding the queue under backpressure.
package emit

import (
	"container/heap"

	"github.com/fangwater/crypto-trade/internal/event"
	"github.com/fangwater/crypto-trade/internal/metrics"
)

// DefaultMaxQueue bounds the emitter when the config leaves it unset.
const DefaultMaxQueue = 1024

// Emitter is a bounded priority queue over events. Drain order is priority
// descending, then creation time ascending, then insertion order. It is owned
// exclusively by the dispatcher loop.
type Emitter struct {
	maxQueue int
	queue    eventQueue
	seq      uint64
}

// New builds an emitter bounded at maxQueue events.
func New(maxQueue int) *Emitter {
	if maxQueue <= 0 {
		maxQueue = DefaultMaxQueue
	}
	return &Emitter{maxQueue: maxQueue}
}

// Enqueue inserts an event. When the queue is full, the oldest event of the
// lowest priority present (counting the candidate) is evicted so a
// high-priority event is never lost ahead of a low-priority one.
func (e *Emitter) Enqueue(ev event.Event) {
	if e.queue.Len() >= e.maxQueue {
		if !e.evictFor(ev) {
			// The candidate itself is the lowest-priority entry; drop it.
			metrics.EmitterEvictionsTotal.Inc()
			return
		}
	}
	heap.Push(&e.queue, queuedEvent{ev: ev, seq: e.seq})
	e.seq++
	metrics.EmitterDepth.Set(float64(e.queue.Len()))
}

// evictFor removes the oldest lowest-priority queued event to make room for
// the candidate. It returns false when the candidate ranks below everything
// already queued.
func (e *Emitter) evictFor(candidate event.Event) bool {
	victim := -1
	for i := range e.queue.items {
		if victim == -1 || evictBefore(e.queue.items[i], e.queue.items[victim]) {
			victim = i
		}
	}
	if victim == -1 || candidate.Priority < e.queue.items[victim].ev.Priority {
		return false
	}
	heap.Remove(&e.queue, victim)
	metrics.EmitterEvictionsTotal.Inc()
	return true
}

// Peek returns the next event to publish without removing it.
func (e *Emitter) Peek() (event.Event, bool) {
	if e.queue.Len() == 0 {
		return event.Event{}, false
	}
	return e.queue.items[0].ev, true
}

// Pop removes and returns the next event to publish.
func (e *Emitter) Pop() (event.Event, bool) {
	if e.queue.Len() == 0 {
		return event.Event{}, false
	}
	item := heap.Pop(&e.queue).(queuedEvent)
	metrics.EmitterDepth.Set(float64(e.queue.Len()))
	return item.ev, true
}

// DrainReady removes and returns every queued event in publication order.
func (e *Emitter) DrainReady() []event.Event {
	out := make([]event.Event, 0, e.queue.Len())
	for {
		ev, ok := e.Pop()
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

// Len reports how many events are queued.
func (e *Emitter) Len() int {
	return e.queue.Len()
}

type queuedEvent struct {
	ev  event.Event
	seq uint64
}

// drainBefore orders a ahead of b in publication order.
func drainBefore(a, b queuedEvent) bool {
	if a.ev.Priority != b.ev.Priority {
		return a.ev.Priority > b.ev.Priority
	}
	if !a.ev.CreatedAt.Equal(b.ev.CreatedAt) {
		return a.ev.CreatedAt.Before(b.ev.CreatedAt)
	}
	return a.seq < b.seq
}

// evictBefore orders a ahead of b as an eviction victim: lowest priority
// first, oldest within a priority class.
func evictBefore(a, b queuedEvent) bool {
	if a.ev.Priority != b.ev.Priority {
		return a.ev.Priority < b.ev.Priority
	}
	if !a.ev.CreatedAt.Equal(b.ev.CreatedAt) {
		return a.ev.CreatedAt.Before(b.ev.CreatedAt)
	}
	return a.seq < b.seq
}

type eventQueue struct {
	items []queuedEvent
}

func (q *eventQueue) Len() int           { return len(q.items) }
func (q *eventQueue) Less(i, j int) bool { return drainBefore(q.items[i], q.items[j]) }
func (q *eventQueue) Swap(i, j int)      { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *eventQueue) Push(x interface{}) { q.items = append(q.items, x.(queuedEvent)) }
func (q *eventQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}
