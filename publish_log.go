package match

import "sync"

// Publisher is the interface for publishing every Event a Book emits
// (trades, book updates, rejects, cancels, amends).
//
// IMPORTANT: implementations must either:
//  1. Process the event synchronously before Publish returns, OR
//  2. Clone it before returning.
//
// Book recycles Events to a sync.Pool immediately after the
// MatchCallback returns, so any asynchronous processing must work with
// a clone, never the pointer itself.
type Publisher interface {
	Publish(...*Event)
}

// MemoryPublisher stores cloned events in memory, for tests.
type MemoryPublisher struct {
	mu     sync.RWMutex
	Events []*Event
}

// NewMemoryPublisher creates a new MemoryPublisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		Events: make([]*Event, 0),
	}
}

// Publish clones and appends each event to the in-memory slice.
func (m *MemoryPublisher) Publish(events ...*Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range events {
		cpy := new(Event)
		*cpy = *e
		m.Events = append(m.Events, cpy)
	}
}

// Count returns the number of events stored.
func (m *MemoryPublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Events)
}

// Get returns the event at the specified index.
func (m *MemoryPublisher) Get(index int) *Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Events[index]
}

// All returns a copy of all events stored.
func (m *MemoryPublisher) All() []*Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Event, len(m.Events))
	copy(out, m.Events)
	return out
}

// DiscardPublisher discards every event; useful for benchmarking the
// matching core without publication overhead.
type DiscardPublisher struct{}

// NewDiscardPublisher creates a new DiscardPublisher.
func NewDiscardPublisher() *DiscardPublisher {
	return &DiscardPublisher{}
}

// Publish does nothing.
func (p *DiscardPublisher) Publish(events ...*Event) {}

// AsMatchCallback adapts a Publisher to the MatchCallback shape Book
// expects, wrapping each event in a single-element Publish call.
func AsMatchCallback(p Publisher) MatchCallback {
	return func(e *Event) { p.Publish(e) }
}
