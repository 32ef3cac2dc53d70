package match

import "sync"

// TradePublisher is a narrower consumer than Publisher: it only sees
// EventTrade events, for downstream systems (billing, P&L, a trade
// tape) that have no use for book updates, rejects, cancels, or
// amends. The same clone-before-returning rule as Publisher applies.
type TradePublisher interface {
	PublishTrades(...*Event)
}

// MemoryTradePublisher stores cloned trade events in memory, for tests.
type MemoryTradePublisher struct {
	mu     sync.RWMutex
	Trades []*Event
}

// NewMemoryTradePublisher creates a new MemoryTradePublisher.
func NewMemoryTradePublisher() *MemoryTradePublisher {
	return &MemoryTradePublisher{
		Trades: make([]*Event, 0),
	}
}

// PublishTrades clones and appends each trade event.
func (m *MemoryTradePublisher) PublishTrades(trades ...*Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range trades {
		cpy := new(Event)
		*cpy = *e
		m.Trades = append(m.Trades, cpy)
	}
}

// Count returns the number of trade events stored.
func (m *MemoryTradePublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Trades)
}

// Get returns the trade event at the specified index.
func (m *MemoryTradePublisher) Get(index int) *Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Trades[index]
}

// DiscardTradePublisher discards every trade event.
type DiscardTradePublisher struct{}

// NewDiscardTradePublisher creates a new DiscardTradePublisher.
func NewDiscardTradePublisher() *DiscardTradePublisher {
	return &DiscardTradePublisher{}
}

// PublishTrades does nothing.
func (p *DiscardTradePublisher) PublishTrades(trades ...*Event) {}

// TradeFilterCallback adapts a TradePublisher to a MatchCallback,
// forwarding only events whose Type is EventTrade.
func TradeFilterCallback(tp TradePublisher) MatchCallback {
	return func(e *Event) {
		if e.Type == EventTrade {
			tp.PublishTrades(e)
		}
	}
}

// ChainCallbacks composes multiple MatchCallbacks into one, invoking
// each in order. Useful for wiring both a Publisher and a
// TradePublisher (or an AggregatedBook's Replay) off the same Book.
func ChainCallbacks(callbacks ...MatchCallback) MatchCallback {
	return func(e *Event) {
		for _, cb := range callbacks {
			cb(e)
		}
	}
}
