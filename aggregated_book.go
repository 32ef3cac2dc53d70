package match

import (
	"sync/atomic"

	"github.com/igrmk/treemap/v2"
)

// AggregatedBook is a downstream read model that rebuilds top-of-book
// depth purely from the Trade/BookUpdate event stream, for consumers
// that only see the binary output log or the JSON bridge and never
// touch the core directly. Since BookUpdate only ever snapshots each
// side's best price and aggregate quantity (never the full ladder —
// spec's output log format carries no other levels), the treemap holds
// at most one entry per side at any time; it exists as a treemap
// rather than a single field so Depth's signature and the zero-or-one
// semantics generalize cleanly if a future BookUpdate variant ever
// carries more than the best level.
type AggregatedBook struct {
	lastSeq atomic.Uint64
	bid     *treemap.TreeMap[Tick, Quantity]
	ask     *treemap.TreeMap[Tick, Quantity]
}

// NewAggregatedBook creates an AggregatedBook with empty bid and ask sides.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		bid: treemap.New[Tick, Quantity](),
		ask: treemap.New[Tick, Quantity](),
	}
}

// SequenceID returns the last processed sequence ID, for synchronizing
// a downstream consumer against the live event stream during rebuild.
func (ab *AggregatedBook) SequenceID() uint64 {
	return ab.lastSeq.Load()
}

// Replay applies one Event to the aggregated view. Trade events only
// advance the sequence counter (STP/iceberg internals already folded
// into the following BookUpdate); BookUpdate events replace both
// sides' depth wholesale with the new snapshot. Returns ErrSequenceGap
// if e arrives out of order — note several events share one
// SequenceID (every event emitted by a single command), so the only
// valid transitions are "same command" (equal) or "next command"
// (exactly one higher).
func (ab *AggregatedBook) Replay(e *Event) error {
	last := ab.lastSeq.Load()
	if last != 0 && e.SequenceID != last && e.SequenceID != last+1 {
		return ErrSequenceGap
	}
	ab.lastSeq.Store(e.SequenceID)

	if e.Type != EventBookUpdate {
		return nil
	}

	ab.bid.Clear()
	ab.ask.Clear()
	if e.BestBid != EmptyBid {
		ab.bid.Set(e.BestBid, e.BidQty)
	}
	if e.BestAsk != EmptyAsk {
		ab.ask.Set(e.BestAsk, e.AskQty)
	}
	return nil
}

// OnRebuild resets the aggregated book to empty, to be called before
// replaying a fresh event stream after a gap or initial sync.
func (ab *AggregatedBook) OnRebuild() {
	ab.lastSeq.Store(0)
	ab.bid.Clear()
	ab.ask.Clear()
}

// Depth returns the aggregated quantity resting at price on side.
// Since only the best level is ever tracked, this returns a nonzero
// value only when price equals the current best for that side.
func (ab *AggregatedBook) Depth(side Side, price Tick) Quantity {
	var m *treemap.TreeMap[Tick, Quantity]
	if side == Bid {
		m = ab.bid
	} else {
		m = ab.ask
	}
	if qty, ok := m.Get(price); ok {
		return qty
	}
	return 0
}

// BestBid returns the current best bid and its quantity, or
// (EmptyBid, 0) if the bid side is empty.
func (ab *AggregatedBook) BestBid() (Tick, Quantity) {
	it := ab.bid.Iterator()
	if !it.Valid() {
		return EmptyBid, 0
	}
	return it.Key(), it.Value()
}

// BestAsk returns the current best ask and its quantity, or
// (EmptyAsk, 0) if the ask side is empty.
func (ab *AggregatedBook) BestAsk() (Tick, Quantity) {
	it := ab.ask.Iterator()
	if !it.Valid() {
		return EmptyAsk, 0
	}
	return it.Key(), it.Value()
}
