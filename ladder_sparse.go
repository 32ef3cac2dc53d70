package match

import "github.com/flowbook/matchcore/structure"

// sparseKeyIndex is the subset of structure.PriceLevelTree's and
// structure.PooledSkiplist's API the sparse ladder needs to track which
// prices are occupied. Both backing structures satisfy it, letting
// SparseLadder pick either one at construction time without the Ladder
// interface itself knowing which.
type sparseKeyIndex interface {
	Contains(key int64) bool
	Delete(key int64) bool
	Successor(key int64) (int64, bool)
	Predecessor(key int64) (int64, bool)
	Count() int32
}

// llrbIndex and skiplistIndex adapt the two concrete structure types to
// sparseKeyIndex, absorbing their differing Insert signatures
// (PriceLevelTree.Insert returns one bool, PooledSkiplist.Insert can
// fail once its optional MaxCapacity is reached).
type llrbIndex struct{ t *structure.PriceLevelTree }

func (i llrbIndex) Contains(key int64) bool                { return i.t.Contains(key) }
func (i llrbIndex) Delete(key int64) bool                  { return i.t.Delete(key) }
func (i llrbIndex) Successor(key int64) (int64, bool)       { return i.t.Successor(key) }
func (i llrbIndex) Predecessor(key int64) (int64, bool)     { return i.t.Predecessor(key) }
func (i llrbIndex) Count() int32                            { return i.t.Count() }
func (i llrbIndex) insert(key int64) bool                  { return i.t.Insert(key) }

type skiplistIndex struct{ s *structure.PooledSkiplist }

func (i skiplistIndex) Contains(key int64) bool            { return i.s.Contains(key) }
func (i skiplistIndex) Delete(key int64) bool               { return i.s.Delete(key) }
func (i skiplistIndex) Successor(key int64) (int64, bool)   { return i.s.Successor(key) }
func (i skiplistIndex) Predecessor(key int64) (int64, bool) { return i.s.Predecessor(key) }
func (i skiplistIndex) Count() int32                        { return i.s.Count() }
func (i skiplistIndex) insert(key int64) bool               { return i.s.MustInsert(key) }

// SparseBackend selects which ordered set backs a SparseLadder. The
// LLRB tree and the pooled skiplist offer the same asymptotics; the
// choice is a deployment-time tuning knob (skiplist favors simpler,
// more cache-friendly forward scans under heavy churn; the tree favors
// predictable worst-case depth), not a correctness concern.
type SparseBackend int

const (
	Ordered SparseBackend = iota
	Skiplist
)

// SparseLadder is the off-band price-level store: unlike DenseLadder it
// has no array to index, so HasLevel/NextBidBelow/NextAskAbove go
// through an ordered key index (O(log N)) instead of a bounded array
// scan. Prices are held in a map[Tick]*levelFIFO for the FIFO payload,
// with the ordered index tracking only which prices are occupied.
// Grounded on the original engine's AVL-backed price level map, which
// made the same tree/map split for its unbounded price universe.
type SparseLadder struct {
	idx sparseKeyIndex

	// insert is kept apart from sparseKeyIndex because the two backing
	// types' Insert signatures don't unify (error vs no error), and the
	// sparse ladder only ever calls it internally from Level.
	insert func(key int64) bool

	fifos   map[Tick]*levelFIFO
	bestBid Tick
	bestAsk Tick
}

func NewSparseLadder(backend SparseBackend, capacityHint int32) *SparseLadder {
	l := &SparseLadder{
		fifos:   make(map[Tick]*levelFIFO),
		bestBid: EmptyBid,
		bestAsk: EmptyAsk,
	}
	switch backend {
	case Skiplist:
		sl := structure.NewPooledSkiplist(capacityHint, 0)
		idx := skiplistIndex{s: sl}
		l.idx = idx
		l.insert = idx.insert
	default:
		t := structure.NewPriceLevelTree(capacityHint)
		idx := llrbIndex{t: t}
		l.idx = idx
		l.insert = idx.insert
	}
	return l
}

// IsValid: a sparse ladder has no price band, so every int64-representable
// tick is in range as long as it round-trips through Tick.
func (l *SparseLadder) IsValid(px Tick) bool { return true }

func (l *SparseLadder) Level(px Tick) *levelFIFO {
	f, ok := l.fifos[px]
	if !ok {
		f = &levelFIFO{head: nullIdx, tail: nullIdx}
		l.fifos[px] = f
		l.insert(int64(px))
	}
	return f
}

func (l *SparseLadder) HasLevel(px Tick) bool {
	f, ok := l.fifos[px]
	return ok && !f.empty()
}

func (l *SparseLadder) DropLevel(px Tick) {
	if _, ok := l.fifos[px]; !ok {
		return
	}
	delete(l.fifos, px)
	l.idx.Delete(int64(px))
}

func (l *SparseLadder) BestBid() Tick      { return l.bestBid }
func (l *SparseLadder) BestAsk() Tick      { return l.bestAsk }
func (l *SparseLadder) SetBestBid(px Tick) { l.bestBid = px }
func (l *SparseLadder) SetBestAsk(px Tick) { l.bestAsk = px }

// NextBidBelow finds the next occupied price below px by walking
// Predecessor links, skipping prices whose FIFO has since drained to
// empty but not yet been dropped from the index.
func (l *SparseLadder) NextBidBelow(px Tick) (Tick, bool) {
	key := int64(px)
	for {
		prev, ok := l.idx.Predecessor(key)
		if !ok {
			return EmptyBid, false
		}
		key = prev
		p := Tick(prev)
		if f, ok := l.fifos[p]; ok && !f.empty() {
			return p, true
		}
	}
}

// NextAskAbove is the ask-side mirror of NextBidBelow.
func (l *SparseLadder) NextAskAbove(px Tick) (Tick, bool) {
	key := int64(px)
	for {
		next, ok := l.idx.Successor(key)
		if !ok {
			return EmptyAsk, false
		}
		key = next
		p := Tick(next)
		if f, ok := l.fifos[p]; ok && !f.empty() {
			return p, true
		}
	}
}
