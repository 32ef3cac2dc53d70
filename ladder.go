package match

// Ladder is the price-level store behind one side of the book. The
// matching core is parameterized on a concrete Ladder implementation
// (Book[L Ladder]) rather than holding a Ladder interface value, so the
// dense case — the common one — never pays for dynamic dispatch in the
// match loop; only the rarer sparse construction pays an extra
// indirection inside its own methods.
type Ladder interface {
	// Level returns the FIFO at px, creating it if it does not exist.
	Level(px Tick) *levelFIFO
	// HasLevel reports whether px currently has a non-empty FIFO.
	HasLevel(px Tick) bool
	// DropLevel removes the bookkeeping for an emptied price. Safe to
	// call on a level that is already gone.
	DropLevel(px Tick)
	// IsValid reports whether px is representable by this ladder.
	IsValid(px Tick) bool

	BestBid() Tick
	BestAsk() Tick
	SetBestBid(px Tick)
	SetBestAsk(px Tick)

	// NextBidBelow/NextAskAbove return the next occupied price
	// strictly below/above px on the respective side, used to refresh
	// the cached best price after the current best depletes.
	NextBidBelow(px Tick) (Tick, bool)
	NextAskAbove(px Tick) (Tick, bool)
}
