package match

// indexEntry is the order-index payload: enough to reach the resting
// node in its owning ladder without a second traversal.
type indexEntry struct {
	side  Side
	price Tick
	node  int32
}

// Book is the per-symbol matching core, parameterized on a concrete
// Ladder implementation so the dense case never pays for interface
// dispatch in the match loop. One Book instance is owned by exactly
// one goroutine; every exported method assumes single-threaded,
// externally-serialized calls (see Engine for the per-symbol actor
// that provides this). Grounded on the original engine's order_book.h
// (submit_limit/submit_market/cancel/modify/match_against_side) for
// algorithm shape and the teacher's order_book.go for the Go handler
// idiom.
type Book[L Ladder] struct {
	bids L
	asks L

	idx  *orderIndex[indexEntry]
	pool *nodePool

	seq      uint64
	tradeSeq uint64

	maxFOKWalkSteps int
	onEvent         MatchCallback
}

// NewBook constructs a Book over two already-constructed ladders (one
// per side — typically two DenseLadder or two SparseLadder instances,
// never a mix, though nothing prevents it). onEvent is invoked for
// every emitted Event in commit order and must not re-enter the Book.
func NewBook[L Ladder](bids, asks L, arenaCapacity int32, indexCapacity int, onEvent MatchCallback) *Book[L] {
	return &Book[L]{
		bids:            bids,
		asks:            asks,
		idx:             newOrderIndex[indexEntry](indexCapacity),
		pool:            newNodePool(arenaCapacity),
		maxFOKWalkSteps: DefaultWalkCap,
		onEvent:         onEvent,
	}
}

func (b *Book[L]) ladderFor(side Side) L {
	if side == Bid {
		return b.bids
	}
	return b.asks
}

func (b *Book[L]) oppositeLadder(side Side) L {
	if side == Bid {
		return b.asks
	}
	return b.bids
}

func (b *Book[L]) nextSeq() uint64 {
	b.seq++
	return b.seq
}

func (b *Book[L]) emit(e *Event) {
	if b.onEvent != nil {
		b.onEvent(e)
	}
	releaseEvent(e)
}

// crosses reports whether an order on side resting/arriving at limit
// would cross the opposite side's current best price.
func crosses(side Side, best, limit Tick) bool {
	if side == Bid {
		return best != EmptyAsk && best <= limit
	}
	return best != EmptyBid && best >= limit
}

// BestBid and BestAsk expose the current top of book.
func (b *Book[L]) BestBid() Tick { return b.bids.BestBid() }
func (b *Book[L]) BestAsk() Tick { return b.asks.BestAsk() }

// GetOrder looks up a resting order's current side/price/quantity.
func (b *Book[L]) GetOrder(id OrderID) (side Side, price Tick, qty Quantity, ok bool) {
	e, found := b.idx.Get(id)
	if !found {
		return 0, 0, 0, false
	}
	n := b.pool.at(e.node)
	return n.side, n.price, n.qty, true
}

// RestingCount returns the number of orders currently indexed.
func (b *Book[L]) RestingCount() int { return b.idx.Len() }

func (b *Book[L]) emitBookUpdate(seq uint64, ts Timestamp) {
	var bidQty, askQty Quantity
	if bb := b.bids.BestBid(); bb != EmptyBid {
		bidQty = b.bids.Level(bb).totalQty
	}
	if ba := b.asks.BestAsk(); ba != EmptyAsk {
		askQty = b.asks.Level(ba).totalQty
	}
	b.emit(newBookUpdateEvent(seq, ts, b.bids.BestBid(), b.asks.BestAsk(), bidQty, askQty))
}

// refreshOwnBest re-derives the cached best on side after depletedPrice
// (a price this side just lost its last resting order at) stops being
// occupied.
func (b *Book[L]) refreshOwnBest(side Side, depletedPrice Tick) {
	if side == Bid {
		if next, ok := b.bids.NextBidBelow(depletedPrice); ok {
			b.bids.SetBestBid(next)
		} else {
			b.bids.SetBestBid(EmptyBid)
		}
		return
	}
	if next, ok := b.asks.NextAskAbove(depletedPrice); ok {
		b.asks.SetBestAsk(next)
	} else {
		b.asks.SetBestAsk(EmptyAsk)
	}
}

// refreshOnRest updates the cached best for side after a new resting
// order lands at limit, if limit is more aggressive than (or the first
// price establishing) the current cached best.
func (b *Book[L]) refreshOnRest(side Side, limit Tick) {
	if side == Bid {
		if bb := b.bids.BestBid(); bb == EmptyBid || limit > bb {
			b.bids.SetBestBid(limit)
		}
		return
	}
	if ba := b.asks.BestAsk(); ba == EmptyAsk || limit < ba {
		b.asks.SetBestAsk(limit)
	}
}

// sameUserQty sums the open quantity at level belonging to user, used
// by the STP-aware FOK precheck.
func sameUserQty(level *levelFIFO, pool *nodePool, user UserID) Quantity {
	var sum Quantity
	for cur := level.head; cur != nullIdx; {
		n := pool.at(cur)
		if n.user == user {
			sum += n.qty
		}
		cur = n.next
	}
	return sum
}

// fokPrecheck walks the opposite ladder from its current best outward,
// summing crossable quantity and stopping at the first non-crossing
// tick or after maxFOKWalkSteps levels, whichever comes first. Per the
// self-trade-prevention-aware resolution of the FOK+STP ambiguity
// (spec's improvement (a)), same-user quantity at each level is
// excluded from the sum when stp is set, so the precheck cannot pass
// on liquidity the matching loop would then skip.
func (b *Book[L]) fokPrecheck(side Side, limit Tick, need Quantity, stp bool, user UserID) bool {
	opp := b.oppositeLadder(side)
	var cur Tick
	if side == Bid {
		cur = opp.BestAsk()
	} else {
		cur = opp.BestBid()
	}

	var sum Quantity
	steps := 0
	for crosses(side, cur, limit) {
		if steps >= b.maxFOKWalkSteps {
			break
		}
		steps++

		level := opp.Level(cur)
		avail := level.totalQty
		if stp {
			avail -= sameUserQty(level, b.pool, user)
		}
		sum += avail
		if sum >= need {
			return true
		}

		var ok bool
		if side == Bid {
			cur, ok = opp.NextAskAbove(cur)
		} else {
			cur, ok = opp.NextBidBelow(cur)
		}
		if !ok {
			break
		}
	}
	return sum >= need
}

// runMatchLoop walks the opposite ladder best-price-first, filling the
// taker against resting FIFOs in time priority, honoring STP and
// iceberg replenishment, until remaining reaches 0 or no more crossing
// liquidity exists. It returns the unfilled remainder.
func (b *Book[L]) runMatchLoop(side Side, limit Tick, takerID OrderID, takerUser UserID, stp bool, remaining Quantity, seq uint64, ts Timestamp) Quantity {
	opp := b.oppositeLadder(side)

	for remaining > 0 {
		var best Tick
		if side == Bid {
			best = opp.BestAsk()
		} else {
			best = opp.BestBid()
		}
		if !crosses(side, best, limit) {
			break
		}

		level := opp.Level(best)
		cur := level.head
		for cur != nullIdx && remaining > 0 {
			m := b.pool.at(cur)
			next := m.next

			if stp && m.user == takerUser {
				cur = next
				continue
			}

			q := remaining
			if m.qty < q {
				q = m.qty
			}

			b.tradeSeq++
			b.emit(newTradeEvent(seq, b.tradeSeq, ts, side, takerID, takerUser, m.id, m.user, best, q, remaining-q))
			remaining -= q

			if q == m.qty {
				level.erase(b.pool, cur)
				if m.isIceberg() && m.replenish() {
					level.enqueue(b.pool, cur)
					b.idx.Put(m.id, indexEntry{side: m.side, price: m.price, node: cur})
					if next == nullIdx {
						// it was the last node; the walk continues with
						// its refreshed slice now at the tail
						next = cur
					}
				} else {
					b.idx.Delete(m.id)
					b.pool.free(cur)
				}
			} else {
				level.reduceQty(cur, b.pool, m.qty-q)
			}

			cur = next
		}

		if level.empty() {
			b.refreshOwnBestOpposite(side, best)
			opp.DropLevel(best)
			continue
		}
		break
	}

	return remaining
}

// refreshOwnBestOpposite refreshes the best cache on the ladder
// opposite to side (the ladder runMatchLoop was just consuming from)
// after depletedPrice emptied out.
func (b *Book[L]) refreshOwnBestOpposite(side Side, depletedPrice Tick) {
	if side == Bid {
		b.refreshOwnBest(Ask, depletedPrice)
	} else {
		b.refreshOwnBest(Bid, depletedPrice)
	}
}

// matchCore runs validation, the FOK precheck (if applicable), the
// matching loop, and residual disposition for one NewOrder command,
// emitting trade and reject events but not the final book update (the
// caller emits exactly one book update per command, since Modify's
// cancel-and-resubmit path shares this core across two logical steps).
func (b *Book[L]) matchCore(seq uint64, p NewOrderParams) (filled Quantity, remaining Quantity, err error) {
	if p.Qty <= 0 {
		b.emit(newRejectEvent(seq, p.Timestamp, p.OrderID, p.UserID, RejectInvalidParam))
		return 0, 0, ErrInvalidParam
	}
	if p.Flags.has(FlagStop) {
		b.emit(newRejectEvent(seq, p.Timestamp, p.OrderID, p.UserID, RejectStopNotSupported))
		return 0, 0, ErrStopNotSupported
	}
	if p.Flags.has(FlagIceberg) && (p.DisplayQty <= 0 || p.DisplayQty > p.Qty) {
		b.emit(newRejectEvent(seq, p.Timestamp, p.OrderID, p.UserID, RejectInvalidParam))
		return 0, 0, ErrInvalidParam
	}
	if _, exists := b.idx.Get(p.OrderID); exists {
		b.emit(newRejectEvent(seq, p.Timestamp, p.OrderID, p.UserID, RejectDuplicateOrderID))
		return 0, 0, ErrDuplicateOrderID
	}

	stp := p.Flags.has(FlagSTP)

	if p.Flags.has(FlagPostOnly) {
		opp := b.oppositeLadder(p.Side)
		var oppBest Tick
		if p.Side == Bid {
			oppBest = opp.BestAsk()
		} else {
			oppBest = opp.BestBid()
		}
		if crosses(p.Side, oppBest, p.Price) {
			b.emit(newRejectEvent(seq, p.Timestamp, p.OrderID, p.UserID, RejectPostOnlyWouldCross))
			return 0, 0, ErrPostOnlyWouldCross
		}
	}

	if p.TIF == FOK {
		if !b.fokPrecheck(p.Side, p.Price, p.Qty, stp, p.UserID) {
			b.emit(newRejectEvent(seq, p.Timestamp, p.OrderID, p.UserID, RejectFOKUnfillable))
			return 0, 0, ErrFOKUnfillable
		}
	}

	leftover := b.runMatchLoop(p.Side, p.Price, p.OrderID, p.UserID, stp, p.Qty, seq, p.Timestamp)
	filled = p.Qty - leftover

	switch p.TIF {
	case IOC, FOK:
		return filled, 0, nil
	default: // GTC, GTD
		if leftover <= 0 {
			return filled, 0, nil
		}

		ladder := b.ladderFor(p.Side)
		if !ladder.IsValid(p.Price) {
			// Rejected before enqueue; trades already executed stand,
			// residual is discarded rather than rested off-band.
			return filled, 0, nil
		}

		idx := b.pool.alloc()
		n := b.pool.at(idx)
		n.id = p.OrderID
		n.user = p.UserID
		n.side = p.Side
		n.price = p.Price
		n.ts = p.Timestamp
		n.otype = p.Type
		n.tif = p.TIF
		n.flags = p.Flags
		n.expiry = p.Expiry

		if p.Flags.has(FlagIceberg) {
			draw := p.DisplayQty
			if draw > leftover {
				draw = leftover
			}
			n.displayQty = p.DisplayQty
			n.qty = draw
			n.hiddenQty = leftover - draw
		} else {
			n.qty = leftover
			n.displayQty = 0
			n.hiddenQty = 0
		}

		level := ladder.Level(p.Price)
		level.enqueue(b.pool, idx)
		b.idx.Put(p.OrderID, indexEntry{side: p.Side, price: p.Price, node: idx})
		b.refreshOnRest(p.Side, p.Price)

		return filled, leftover, nil
	}
}

// SubmitLimit accepts a new limit order. See spec §4.4.1 for the full
// TIF/STP/iceberg algorithm; matchCore implements it.
func (b *Book[L]) SubmitLimit(p NewOrderParams) (filled Quantity, remaining Quantity, err error) {
	seq := b.nextSeq()
	filled, remaining, err = b.matchCore(seq, p)
	b.emitBookUpdate(seq, p.Timestamp)
	return filled, remaining, err
}

// SubmitMarket accepts a new market order: TIF is forced to IOC and the
// limit is set to the far sentinel on the taker's side so every cross
// succeeds.
func (b *Book[L]) SubmitMarket(p NewOrderParams) (filled Quantity, remaining Quantity, err error) {
	seq := b.nextSeq()
	p.TIF = IOC
	if p.Side == Bid {
		p.Price = EmptyAsk
	} else {
		p.Price = EmptyBid
	}
	filled, remaining, err = b.matchCore(seq, p)
	b.emitBookUpdate(seq, p.Timestamp)
	return filled, remaining, err
}

// removeOrder detaches a resting order from its ladder and index
// without emitting any event; used by Cancel (which emits its own
// Cancel event after) and by Modify's cancel-and-resubmit path (which
// emits only the subsequent Amend-equivalent resubmission's events).
func (b *Book[L]) removeOrder(id OrderID, e indexEntry) {
	ladder := b.ladderFor(e.side)
	level := ladder.Level(e.price)
	level.erase(b.pool, e.node)
	b.idx.Delete(id)
	b.pool.free(e.node)
	if level.empty() {
		// Only the cached best needs re-deriving; it is refreshed while
		// e.price is still indexed, so a sparse ladder can walk from it.
		if (e.side == Bid && e.price == ladder.BestBid()) || (e.side == Ask && e.price == ladder.BestAsk()) {
			b.refreshOwnBest(e.side, e.price)
		}
		ladder.DropLevel(e.price)
	}
}

// Cancel removes a resting order by identifier.
func (b *Book[L]) Cancel(p CancelParams) (bool, error) {
	seq := b.nextSeq()
	e, ok := b.idx.Get(p.OrderID)
	if !ok {
		b.emit(newRejectEvent(seq, p.Timestamp, p.OrderID, 0, RejectOrderNotFound))
		b.emitBookUpdate(seq, p.Timestamp)
		return false, ErrOrderNotFound
	}

	n := b.pool.at(e.node)
	ev := newCancelEvent(seq, p.Timestamp, n)
	b.removeOrder(p.OrderID, e)
	b.emit(ev)
	b.emitBookUpdate(seq, p.Timestamp)
	return true, nil
}

// Modify changes a resting order's price and/or quantity. A same-price
// strict shrink is an in-place reduce_qty that preserves FIFO priority;
// anything else is a cancel-and-resubmit as a new GTC order, losing
// priority and potentially matching immediately if the new price
// crosses.
func (b *Book[L]) Modify(p ModifyParams) (filled Quantity, remaining Quantity, err error) {
	seq := b.nextSeq()
	e, ok := b.idx.Get(p.OrderID)
	if !ok {
		b.emit(newRejectEvent(seq, p.Timestamp, p.OrderID, 0, RejectOrderNotFound))
		b.emitBookUpdate(seq, p.Timestamp)
		return 0, 0, ErrOrderNotFound
	}

	n := b.pool.at(e.node)

	if p.NewPrice == e.price && p.NewQty > 0 && p.NewQty < n.qty {
		oldPrice, oldQty := n.price, n.qty
		ladder := b.ladderFor(e.side)
		level := ladder.Level(e.price)
		level.reduceQty(e.node, b.pool, p.NewQty)
		b.emit(newAmendEvent(seq, p.Timestamp, n, oldPrice, oldQty))
		b.emitBookUpdate(seq, p.Timestamp)
		return 0, p.NewQty, nil
	}

	resubmit := NewOrderParams{
		OrderID:   p.OrderID,
		UserID:    n.user,
		Side:      n.side,
		Type:      OrderTypeLimit,
		TIF:       GTC,
		Price:     p.NewPrice,
		Qty:       p.NewQty,
		Flags:     n.flags &^ FlagPostOnly, // a resubmission may legitimately cross; post-only no longer applies
		Expiry:    n.expiry,
		Timestamp: p.Timestamp,
	}
	if n.flags.has(FlagIceberg) {
		resubmit.DisplayQty = n.displayQty
	}

	b.removeOrder(p.OrderID, e)
	filled, remaining, err = b.matchCore(seq, resubmit)
	b.emitBookUpdate(seq, p.Timestamp)
	return filled, remaining, err
}

// ExpireBefore synthesizes a Cancel for every resting GTD order whose
// expiry has passed ts. The core itself never inspects wall-clock time;
// this is the single entry point the host loop is expected to call
// before processing each command (spec §5, "GTD expiry... honored by
// the surrounding loop, not the core itself").
func (b *Book[L]) ExpireBefore(ts Timestamp) int {
	var expired []OrderID
	b.idx.ForEach(func(id OrderID, e indexEntry) bool {
		n := b.pool.at(e.node)
		if n.tif == GTD && n.expiry != 0 && n.expiry <= ts {
			expired = append(expired, id)
		}
		return true
	})
	for _, id := range expired {
		b.Cancel(CancelParams{OrderID: id, Timestamp: ts})
	}
	return len(expired)
}

// SnapshotOrder is one resting order as captured by Book.Snapshot.
type SnapshotOrder struct {
	OrderID    OrderID
	UserID     UserID
	Side       Side
	Price      Tick
	Qty        Quantity
	DisplayQty Quantity
	HiddenQty  Quantity
	Flags      OrderFlags
	TIF        TimeInForce
	Timestamp  Timestamp
	Expiry     Timestamp
}

// BookSnapshot is the full in-memory state of one Book. Bids/Asks are
// in no particular order; Restore re-derives both ladders' best prices
// as it replays them.
type BookSnapshot struct {
	Seq      uint64
	TradeSeq uint64
	Bids     []SnapshotOrder
	Asks     []SnapshotOrder
}

// Snapshot captures every resting order plus the book's sequence
// counters. Like every other Book method, it assumes single-threaded,
// externally-serialized access (see Engine).
func (b *Book[L]) Snapshot() BookSnapshot {
	snap := BookSnapshot{Seq: b.seq, TradeSeq: b.tradeSeq}
	b.idx.ForEach(func(_ OrderID, e indexEntry) bool {
		n := b.pool.at(e.node)
		o := SnapshotOrder{
			OrderID: n.id, UserID: n.user, Side: n.side, Price: n.price, Qty: n.qty,
			DisplayQty: n.displayQty, HiddenQty: n.hiddenQty, Flags: n.flags,
			TIF: n.tif, Timestamp: n.ts, Expiry: n.expiry,
		}
		if n.side == Bid {
			snap.Bids = append(snap.Bids, o)
		} else {
			snap.Asks = append(snap.Asks, o)
		}
		return true
	})
	return snap
}

// Restore rebuilds a Book's resting state from a snapshot taken by
// Snapshot, bypassing matching entirely: every order in a snapshot
// already cleared the book at capture time, so re-inserting it can
// never cross. Intended for live process-to-process handoff, not
// cross-restart recovery from a stale snapshot (see DESIGN.md).
func (b *Book[L]) Restore(snap BookSnapshot) {
	b.seq = snap.Seq
	b.tradeSeq = snap.TradeSeq
	for _, o := range snap.Bids {
		b.restoreOrder(o)
	}
	for _, o := range snap.Asks {
		b.restoreOrder(o)
	}
}

func (b *Book[L]) restoreOrder(o SnapshotOrder) {
	ladder := b.ladderFor(o.Side)
	if !ladder.IsValid(o.Price) {
		return
	}

	idx := b.pool.alloc()
	n := b.pool.at(idx)
	n.id, n.user, n.side, n.price, n.qty = o.OrderID, o.UserID, o.Side, o.Price, o.Qty
	n.displayQty, n.hiddenQty = o.DisplayQty, o.HiddenQty
	n.flags, n.tif, n.ts, n.expiry = o.Flags, o.TIF, o.Timestamp, o.Expiry
	n.otype = OrderTypeLimit

	level := ladder.Level(o.Price)
	level.enqueue(b.pool, idx)
	b.idx.Put(o.OrderID, indexEntry{side: o.Side, price: o.Price, node: idx})
	b.refreshOnRest(o.Side, o.Price)
}
