package match

import "sync"

// EventType discriminates the Event union below.
type EventType uint8

const (
	EventTrade EventType = iota + 1
	EventBookUpdate
	EventReject
	EventCancel
	EventAmend
)

// RejectReason records why a command did not change book state.
type RejectReason uint8

const (
	RejectNone RejectReason = iota
	RejectOrderNotFound
	RejectDuplicateOrderID
	RejectFOKUnfillable
	RejectPostOnlyWouldCross
	RejectReduceOnlyWouldIncrease
	RejectStopNotSupported
	RejectPriceOutOfBand
	RejectInvalidParam
)

// Event is a single emitted record from a Book operation. Only the
// fields relevant to Type are populated; the rest are zero. Grounded on
// the teacher's OrderBookLog, generalized from its decimal/string-ID
// fields to the core's Tick/Quantity/OrderID types and split by a Type
// discriminant rather than separate structs, to keep a single
// sync.Pool doing the allocation-free work for every event kind.
type Event struct {
	SequenceID uint64
	TradeID    uint64
	Type       EventType

	// Ts is the timestamp of the command that produced this event,
	// carried straight from the triggering NewOrderParams/CancelParams/
	// ModifyParams — the core never stamps it from the wall clock.
	Ts Timestamp

	Side Side

	// Trade fields.
	Price          Tick
	Qty            Quantity
	TakerOrderID   OrderID
	TakerUserID    UserID
	MakerOrderID   OrderID
	MakerUserID    UserID
	TakerRemaining Quantity

	// BookUpdate fields: a snapshot of both sides' best price and
	// aggregate quantity at that price (0/sentinel when a side is
	// empty), taken once at the end of every accepted command.
	BestBid Tick
	BestAsk Tick
	BidQty  Quantity
	AskQty  Quantity

	// Cancel/Amend/Reject fields.
	OrderID      OrderID
	UserID       UserID
	OldPrice     Tick
	OldQty       Quantity
	RejectReason RejectReason
}

var eventPool = sync.Pool{
	New: func() any { return new(Event) },
}

func acquireEvent() *Event {
	return eventPool.Get().(*Event)
}

func releaseEvent(e *Event) {
	*e = Event{}
	eventPool.Put(e)
}

func newTradeEvent(seqID, tradeID uint64, ts Timestamp, takerSide Side, takerID OrderID, takerUser UserID, makerID OrderID, makerUser UserID, price Tick, qty Quantity, remaining Quantity) *Event {
	e := acquireEvent()
	e.SequenceID = seqID
	e.TradeID = tradeID
	e.Type = EventTrade
	e.Ts = ts
	e.Side = takerSide
	e.Price = price
	e.Qty = qty
	e.TakerOrderID = takerID
	e.TakerUserID = takerUser
	e.MakerOrderID = makerID
	e.MakerUserID = makerUser
	e.TakerRemaining = remaining
	return e
}

func newBookUpdateEvent(seqID uint64, ts Timestamp, bestBid, bestAsk Tick, bidQty, askQty Quantity) *Event {
	e := acquireEvent()
	e.SequenceID = seqID
	e.Type = EventBookUpdate
	e.Ts = ts
	e.BestBid = bestBid
	e.BestAsk = bestAsk
	e.BidQty = bidQty
	e.AskQty = askQty
	return e
}

func newCancelEvent(seqID uint64, ts Timestamp, n *orderNode) *Event {
	e := acquireEvent()
	e.SequenceID = seqID
	e.Type = EventCancel
	e.Ts = ts
	e.Side = n.side
	e.OrderID = n.id
	e.UserID = n.user
	e.OldPrice = n.price
	e.OldQty = n.qty
	return e
}

func newAmendEvent(seqID uint64, ts Timestamp, n *orderNode, oldPrice Tick, oldQty Quantity) *Event {
	e := acquireEvent()
	e.SequenceID = seqID
	e.Type = EventAmend
	e.Ts = ts
	e.Side = n.side
	e.OrderID = n.id
	e.UserID = n.user
	e.OldPrice = oldPrice
	e.OldQty = oldQty
	return e
}

func newRejectEvent(seqID uint64, ts Timestamp, orderID OrderID, userID UserID, reason RejectReason) *Event {
	e := acquireEvent()
	e.SequenceID = seqID
	e.Type = EventReject
	e.Ts = ts
	e.OrderID = orderID
	e.UserID = userID
	e.RejectReason = reason
	return e
}

// Command is the decoded form of one inbound instruction, independent
// of how it arrived (binary record, JSON bridge line, direct call).
type Command struct {
	Type   CommandType
	Order  NewOrderParams
	Cancel CancelParams
	Modify ModifyParams
}

// CommandType discriminates Command.
type CommandType uint8

const (
	CommandNewOrder CommandType = iota + 1
	CommandCancel
	CommandModify
)

// NewOrderParams carries everything needed to submit a new order.
type NewOrderParams struct {
	OrderID OrderID
	UserID  UserID
	Side    Side
	Type    OrderType
	TIF     TimeInForce
	Price   Tick
	Qty     Quantity
	// DisplayQty, when set with FlagIceberg, is the visible slice; Qty
	// is then the total size including the hidden remainder.
	DisplayQty Quantity
	Flags      OrderFlags
	Expiry     Timestamp
	Timestamp  Timestamp
}

// CancelParams identifies a resting order to remove.
type CancelParams struct {
	OrderID   OrderID
	Timestamp Timestamp
}

// ModifyParams carries a resting order's requested new price/quantity.
type ModifyParams struct {
	OrderID   OrderID
	NewPrice  Tick
	NewQty    Quantity
	Timestamp Timestamp
}

// MatchCallback receives every Event a Book emits, in emission order.
// The callback must not retain e beyond the call: the Book releases it
// back to the pool immediately after.
type MatchCallback func(e *Event)
