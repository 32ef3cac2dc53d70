package protocol

// Side is the wire encoding of which book side an order rests on or
// takes from. Values mirror match.Side numerically so feed.Reader can
// cast without a lookup table.
type Side uint8

const (
	SideBid Side = iota + 1
	SideAsk
)

// OrderType is the wire encoding of how an order interacts with the
// book on arrival. Values mirror match.OrderType.
type OrderType uint8

const (
	OrderTypeLimit OrderType = iota + 1
	OrderTypeMarket
	OrderTypeStopLimit
	OrderTypeStopMarket
)

// TimeInForce is the wire encoding of an order's time-in-force.
// Values mirror match.TimeInForce.
type TimeInForce uint8

const (
	TIFGTC TimeInForce = iota + 1
	TIFIOC
	TIFFOK
	TIFGTD
)

// OrderFlags is a bitmask of order modifiers, wire-compatible with
// match.OrderFlags.
type OrderFlags uint16

const (
	FlagPostOnly   OrderFlags = 1 << 0
	FlagReduceOnly OrderFlags = 1 << 1
	FlagSTP        OrderFlags = 1 << 2
	FlagIceberg    OrderFlags = 1 << 3
	FlagStop       OrderFlags = 1 << 4
)

func (f OrderFlags) Has(bit OrderFlags) bool { return f&bit != 0 }

// CommandType tags which operation a CommandRecord or BridgeRequest
// carries.
type CommandType uint8

const (
	CmdUnknown CommandType = iota
	CmdNewOrder
	CmdCancelOrder
	CmdModifyOrder
)

// EventType mirrors match.EventType for the binary output log and the
// JSON bridge, so downstream readers never need to import match.
type EventType uint8

const (
	EventTrade EventType = iota + 1
	EventBookUpdate
	EventReject
	EventCancel
	EventAmend
)

// RejectReason is the wire/string encoding of why a command did not
// change book state. Unlike match.RejectReason (a dense uint8 enum for
// in-process Event payloads), this is a string: it is the shape that
// crosses the bridge.Bridge JSON boundary, where a human-readable
// reason is more useful to an external caller than a bare ordinal.
type RejectReason string

const (
	RejectReasonNone              RejectReason = ""
	RejectReasonOrderNotFound     RejectReason = "order_not_found"
	RejectReasonDuplicateOrderID  RejectReason = "duplicate_order_id"
	RejectReasonFOKUnfillable     RejectReason = "fok_unfillable"
	RejectReasonPostOnlyWouldCross RejectReason = "post_only_would_cross"
	RejectReasonReduceOnlyWouldIncrease RejectReason = "reduce_only_would_increase"
	RejectReasonStopNotSupported  RejectReason = "stop_not_supported"
	RejectReasonPriceOutOfBand    RejectReason = "price_out_of_band"
	RejectReasonInvalidParam      RejectReason = "invalid_param"
)

// DepthItem is one aggregated price level in a depth snapshot response.
type DepthItem struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

// GetDepthResponse is the bridge response for a depth query, built from
// bridge.Bridge's per-symbol skiplist depth cache.
type GetDepthResponse struct {
	Symbol string       `json:"symbol"`
	Bids   []*DepthItem `json:"bids"`
	Asks   []*DepthItem `json:"asks"`
}
