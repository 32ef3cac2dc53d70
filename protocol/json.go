package protocol

// BridgeCmd names the operation one BridgeRequest line carries, spelled
// out as a string (rather than the binary path's packed CommandType)
// since it is the field an external JSON caller reads and writes by
// hand.
type BridgeCmd string

const (
	BridgeCmdOrder  BridgeCmd = "order"
	BridgeCmdCancel BridgeCmd = "cancel"
	BridgeCmdModify BridgeCmd = "modify"
	BridgeCmdStats  BridgeCmd = "stats"
	BridgeCmdReset  BridgeCmd = "reset"
)

// BridgeRequest is one line of bridge.Bridge's newline-delimited JSON
// input: a symbol-routed command using decimal strings for price/qty so
// an external caller never has to know the core's tick size.
type BridgeRequest struct {
	RequestID string    `json:"request_id"`
	Symbol    string    `json:"symbol"`
	Cmd       BridgeCmd `json:"cmd"`

	OrderID OrderIDString `json:"order_id,omitempty"`
	UserID  uint64        `json:"user_id,omitempty"`
	Side    Side          `json:"side,omitempty"`
	Order   OrderType     `json:"order_type,omitempty"`
	TIF     TimeInForce   `json:"tif,omitempty"`

	// Price/Qty/DisplayQty are decimal strings, scaled to ticks by
	// bridge.Bridge using the symbol's configured tick size before
	// reaching the core.
	Price      string `json:"price,omitempty"`
	Qty        string `json:"qty,omitempty"`
	DisplayQty string `json:"display_qty,omitempty"`
	Flags      OrderFlags `json:"flags,omitempty"`
	Expiry     int64  `json:"expiry,omitempty"`

	// NewPrice/NewQty are used by BridgeCmdModify requests only.
	NewPrice string `json:"new_price,omitempty"`
	NewQty   string `json:"new_qty,omitempty"`
}

// OrderIDString is the bridge's string encoding of an order ID, kept
// distinct from a bare uint64 so a JSON client never loses precision
// round-tripping it through a language whose numbers are float64.
type OrderIDString string

// BridgeRespType tags the shape of one BridgeResponse line.
type BridgeRespType string

const (
	BridgeRespReady BridgeRespType = "ready"
	BridgeRespTrade BridgeRespType = "trade"
	BridgeRespBook  BridgeRespType = "book"
	BridgeRespStats BridgeRespType = "stats"
	BridgeRespReset BridgeRespType = "reset"
	BridgeRespError BridgeRespType = "error"
)

// BridgeResponse is one line of bridge.Bridge's output: the
// accepted/rejected outcome of a command or a depth/stats query
// result. bridge.Bridge does not stream trade/book events, so it never
// writes a BridgeRespTrade or BridgeRespBook line or sets Event.
type BridgeResponse struct {
	Type      BridgeRespType `json:"type"`
	RequestID string         `json:"request_id,omitempty"`
	Symbol    string         `json:"symbol"`
	Accepted  bool           `json:"accepted,omitempty"`
	Reason    RejectReason   `json:"reason,omitempty"`

	Filled    string `json:"filled,omitempty"`
	Remaining string `json:"remaining,omitempty"`

	Depth *GetDepthResponse `json:"depth,omitempty"`
	Event *BridgeEvent      `json:"event,omitempty"`
}

// BridgeEvent is the JSON projection of a match.Event for consumers
// that don't speak the binary log format; wsserver.Server sends one per
// trade/book-update event to its subscribers.
type BridgeEvent struct {
	Symbol     string    `json:"symbol"`
	SequenceID uint64    `json:"sequence_id"`
	Type       EventType `json:"type"`

	Price string `json:"price,omitempty"`
	Qty   string `json:"qty,omitempty"`

	TakerOrderID OrderIDString `json:"taker_order_id,omitempty"`
	TakerUserID  uint64        `json:"taker_user_id,omitempty"`
	MakerOrderID OrderIDString `json:"maker_order_id,omitempty"`
	MakerUserID  uint64        `json:"maker_user_id,omitempty"`

	BestBid string `json:"best_bid,omitempty"`
	BestAsk string `json:"best_ask,omitempty"`
	BidQty  string `json:"bid_qty,omitempty"`
	AskQty  string `json:"ask_qty,omitempty"`

	OrderID OrderIDString `json:"order_id,omitempty"`
	UserID  uint64        `json:"user_id,omitempty"`
	Reason  RejectReason  `json:"reason,omitempty"`
}
