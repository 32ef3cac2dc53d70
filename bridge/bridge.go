// Package bridge exposes the matching core over a newline-delimited
// JSON protocol: one protocol.BridgeRequest per line in, one
// protocol.BridgeResponse line out. It exists for callers that would
// rather not link against the core's Go types directly (an out-of-
// process risk engine, an operator console, a test harness in another
// language), trading the binary feed's throughput for a line-oriented
// protocol ordinary tools can speak.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"

	match "github.com/flowbook/matchcore"
	"github.com/flowbook/matchcore/protocol"
)

// Dispatcher is the subset of Engine[L]'s exported methods the bridge
// needs. It is satisfied structurally by any *match.Engine[L]
// instantiation, keeping this package free of a ladder type parameter.
type Dispatcher interface {
	SubmitOrder(ctx context.Context, symbol string, p match.NewOrderParams) (filled, remaining match.Quantity, err error)
	CancelOrder(ctx context.Context, symbol string, p match.CancelParams) (bool, error)
	ModifyOrder(ctx context.Context, symbol string, p match.ModifyParams) (filled, remaining match.Quantity, err error)
}

// Bridge adapts a Dispatcher to the JSON line protocol. One Bridge
// serves every symbol the underlying engine knows about; the tick size
// used to convert a symbol's decimal price/qty strings to the core's
// integer ticks/lots is looked up per request.
type Bridge struct {
	engine    Dispatcher
	tickSizes map[string]decimal.Decimal

	mu     sync.Mutex
	depths map[string]*symbolDepth
}

// symbolDepth is the bridge's read-only top-of-book cache for one
// symbol, rebuilt from every BookUpdate event. Grounded on the
// teacher's queue.go depthList (a huandu/skiplist ordered by price),
// repurposed here from a hot-path matching structure to a passive
// snapshot cache — and, like match.AggregatedBook, holding at most one
// entry per side, since a BookUpdate event carries only top-of-book.
type symbolDepth struct {
	bids *skiplist.SkipList
	asks *skiplist.SkipList
}

func bidComparator() skiplist.Comparable {
	return skiplist.GreaterThanFunc(func(lhs, rhs any) int {
		l, r := lhs.(int64), rhs.(int64)
		switch {
		case l > r:
			return -1
		case l < r:
			return 1
		default:
			return 0
		}
	})
}

func askComparator() skiplist.Comparable {
	return skiplist.GreaterThanFunc(func(lhs, rhs any) int {
		l, r := lhs.(int64), rhs.(int64)
		switch {
		case l < r:
			return -1
		case l > r:
			return 1
		default:
			return 0
		}
	})
}

func newSymbolDepth() *symbolDepth {
	return &symbolDepth{
		bids: skiplist.New(bidComparator()),
		asks: skiplist.New(askComparator()),
	}
}

// NewBridge creates a Bridge over engine, using tickSizes to scale
// decimal request fields to integer ticks per symbol.
func NewBridge(engine Dispatcher, tickSizes map[string]decimal.Decimal) *Bridge {
	return &Bridge{
		engine:    engine,
		tickSizes: tickSizes,
		depths:    make(map[string]*symbolDepth),
	}
}

// EventCallback returns a match.EngineCallback that keeps the bridge's
// per-symbol depth cache current. Wire it into match.NewEngine (or
// compose it with match.ChainCallbacks-style fan-out at the Engine
// layer) so every BookUpdate updates what "stats" answers.
func (b *Bridge) EventCallback() match.EngineCallback {
	return func(symbol string, e *match.Event) {
		if e.Type != match.EventBookUpdate {
			return
		}
		b.mu.Lock()
		d, ok := b.depths[symbol]
		if !ok {
			d = newSymbolDepth()
			b.depths[symbol] = d
		}
		d.bids = skiplist.New(bidComparator())
		d.asks = skiplist.New(askComparator())
		if e.BestBid != match.EmptyBid {
			d.bids.Set(int64(e.BestBid), int64(e.BidQty))
		}
		if e.BestAsk != match.EmptyAsk {
			d.asks.Set(int64(e.BestAsk), int64(e.AskQty))
		}
		b.mu.Unlock()
	}
}

// Serve reads one protocol.BridgeRequest per line from r until EOF or
// ctx is cancelled, writing one protocol.BridgeResponse per line to w.
// A malformed line produces an error response and does not stop the
// loop; a Dispatcher error does the same.
func (b *Bridge) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		resp := b.handleLine(ctx, line)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("bridge: write response: %w", err)
		}
	}
	return scanner.Err()
}

func (b *Bridge) handleLine(ctx context.Context, line []byte) protocol.BridgeResponse {
	var req protocol.BridgeRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return protocol.BridgeResponse{Type: protocol.BridgeRespError, Reason: protocol.RejectReasonInvalidParam}
	}

	switch req.Cmd {
	case protocol.BridgeCmdOrder:
		return b.handleOrder(ctx, req)
	case protocol.BridgeCmdCancel:
		return b.handleCancel(ctx, req)
	case protocol.BridgeCmdModify:
		return b.handleModify(ctx, req)
	case protocol.BridgeCmdStats:
		return b.handleStats(req)
	case protocol.BridgeCmdReset:
		b.mu.Lock()
		delete(b.depths, req.Symbol)
		b.mu.Unlock()
		return protocol.BridgeResponse{Type: protocol.BridgeRespReset, RequestID: req.RequestID, Symbol: req.Symbol, Accepted: true}
	default:
		return protocol.BridgeResponse{Type: protocol.BridgeRespError, RequestID: req.RequestID, Symbol: req.Symbol, Reason: protocol.RejectReasonInvalidParam}
	}
}

func (b *Bridge) tickSize(symbol string) decimal.Decimal {
	if ts, ok := b.tickSizes[symbol]; ok {
		return ts
	}
	return decimal.New(1, 0)
}

func (b *Bridge) toTicks(symbol, s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.DivRound(b.tickSize(symbol), 0).IntPart(), nil
}

func (b *Bridge) fromTicks(symbol string, ticks int64) string {
	return decimal.NewFromInt(ticks).Mul(b.tickSize(symbol)).String()
}

func (b *Bridge) handleOrder(ctx context.Context, req protocol.BridgeRequest) protocol.BridgeResponse {
	resp := protocol.BridgeResponse{Type: protocol.BridgeRespReady, RequestID: req.RequestID, Symbol: req.Symbol}

	orderID, err := strconv.ParseUint(string(req.OrderID), 10, 64)
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = protocol.RejectReasonInvalidParam
		return resp
	}
	price, err := b.toTicks(req.Symbol, req.Price)
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = protocol.RejectReasonInvalidParam
		return resp
	}
	qty, err := b.toTicks(req.Symbol, req.Qty)
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = protocol.RejectReasonInvalidParam
		return resp
	}
	displayQty, err := b.toTicks(req.Symbol, req.DisplayQty)
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = protocol.RejectReasonInvalidParam
		return resp
	}

	params := match.NewOrderParams{
		OrderID:    match.OrderID(orderID),
		UserID:     match.UserID(req.UserID),
		Side:       wireToCoreSide(req.Side),
		Type:       wireToCoreOrderType(req.Order),
		TIF:        wireToCoreTIF(req.TIF),
		Price:      match.Tick(price),
		Qty:        match.Quantity(qty),
		DisplayQty: match.Quantity(displayQty),
		Flags:      wireToCoreFlags(req.Flags),
		Expiry:     match.Timestamp(req.Expiry),
	}

	filled, remaining, err := b.engine.SubmitOrder(ctx, req.Symbol, params)
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Accepted = false
		resp.Reason = coreErrToReason(err)
		return resp
	}
	resp.Accepted = true
	resp.Filled = b.fromTicks(req.Symbol, int64(filled))
	resp.Remaining = b.fromTicks(req.Symbol, int64(remaining))
	return resp
}

func (b *Bridge) handleCancel(ctx context.Context, req protocol.BridgeRequest) protocol.BridgeResponse {
	resp := protocol.BridgeResponse{Type: protocol.BridgeRespReady, RequestID: req.RequestID, Symbol: req.Symbol}
	orderID, err := strconv.ParseUint(string(req.OrderID), 10, 64)
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = protocol.RejectReasonInvalidParam
		return resp
	}
	ok, err := b.engine.CancelOrder(ctx, req.Symbol, match.CancelParams{OrderID: match.OrderID(orderID)})
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = coreErrToReason(err)
		return resp
	}
	resp.Accepted = ok
	return resp
}

func (b *Bridge) handleModify(ctx context.Context, req protocol.BridgeRequest) protocol.BridgeResponse {
	resp := protocol.BridgeResponse{Type: protocol.BridgeRespReady, RequestID: req.RequestID, Symbol: req.Symbol}
	orderID, err := strconv.ParseUint(string(req.OrderID), 10, 64)
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = protocol.RejectReasonInvalidParam
		return resp
	}
	newPrice, err := b.toTicks(req.Symbol, req.NewPrice)
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = protocol.RejectReasonInvalidParam
		return resp
	}
	newQty, err := b.toTicks(req.Symbol, req.NewQty)
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = protocol.RejectReasonInvalidParam
		return resp
	}
	filled, remaining, err := b.engine.ModifyOrder(ctx, req.Symbol, match.ModifyParams{
		OrderID:  match.OrderID(orderID),
		NewPrice: match.Tick(newPrice),
		NewQty:   match.Quantity(newQty),
	})
	if err != nil {
		resp.Type = protocol.BridgeRespError
		resp.Reason = coreErrToReason(err)
		return resp
	}
	resp.Accepted = true
	resp.Filled = b.fromTicks(req.Symbol, int64(filled))
	resp.Remaining = b.fromTicks(req.Symbol, int64(remaining))
	return resp
}

func (b *Bridge) handleStats(req protocol.BridgeRequest) protocol.BridgeResponse {
	resp := protocol.BridgeResponse{Type: protocol.BridgeRespStats, RequestID: req.RequestID, Symbol: req.Symbol}

	b.mu.Lock()
	d, ok := b.depths[req.Symbol]
	b.mu.Unlock()
	if !ok {
		resp.Depth = &protocol.GetDepthResponse{Symbol: req.Symbol}
		return resp
	}

	depth := &protocol.GetDepthResponse{Symbol: req.Symbol}
	for el := d.bids.Front(); el != nil; el = el.Next() {
		px := el.Key().(int64)
		qty := el.Value.(int64)
		depth.Bids = append(depth.Bids, &protocol.DepthItem{
			Price: b.fromTicks(req.Symbol, px),
			Qty:   b.fromTicks(req.Symbol, qty),
		})
	}
	for el := d.asks.Front(); el != nil; el = el.Next() {
		px := el.Key().(int64)
		qty := el.Value.(int64)
		depth.Asks = append(depth.Asks, &protocol.DepthItem{
			Price: b.fromTicks(req.Symbol, px),
			Qty:   b.fromTicks(req.Symbol, qty),
		})
	}
	resp.Depth = depth
	return resp
}

func wireToCoreSide(s protocol.Side) match.Side {
	if s == protocol.SideAsk {
		return match.Ask
	}
	return match.Bid
}

func wireToCoreOrderType(t protocol.OrderType) match.OrderType {
	switch t {
	case protocol.OrderTypeMarket:
		return match.OrderTypeMarket
	case protocol.OrderTypeStopLimit:
		return match.OrderTypeStopLimit
	case protocol.OrderTypeStopMarket:
		return match.OrderTypeStopMarket
	default:
		return match.OrderTypeLimit
	}
}

func wireToCoreTIF(t protocol.TimeInForce) match.TimeInForce {
	switch t {
	case protocol.TIFIOC:
		return match.IOC
	case protocol.TIFFOK:
		return match.FOK
	case protocol.TIFGTD:
		return match.GTD
	default:
		return match.GTC
	}
}

func wireToCoreFlags(f protocol.OrderFlags) match.OrderFlags {
	var out match.OrderFlags
	if f.Has(protocol.FlagPostOnly) {
		out |= match.FlagPostOnly
	}
	if f.Has(protocol.FlagReduceOnly) {
		out |= match.FlagReduceOnly
	}
	if f.Has(protocol.FlagSTP) {
		out |= match.FlagSTP
	}
	if f.Has(protocol.FlagIceberg) {
		out |= match.FlagIceberg
	}
	return out
}

func coreErrToReason(err error) protocol.RejectReason {
	switch err {
	case match.ErrOrderNotFound:
		return protocol.RejectReasonOrderNotFound
	case match.ErrDuplicateOrderID:
		return protocol.RejectReasonDuplicateOrderID
	case match.ErrFOKUnfillable:
		return protocol.RejectReasonFOKUnfillable
	case match.ErrPostOnlyWouldCross:
		return protocol.RejectReasonPostOnlyWouldCross
	case match.ErrStopNotSupported:
		return protocol.RejectReasonStopNotSupported
	case match.ErrPriceOutOfBand:
		return protocol.RejectReasonPriceOutOfBand
	default:
		return protocol.RejectReasonInvalidParam
	}
}
