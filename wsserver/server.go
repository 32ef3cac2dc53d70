// Package wsserver fans events out to WebSocket subscribers. It is a
// pure consumer of the core's event stream — nothing it does can feed
// an order back into the engine — matching spec.md's description of
// the WebSocket front end as read-only.
package wsserver

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"

	match "github.com/flowbook/matchcore"
	"github.com/flowbook/matchcore/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is a broadcast hub: every accepted connection subscribes to
// one symbol and receives every trade/book-update event for it as a
// JSON protocol.BridgeEvent line until it disconnects. When its send
// buffer is full, further events for it are dropped while the
// connection stays subscribed.
type Server struct {
	mu   sync.RWMutex
	subs map[string]map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan protocol.BridgeEvent
	done chan struct{}
}

// NewServer creates an empty Server.
func NewServer() *Server {
	return &Server{subs: make(map[string]map[*subscriber]struct{})}
}

// EventCallback returns a match.EngineCallback that fans EventTrade and
// EventBookUpdate events out to every subscriber of the event's symbol.
// Reject/Cancel/Amend events are not broadcast: they are order-owner-
// specific, and this hub has no per-connection authentication to
// restrict them to the right subscriber.
func (s *Server) EventCallback() match.EngineCallback {
	return func(symbol string, e *match.Event) {
		if e.Type != match.EventTrade && e.Type != match.EventBookUpdate {
			return
		}
		be := toBridgeEvent(symbol, e)

		s.mu.RLock()
		defer s.mu.RUnlock()
		for sub := range s.subs[symbol] {
			select {
			case sub.send <- be:
			default:
				// slow consumer; drop rather than block the match loop
			}
		}
	}
}

func toBridgeEvent(symbol string, e *match.Event) protocol.BridgeEvent {
	be := protocol.BridgeEvent{Symbol: symbol, SequenceID: e.SequenceID}
	switch e.Type {
	case match.EventTrade:
		be.Type = protocol.EventTrade
		be.Price = itoa(int64(e.Price))
		be.Qty = itoa(int64(e.Qty))
		be.TakerOrderID = protocol.OrderIDString(itoa(int64(e.TakerOrderID)))
		be.TakerUserID = uint64(e.TakerUserID)
		be.MakerOrderID = protocol.OrderIDString(itoa(int64(e.MakerOrderID)))
		be.MakerUserID = uint64(e.MakerUserID)
	case match.EventBookUpdate:
		be.Type = protocol.EventBookUpdate
		if e.BestBid != match.EmptyBid {
			be.BestBid = itoa(int64(e.BestBid))
			be.BidQty = itoa(int64(e.BidQty))
		}
		if e.BestAsk != match.EmptyAsk {
			be.BestAsk = itoa(int64(e.BestAsk))
			be.AskQty = itoa(int64(e.AskQty))
		}
	}
	return be
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

// ServeHTTP upgrades the request to a WebSocket connection and
// subscribes it to the symbol named by the "symbol" query parameter,
// broadcasting events until the connection closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "missing symbol query parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan protocol.BridgeEvent, 256),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	if s.subs[symbol] == nil {
		s.subs[symbol] = make(map[*subscriber]struct{})
	}
	s.subs[symbol][sub] = struct{}{}
	s.mu.Unlock()

	go sub.readPump()
	sub.writePump()

	s.mu.Lock()
	delete(s.subs[symbol], sub)
	if len(s.subs[symbol]) == 0 {
		delete(s.subs, symbol)
	}
	s.mu.Unlock()
}

// readPump discards inbound messages but must run so the underlying
// connection's control frames (ping/close) are processed, per
// gorilla/websocket's documented usage pattern.
func (sub *subscriber) readPump() {
	defer close(sub.done)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (sub *subscriber) writePump() {
	defer sub.conn.Close()
	for {
		select {
		case ev := <-sub.send:
			if err := sub.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-sub.done:
			return
		}
	}
}
