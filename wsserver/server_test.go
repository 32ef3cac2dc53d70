package wsserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	match "github.com/flowbook/matchcore"
	"github.com/flowbook/matchcore/protocol"
)

func TestToBridgeEvent_Trade(t *testing.T) {
	e := &match.Event{
		Type: match.EventTrade, SequenceID: 5, Price: 100, Qty: 3,
		TakerOrderID: 1, TakerUserID: 2, MakerOrderID: 3, MakerUserID: 4,
	}
	be := toBridgeEvent("BTC-USD", e)
	assert.Equal(t, "BTC-USD", be.Symbol)
	assert.Equal(t, protocol.EventTrade, be.Type)
	assert.Equal(t, "100", be.Price)
	assert.Equal(t, "3", be.Qty)
	assert.EqualValues(t, "1", be.TakerOrderID)
}

func TestToBridgeEvent_BookUpdateEmptySide(t *testing.T) {
	e := &match.Event{Type: match.EventBookUpdate, BestBid: match.EmptyBid, BestAsk: 50, AskQty: 7}
	be := toBridgeEvent("BTC-USD", e)
	assert.Equal(t, protocol.EventBookUpdate, be.Type)
	assert.Empty(t, be.BestBid)
	assert.Equal(t, "50", be.BestAsk)
	assert.Equal(t, "7", be.AskQty)
}

func TestServer_EventCallbackFansOutToSubscribers(t *testing.T) {
	s := NewServer()
	sub := &subscriber{send: make(chan protocol.BridgeEvent, 4), done: make(chan struct{})}
	s.subs["BTC-USD"] = map[*subscriber]struct{}{sub: {}}

	cb := s.EventCallback()
	cb("BTC-USD", &match.Event{Type: match.EventTrade, Price: 10, Qty: 1})
	cb("ETH-USD", &match.Event{Type: match.EventTrade, Price: 20, Qty: 1})
	cb("BTC-USD", &match.Event{Type: match.EventReject})

	select {
	case ev := <-sub.send:
		assert.Equal(t, "10", ev.Price)
	default:
		t.Fatal("expected one event delivered")
	}
	assert.Len(t, sub.send, 0)
}
