package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	match "github.com/flowbook/matchcore"
	"github.com/flowbook/matchcore/protocol"
)

type fakeDispatcher struct {
	submitFilled, submitRemaining match.Quantity
	submitErr                     error
	cancelOK                      bool
	cancelErr                     error
	modifyFilled, modifyRemaining match.Quantity
	modifyErr                     error
	lastOrder                     match.NewOrderParams
}

func (f *fakeDispatcher) SubmitOrder(ctx context.Context, symbol string, p match.NewOrderParams) (match.Quantity, match.Quantity, error) {
	f.lastOrder = p
	return f.submitFilled, f.submitRemaining, f.submitErr
}

func (f *fakeDispatcher) CancelOrder(ctx context.Context, symbol string, p match.CancelParams) (bool, error) {
	return f.cancelOK, f.cancelErr
}

func (f *fakeDispatcher) ModifyOrder(ctx context.Context, symbol string, p match.ModifyParams) (match.Quantity, match.Quantity, error) {
	return f.modifyFilled, f.modifyRemaining, f.modifyErr
}

func readResponses(t *testing.T, buf *bytes.Buffer) []protocol.BridgeResponse {
	t.Helper()
	var out []protocol.BridgeResponse
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var r protocol.BridgeResponse
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		out = append(out, r)
	}
	return out
}

func TestBridge_HandlesOrder(t *testing.T) {
	fd := &fakeDispatcher{submitFilled: 3, submitRemaining: 2}
	b := NewBridge(fd, map[string]decimal.Decimal{"BTC-USD": decimal.NewFromFloat(0.01)})

	req := protocol.BridgeRequest{
		RequestID: "r1", Symbol: "BTC-USD", Cmd: protocol.BridgeCmdOrder,
		OrderID: "1", UserID: 7, Side: protocol.SideBid, Order: protocol.OrderTypeLimit, TIF: protocol.TIFGTC,
		Price: "100.00", Qty: "5",
	}
	line, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, b.Serve(context.Background(), bytes.NewReader(append(line, '\n')), &out))

	resps := readResponses(t, &out)
	require.Len(t, resps, 1)
	assert.True(t, resps[0].Accepted)
	assert.EqualValues(t, 1, fd.lastOrder.OrderID)
	assert.Equal(t, match.Bid, fd.lastOrder.Side)
	assert.EqualValues(t, 10000, fd.lastOrder.Price)
	assert.EqualValues(t, 500, fd.lastOrder.Qty)
}

func TestBridge_RejectsMalformedLine(t *testing.T) {
	b := NewBridge(&fakeDispatcher{}, nil)
	var out bytes.Buffer
	require.NoError(t, b.Serve(context.Background(), bytes.NewReader([]byte("not json\n")), &out))
	resps := readResponses(t, &out)
	require.Len(t, resps, 1)
	assert.Equal(t, protocol.BridgeRespError, resps[0].Type)
}

func TestBridge_StatsReflectsBookUpdates(t *testing.T) {
	b := NewBridge(&fakeDispatcher{}, map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(1)})
	cb := b.EventCallback()
	cb("BTC-USD", &match.Event{Type: match.EventBookUpdate, BestBid: 100, BestAsk: 101, BidQty: 5, AskQty: 3})

	req := protocol.BridgeRequest{RequestID: "r2", Symbol: "BTC-USD", Cmd: protocol.BridgeCmdStats}
	line, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, b.Serve(context.Background(), bytes.NewReader(append(line, '\n')), &out))
	resps := readResponses(t, &out)
	require.Len(t, resps, 1)
	require.NotNil(t, resps[0].Depth)
	require.Len(t, resps[0].Depth.Bids, 1)
	require.Len(t, resps[0].Depth.Asks, 1)
	assert.Equal(t, "100", resps[0].Depth.Bids[0].Price)
	assert.Equal(t, "101", resps[0].Depth.Asks[0].Price)
}

func TestBridge_CancelAndModify(t *testing.T) {
	fd := &fakeDispatcher{cancelOK: true, modifyFilled: 1, modifyRemaining: 4}
	b := NewBridge(fd, map[string]decimal.Decimal{"BTC-USD": decimal.NewFromInt(1)})

	cancelReq, _ := json.Marshal(protocol.BridgeRequest{Symbol: "BTC-USD", Cmd: protocol.BridgeCmdCancel, OrderID: "1"})
	modifyReq, _ := json.Marshal(protocol.BridgeRequest{Symbol: "BTC-USD", Cmd: protocol.BridgeCmdModify, OrderID: "1", NewPrice: "10", NewQty: "5"})

	var in bytes.Buffer
	in.Write(cancelReq)
	in.WriteByte('\n')
	in.Write(modifyReq)
	in.WriteByte('\n')

	var out bytes.Buffer
	require.NoError(t, b.Serve(context.Background(), &in, &out))
	resps := readResponses(t, &out)
	require.Len(t, resps, 2)
	assert.True(t, resps[0].Accepted)
	assert.True(t, resps[1].Accepted)
	assert.Equal(t, "1", resps[1].Filled)
	assert.Equal(t, "4", resps[1].Remaining)
}
