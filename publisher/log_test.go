package publisher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	match "github.com/flowbook/matchcore"
	"github.com/flowbook/matchcore/protocol"
)

func TestLog_WritesTradeAndBookSegments(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, 0)
	require.NoError(t, err)

	l.Publish(
		7,
		&match.Event{Type: match.EventTrade, SequenceID: 1, TradeID: 1, Ts: 1000, Side: match.Bid, Price: 100, Qty: 5},
		&match.Event{Type: match.EventBookUpdate, SequenceID: 2, Ts: 2000, BestBid: 100, BestAsk: 101, BidQty: 5, AskQty: 3},
		&match.Event{Type: match.EventReject, SequenceID: 3},
	)
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var tradeFile, bookFile string
	for _, e := range entries {
		switch {
		case len(e.Name()) > 6 && e.Name()[:6] == "trades":
			tradeFile = e.Name()
		case len(e.Name()) > 5 && e.Name()[:5] == "books":
			bookFile = e.Name()
		}
	}
	require.NotEmpty(t, tradeFile)
	require.NotEmpty(t, bookFile)

	tb, err := os.ReadFile(filepath.Join(dir, tradeFile))
	require.NoError(t, err)
	assert.Len(t, tb, protocol.TradeRecordSize)

	bb, err := os.ReadFile(filepath.Join(dir, bookFile))
	require.NoError(t, err)
	assert.Len(t, bb, protocol.BookUpdateRecordSize)

	var rec protocol.TradeRecord
	require.NoError(t, rec.Decode(tb))
	assert.EqualValues(t, 1, rec.SequenceID)
	assert.EqualValues(t, 1000, rec.Ts)
	assert.EqualValues(t, 7, rec.SymbolIndex)
	assert.EqualValues(t, 100, rec.Price)
	assert.Equal(t, protocol.SideBid, rec.TakerSide)
}

func TestLog_RotatesSegmentOnSize(t *testing.T) {
	dir := t.TempDir()
	l, err := Open(dir, protocol.BookUpdateRecordSize)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		l.Publish(0, &match.Event{Type: match.EventBookUpdate, SequenceID: uint64(i)})
	}
	require.NoError(t, l.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	count := 0
	for _, e := range entries {
		if len(e.Name()) > 5 && e.Name()[:5] == "books" {
			count++
		}
	}
	assert.GreaterOrEqual(t, count, 2)
}
