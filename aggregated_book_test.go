package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatedBook_ReplayAppliesBookUpdate(t *testing.T) {
	ab := NewAggregatedBook()
	e := newBookUpdateEvent(1, 0, 150, 155, 10, 20)
	require.NoError(t, ab.Replay(e))

	bid, bidQty := ab.BestBid()
	assert.EqualValues(t, 150, bid)
	assert.EqualValues(t, 10, bidQty)

	ask, askQty := ab.BestAsk()
	assert.EqualValues(t, 155, ask)
	assert.EqualValues(t, 20, askQty)
	assert.Equal(t, uint64(1), ab.SequenceID())
}

func TestAggregatedBook_ReplayTradeOnlyAdvancesSequence(t *testing.T) {
	ab := NewAggregatedBook()
	require.NoError(t, ab.Replay(newBookUpdateEvent(1, 0, 150, 155, 10, 20)))

	tr := newTradeEvent(2, 1, 0, Bid, 5, 1, 6, 2, 150, 3, 0)
	require.NoError(t, ab.Replay(tr))

	bid, bidQty := ab.BestBid()
	assert.EqualValues(t, 150, bid)
	assert.EqualValues(t, 10, bidQty, "a trade event alone must not mutate depth")
	assert.Equal(t, uint64(2), ab.SequenceID())
}

func TestAggregatedBook_ReplayDetectsSequenceGap(t *testing.T) {
	ab := NewAggregatedBook()
	require.NoError(t, ab.Replay(newBookUpdateEvent(1, 0, 150, 155, 10, 20)))

	err := ab.Replay(newBookUpdateEvent(5, 0, 150, 155, 10, 20))
	assert.ErrorIs(t, err, ErrSequenceGap)
}

func TestAggregatedBook_ReplayAllowsSameSequenceID(t *testing.T) {
	ab := NewAggregatedBook()
	require.NoError(t, ab.Replay(newTradeEvent(1, 1, 0, Bid, 1, 1, 2, 2, 150, 5, 0)))
	require.NoError(t, ab.Replay(newBookUpdateEvent(1, 0, 150, 155, 5, 20)))
}

func TestAggregatedBook_BookUpdateReplacesDepthWholesale(t *testing.T) {
	ab := NewAggregatedBook()
	require.NoError(t, ab.Replay(newBookUpdateEvent(1, 0, 150, 155, 10, 20)))
	require.NoError(t, ab.Replay(newBookUpdateEvent(2, 0, 148, 155, 3, 20)))

	bid, bidQty := ab.BestBid()
	assert.EqualValues(t, 148, bid)
	assert.EqualValues(t, 3, bidQty)
	assert.Zero(t, ab.Depth(Bid, 150), "the old best price must be gone after a wholesale replacement")
}

func TestAggregatedBook_EmptySideUsesSentinels(t *testing.T) {
	ab := NewAggregatedBook()
	require.NoError(t, ab.Replay(newBookUpdateEvent(1, 0, EmptyBid, EmptyAsk, 0, 0)))

	bid, bidQty := ab.BestBid()
	assert.Equal(t, EmptyBid, bid)
	assert.Zero(t, bidQty)

	ask, askQty := ab.BestAsk()
	assert.Equal(t, EmptyAsk, ask)
	assert.Zero(t, askQty)
}

func TestAggregatedBook_OnRebuildResetsState(t *testing.T) {
	ab := NewAggregatedBook()
	require.NoError(t, ab.Replay(newBookUpdateEvent(5, 0, 150, 155, 10, 20)))

	ab.OnRebuild()
	assert.Equal(t, uint64(0), ab.SequenceID())
	bid, _ := ab.BestBid()
	assert.Equal(t, EmptyBid, bid)

	// After a rebuild, sequence tracking restarts: any sequence ID is
	// accepted as the new baseline rather than compared against the
	// pre-rebuild history.
	require.NoError(t, ab.Replay(newBookUpdateEvent(42, 0, 150, 155, 10, 20)))
	assert.Equal(t, uint64(42), ab.SequenceID())
}
