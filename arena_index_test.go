package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodePool_AllocFreeReusesSlots(t *testing.T) {
	p := newNodePool(4)
	a := p.alloc()
	b := p.alloc()
	assert.NotEqual(t, a, b)

	p.free(a)
	c := p.alloc()
	assert.Equal(t, a, c, "free should return the most recently freed slot to the head of the free list")
}

func TestNodePool_GrowsPastInitialCapacity(t *testing.T) {
	p := newNodePool(2)
	idx := make([]int32, 0, 10)
	for i := 0; i < 10; i++ {
		idx = append(idx, p.alloc())
	}
	seen := make(map[int32]bool)
	for _, i := range idx {
		assert.False(t, seen[i], "alloc must never hand out the same live index twice")
		seen[i] = true
	}
	assert.GreaterOrEqual(t, len(p.nodes), 10)
}

func TestNodePool_AllocClearsStaleFields(t *testing.T) {
	p := newNodePool(2)
	idx := p.alloc()
	p.at(idx).qty = 99
	p.at(idx).id = 7
	p.free(idx)

	reused := p.alloc()
	require.Equal(t, idx, reused)
	assert.Zero(t, p.at(reused).qty)
	assert.Zero(t, p.at(reused).id)
}

func TestLevelFIFO_EnqueueOrderPreservesFIFO(t *testing.T) {
	p := newNodePool(8)
	f := &levelFIFO{head: nullIdx, tail: nullIdx}

	var ids []int32
	for i := 0; i < 3; i++ {
		idx := p.alloc()
		p.at(idx).qty = Quantity(i + 1)
		f.enqueue(p, idx)
		ids = append(ids, idx)
	}
	assert.Equal(t, ids[0], f.head)
	assert.Equal(t, ids[2], f.tail)
	assert.EqualValues(t, 6, f.totalQty)
	assert.EqualValues(t, 3, f.count)

	var walked []int32
	for cur := f.head; cur != nullIdx; cur = p.at(cur).next {
		walked = append(walked, cur)
	}
	assert.Equal(t, ids, walked)
}

func TestLevelFIFO_EraseMiddleSplicesCorrectly(t *testing.T) {
	p := newNodePool(8)
	f := &levelFIFO{head: nullIdx, tail: nullIdx}
	a, b, c := p.alloc(), p.alloc(), p.alloc()
	p.at(a).qty, p.at(b).qty, p.at(c).qty = 1, 2, 3
	f.enqueue(p, a)
	f.enqueue(p, b)
	f.enqueue(p, c)

	f.erase(p, b)
	assert.Equal(t, a, f.head)
	assert.Equal(t, c, f.tail)
	assert.Equal(t, c, p.at(a).next)
	assert.Equal(t, a, p.at(c).prev)
	assert.EqualValues(t, 4, f.totalQty)
	assert.EqualValues(t, 2, f.count)
}

func TestLevelFIFO_ReduceQtyKeepsPosition(t *testing.T) {
	p := newNodePool(4)
	f := &levelFIFO{head: nullIdx, tail: nullIdx}
	a := p.alloc()
	p.at(a).qty = 10
	f.enqueue(p, a)

	f.reduceQty(a, p, 4)
	assert.EqualValues(t, 4, p.at(a).qty)
	assert.EqualValues(t, 4, f.totalQty)
	assert.Equal(t, a, f.head)
}

func TestOrderNode_ReplenishDrawsFromHidden(t *testing.T) {
	n := &orderNode{flags: FlagIceberg, displayQty: 5, hiddenQty: 12}
	assert.True(t, n.isIceberg())

	ok := n.replenish()
	assert.True(t, ok)
	assert.EqualValues(t, 5, n.qty)
	assert.EqualValues(t, 7, n.hiddenQty)

	n.hiddenQty = 0
	ok = n.replenish()
	assert.False(t, ok)
}

func TestOrderIndex_PutGetDelete(t *testing.T) {
	ix := newOrderIndex[int](16)
	ix.Put(1, 100)
	ix.Put(2, 200)

	v, ok := ix.Get(1)
	require.True(t, ok)
	assert.Equal(t, 100, v)

	assert.True(t, ix.Delete(1))
	_, ok = ix.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 1, ix.Len())

	assert.False(t, ix.Delete(999))
}

func TestOrderIndex_RehashesUnderLoad(t *testing.T) {
	ix := newOrderIndex[int](16)
	initialCap := len(ix.keys)
	for i := 0; i < 200; i++ {
		ix.Put(OrderID(i), i)
	}
	assert.Greater(t, len(ix.keys), initialCap)
	assert.Equal(t, 200, ix.Len())
	for i := 0; i < 200; i++ {
		v, ok := ix.Get(OrderID(i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestOrderIndex_DeleteBackwardShiftPreservesProbeChain(t *testing.T) {
	ix := newOrderIndex[int](16)
	// Insert 12 keys into a 16-slot table (past the 0.7 load factor, so
	// it grows once) as a stress test of the backward-shift deletion
	// path; whether any of them share a probe chain depends on the hash.
	for i := 0; i < 12; i++ {
		ix.Put(OrderID(i), i)
	}
	// Delete every third key, then verify every survivor is still
	// reachable — this is only true if backward-shift deletion never
	// strands an entry behind a hole in its probe chain.
	for i := 0; i < 12; i += 3 {
		require.True(t, ix.Delete(OrderID(i)))
	}
	for i := 0; i < 12; i++ {
		v, ok := ix.Get(OrderID(i))
		if i%3 == 0 {
			assert.False(t, ok)
			continue
		}
		require.True(t, ok, "key %d should still be reachable after neighboring deletes", i)
		assert.Equal(t, i, v)
	}
}

func TestOrderIndex_ForEachVisitsEveryEntry(t *testing.T) {
	ix := newOrderIndex[int](16)
	want := map[OrderID]int{1: 10, 2: 20, 3: 30}
	for k, v := range want {
		ix.Put(k, v)
	}
	got := make(map[OrderID]int)
	ix.ForEach(func(id OrderID, v int) bool {
		got[id] = v
		return true
	})
	assert.Equal(t, want, got)
}

func TestOrderIndex_ForEachStopsOnFalse(t *testing.T) {
	ix := newOrderIndex[int](16)
	for i := 0; i < 10; i++ {
		ix.Put(OrderID(i), i)
	}
	seen := 0
	ix.ForEach(func(id OrderID, v int) bool {
		seen++
		return seen < 3
	})
	assert.Equal(t, 3, seen)
}
