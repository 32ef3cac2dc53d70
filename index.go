package match

// orderIndex is an open-addressed hash map from OrderID to V, giving
// O(1) expected lookup/insert/delete for the core's order-by-ID index.
// Ported from the original engine's FlatMap: linear probing,
// power-of-two capacity, 0.7 load-factor doubling, backward-shift
// deletion in place of tombstones (so probe chains never degrade after
// heavy churn).
type orderIndex[V any] struct {
	keys     []OrderID
	vals     []V
	occupied []bool
	count    int
}

func newOrderIndex[V any](initialCapacity int) *orderIndex[V] {
	cap := nextPow2(initialCapacity)
	if cap < 16 {
		cap = 16
	}
	return &orderIndex[V]{
		keys:     make([]OrderID, cap),
		vals:     make([]V, cap),
		occupied: make([]bool, cap),
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// mix is a bijective 64-bit finalizer (splittable64/murmur3-style),
// matching the original's integer hash mixer.
func mix(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

func (ix *orderIndex[V]) slot(id OrderID) int {
	mask := uint64(len(ix.keys) - 1)
	return int(mix(uint64(id)) & mask)
}

func (ix *orderIndex[V]) loadFactor() float64 {
	return float64(ix.count+1) / float64(len(ix.keys))
}

// Put inserts or overwrites the value for id.
func (ix *orderIndex[V]) Put(id OrderID, v V) {
	if ix.loadFactor() > 0.7 {
		ix.rehash(len(ix.keys) * 2)
	}
	i := ix.slot(id)
	for {
		if !ix.occupied[i] {
			ix.keys[i] = id
			ix.vals[i] = v
			ix.occupied[i] = true
			ix.count++
			return
		}
		if ix.keys[i] == id {
			ix.vals[i] = v
			return
		}
		i = (i + 1) & (len(ix.keys) - 1)
	}
}

// Get looks up id.
func (ix *orderIndex[V]) Get(id OrderID) (V, bool) {
	i := ix.slot(id)
	mask := len(ix.keys) - 1
	for {
		if !ix.occupied[i] {
			var zero V
			return zero, false
		}
		if ix.keys[i] == id {
			return ix.vals[i], true
		}
		i = (i + 1) & mask
	}
}

// Delete removes id, backward-shifting subsequent probe-chain entries
// into the gap so future lookups never stop short.
func (ix *orderIndex[V]) Delete(id OrderID) bool {
	mask := len(ix.keys) - 1
	i := ix.slot(id)
	for {
		if !ix.occupied[i] {
			return false
		}
		if ix.keys[i] == id {
			break
		}
		i = (i + 1) & mask
	}

	ix.count--
	j := i
	for {
		ix.occupied[j] = false
		k := j
		for {
			k = (k + 1) & mask
			if !ix.occupied[k] {
				return true
			}
			ideal := ix.slot(ix.keys[k])
			// distance from ideal slot to k must wrap correctly around j
			if !inProbeRange(ideal, j, k, mask) {
				continue
			}
			ix.keys[j] = ix.keys[k]
			ix.vals[j] = ix.vals[k]
			ix.occupied[j] = true
			j = k
			break
		}
	}
}

// inProbeRange reports whether slot j lies on the cyclic probe path
// from ideal to k, i.e. whether the entry currently at k may legally be
// moved back to j without another key jumping ahead of its own probe
// start.
func inProbeRange(ideal, j, k, mask int) bool {
	if ideal <= k {
		return ideal <= j && j <= k
	}
	return j >= ideal || j <= k
}

func (ix *orderIndex[V]) rehash(newCap int) {
	old := ix
	fresh := &orderIndex[V]{
		keys:     make([]OrderID, newCap),
		vals:     make([]V, newCap),
		occupied: make([]bool, newCap),
	}
	for i, occ := range old.occupied {
		if occ {
			fresh.Put(old.keys[i], old.vals[i])
		}
	}
	*ix = *fresh
}

func (ix *orderIndex[V]) Len() int { return ix.count }

// ForEach visits every occupied entry in arbitrary (slot) order. fn
// must not mutate ix; callers that need to remove entries found during
// a scan should collect keys first and delete them in a second pass,
// since backward-shift deletion reshuffles slots mid-iteration.
func (ix *orderIndex[V]) ForEach(fn func(id OrderID, v V) bool) {
	for i, occ := range ix.occupied {
		if occ {
			if !fn(ix.keys[i], ix.vals[i]) {
				return
			}
		}
	}
}
