// Package ring provides a lock-free single-producer/single-consumer
// bounded queue for handing decoded commands to a symbol's own
// goroutine without going through a channel's internal mutex on the
// hot path. No other package in this module imports it; feed and
// cmd/matchd use buffered channels.
package ring

import "sync/atomic"

// SPSC is a fixed-capacity ring buffer with exactly one producer and
// one consumer goroutine. Unlike a true MPSC disruptor it needs no
// compare-and-swap on the producer side — a single writer can claim
// the next slot with a plain load/store — so TryPush/TryPop are both
// wait-free. Grounded on the teacher's RingBuffer[T], with the CAS
// retry loop removed: that loop exists to arbitrate between multiple
// producers racing for the same sequence number, a case that cannot
// arise under this package's single-producer contract.
type SPSC[T any] struct {
	_ [56]byte

	producerSeq atomic.Int64
	_           [56]byte

	consumerSeq atomic.Int64
	_           [56]byte

	buffer     []T
	bufferMask int64
	capacity   int64
	published  []atomic.Int64
}

// NewSPSC creates a ring of the given capacity, which must be a power
// of two.
func NewSPSC[T any](capacity int64) *SPSC[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of 2")
	}
	r := &SPSC[T]{
		buffer:     make([]T, capacity),
		published:  make([]atomic.Int64, capacity),
		capacity:   capacity,
		bufferMask: capacity - 1,
	}
	r.producerSeq.Store(-1)
	r.consumerSeq.Store(-1)
	for i := range r.published {
		r.published[i].Store(-1)
	}
	return r
}

// TryPush claims the next slot and writes v, returning false if the
// ring is full (the producer has lapped the consumer by a full
// capacity). Must only ever be called from the single producer
// goroutine.
func (r *SPSC[T]) TryPush(v T) bool {
	next := r.producerSeq.Load() + 1
	if next-r.capacity > r.consumerSeq.Load() {
		return false
	}
	index := next & r.bufferMask
	r.buffer[index] = v
	r.published[index].Store(next)
	r.producerSeq.Store(next)
	return true
}

// TryPop removes and returns the oldest unconsumed value, returning
// false if nothing is published yet. Must only ever be called from the
// single consumer goroutine.
func (r *SPSC[T]) TryPop() (T, bool) {
	var zero T
	next := r.consumerSeq.Load() + 1
	index := next & r.bufferMask
	if r.published[index].Load() != next {
		return zero, false
	}
	v := r.buffer[index]
	r.consumerSeq.Store(next)
	return v, true
}

// Pending reports how many values have been pushed but not yet popped.
func (r *SPSC[T]) Pending() int64 {
	return r.producerSeq.Load() - r.consumerSeq.Load()
}
