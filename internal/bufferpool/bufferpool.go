// Package bufferpool provides the scratch-buffer pool the audio thread
// borrows from instead of allocating, per spec §3.5/§4.5.1. It is grounded
// on original_source/src/buffer_pool.rs: the same allocations/reuses/
// occupancy/efficiency stats, the same "allocate fresh if the pool is
// empty" graceful-degradation policy (never blocks waiting for a buffer),
// and the same cheap-clone handle semantics (a Pool value is a thin wrapper
// over a shared channel and shared counters, so passing it by value between
// the control and audio thread is free).
//
// Stdlib justification: the original uses crossbeam_queue::ArrayQueue, a
// lock-free MPMC ring. No pack repo imports a Go equivalent — a buffered
// channel is the idiomatic stdlib analog of a bounded MPMC queue and is
// what every concurrent pack repo reaches for in this role, so we
// deliberately stay on stdlib here rather than adding a third-party
// lock-free queue dependency purely to mirror the original's crate choice.
package bufferpool

import "sync/atomic"

type stats struct {
	allocations int64
	reuses      int64
}

// Pool is a bounded pool of fixed-size []float32 scratch buffers. The zero
// value is not usable; use New. Pool is cheap to copy (it only carries a
// channel and a pointer to shared counters), matching the original's
// Arc-backed Clone semantics.
type Pool struct {
	bufs    chan []float32
	bufSize int
	st      *stats
}

// New creates a pool of capacity buffers, each of length bufSize, all
// pre-allocated up front so the very first Acquire on the audio thread
// never allocates.
func New(bufSize, capacity int) Pool {
	p := Pool{
		bufs:    make(chan []float32, capacity),
		bufSize: bufSize,
		st:      &stats{},
	}
	for i := 0; i < capacity; i++ {
		p.bufs <- make([]float32, bufSize)
	}
	return p
}

// Acquire returns a zeroed buffer of the pool's configured size, reusing a
// pooled one if available or allocating a fresh one if the pool is
// momentarily empty (graceful degradation, never blocks).
func (p Pool) Acquire() []float32 {
	select {
	case buf := <-p.bufs:
		for i := range buf {
			buf[i] = 0
		}
		atomic.AddInt64(&p.st.reuses, 1)
		return buf
	default:
		atomic.AddInt64(&p.st.allocations, 1)
		return make([]float32, p.bufSize)
	}
}

// Release returns buf to the pool for reuse. A buffer of the wrong size, or
// returned when the pool is already at capacity, is simply dropped (garbage
// collected) rather than causing an error — Release is always safe to call.
func (p Pool) Release(buf []float32) {
	if len(buf) != p.bufSize {
		return
	}
	select {
	case p.bufs <- buf:
	default:
	}
}

// Allocations returns the number of buffers allocated outside the pool
// (i.e. pool-empty fallbacks) since creation.
func (p Pool) Allocations() int64 { return atomic.LoadInt64(&p.st.allocations) }

// Reuses returns the number of Acquire calls satisfied from the pool.
func (p Pool) Reuses() int64 { return atomic.LoadInt64(&p.st.reuses) }

// Occupancy returns the number of buffers currently sitting in the pool.
func (p Pool) Occupancy() int { return len(p.bufs) }

// Efficiency returns the fraction of Acquire calls satisfied from the pool
// rather than by a fresh allocation, in [0,1]. Returns 1 before any
// Acquire call (vacuously efficient).
func (p Pool) Efficiency() float64 {
	reuses := atomic.LoadInt64(&p.st.reuses)
	allocs := atomic.LoadInt64(&p.st.allocations)
	total := reuses + allocs
	if total == 0 {
		return 1
	}
	return float64(reuses) / float64(total)
}
