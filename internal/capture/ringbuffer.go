package capture

import (
	"context"
	"sync/atomic"
)

// DefaultRingCapacity holds the frame being waited for plus one spare.
const DefaultRingCapacity = 2

// RingBuffer sits between a source and a slow consumer. It holds at most
// capacity frames and discards the oldest one when a new frame arrives while
// full, so the consumer always sees the freshest frames.
type RingBuffer struct {
	capacity int
	dropped  atomic.Int64
	relayed  atomic.Int64
}

// NewRingBuffer creates a ring buffer; non-positive capacities use DefaultRingCapacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultRingCapacity
	}
	return &RingBuffer{capacity: capacity}
}

// Capacity returns the number of frames the buffer holds.
func (r *RingBuffer) Capacity() int { return r.capacity }

// Dropped returns how many frames were discarded.
func (r *RingBuffer) Dropped() int64 { return r.dropped.Load() }

// Relayed returns how many frames were accepted from the source.
func (r *RingBuffer) Relayed() int64 { return r.relayed.Load() }

// Relay forwards in to the returned channel until in closes or ctx ends. The
// returned channel is closed afterwards; frames still buffered remain readable.
func (r *RingBuffer) Relay(ctx context.Context, in <-chan Frame) <-chan Frame {
	out := make(chan Frame, r.capacity)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-in:
				if !ok {
					return
				}
				r.relayed.Add(1)
				r.push(out, f)
			}
		}
	}()
	return out
}

// push is only called from the relay goroutine, the single sender on out, so
// after discarding one frame there is guaranteed room.
func (r *RingBuffer) push(out chan Frame, f Frame) {
	for {
		select {
		case out <- f:
			return
		default:
		}
		select {
		case <-out:
			r.dropped.Add(1)
		default:
		}
	}
}
