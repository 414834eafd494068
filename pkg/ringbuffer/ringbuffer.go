// Package ringbuffer contains a bounded, lock-free ring buffer.
//
// A single consumer pulls items pushed by any number of producers. When the
// buffer is full, the oldest unread item is overwritten, so a stalled
// consumer never blocks producers.
package ringbuffer

import (
	"fmt"
	"sync/atomic"
)

// RingBuffer is a bounded ring buffer with overwrite-oldest semantics.
type RingBuffer[T any] struct {
	size       uint64
	readIndex  uint64
	writeIndex atomic.Uint64
	closed     atomic.Bool
	buffer     []atomic.Pointer[T]
	event      *event
}

// New allocates a RingBuffer.
func New[T any](size uint64) (*RingBuffer[T], error) {
	// when writeIndex overflows, if size is not a power of
	// two, only a portion of the buffer is used.
	if (size & (size - 1)) != 0 {
		return nil, fmt.Errorf("size must be a power of two")
	}

	r := &RingBuffer[T]{
		size:      size,
		readIndex: 1,
		buffer:    make([]atomic.Pointer[T], size),
		event:     newEvent(),
	}
	return r, nil
}

// Close makes Pull() return false.
func (r *RingBuffer[T]) Close() {
	r.closed.Store(true)
	r.event.signal()
}

// Push pushes an item at the end of the buffer.
// If the buffer is full, the oldest unread item is discarded.
func (r *RingBuffer[T]) Push(item T) {
	writeIndex := r.writeIndex.Add(1)
	r.buffer[writeIndex%r.size].Swap(&item)
	r.event.signal()
}

// Pull pulls an item from the beginning of the buffer.
// It blocks until an item is available or Close() is called.
func (r *RingBuffer[T]) Pull() (T, bool) {
	for {
		res := r.buffer[r.readIndex%r.size].Swap(nil)
		if res == nil {
			if r.closed.Load() {
				var zero T
				return zero, false
			}
			r.event.wait()
			continue
		}

		r.readIndex++
		return *res, true
	}
}
