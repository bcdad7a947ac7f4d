// Package buffer provides a ring buffer caching recent serial traffic.
package buffer

import "sync"

// RingBuffer is a thread-safe circular byte buffer holding the most recent
// data up to a fixed capacity. Oldest bytes are overwritten when full.
//
// The bridge uses it to keep a window of the latest device output for the
// history endpoint; it never touches disk.
type RingBuffer struct {
	mu    sync.RWMutex
	buf   []byte
	start int
	size  int
}

// NewRingBuffer creates a RingBuffer with the given capacity. Capacities
// below 1 are raised to 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{buf: make([]byte, capacity)}
}

// Write appends p, discarding the oldest bytes if the buffer overflows.
// It implements io.Writer and never fails.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	capacity := len(rb.buf)
	if len(p) >= capacity {
		copy(rb.buf, p[len(p)-capacity:])
		rb.start = 0
		rb.size = capacity
		return len(p), nil
	}

	end := (rb.start + rb.size) % capacity
	n := copy(rb.buf[end:], p)
	copy(rb.buf, p[n:])

	rb.size += len(p)
	if rb.size > capacity {
		rb.start = (rb.start + rb.size - capacity) % capacity
		rb.size = capacity
	}
	return len(p), nil
}

// Bytes returns a copy of the buffered data, oldest first.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return nil
	}

	out := make([]byte, rb.size)
	n := copy(out, rb.buf[rb.start:])
	if n < rb.size {
		copy(out[n:], rb.buf[:rb.size-n])
	}
	return out
}

// Clear discards all buffered data.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.start = 0
	rb.size = 0
}

// Len returns the number of buffered bytes.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Cap returns the buffer capacity.
func (rb *RingBuffer) Cap() int {
	return len(rb.buf)
}
