package stream

import "sync/atomic"

// Queue is a bounded single-producer/single-consumer byte ring.
// Exactly one goroutine may Push and exactly one may Pop.
type Queue struct {
	buf  []byte
	mask uint32
	head atomic.Uint32 // next slot to pop, owned by the consumer
	tail atomic.Uint32 // next slot to push, owned by the producer

	overruns atomic.Uint64
}

// DefaultQueueSize is the receive queue size.
const DefaultQueueSize = 256

// NewQueue creates a Queue holding at least size bytes.
// Size is rounded up to a power of two.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	n := 1
	for n < size {
		n <<= 1
	}
	return &Queue{buf: make([]byte, n), mask: uint32(n - 1)}
}

// Cap returns the number of bytes the queue can hold.
func (q *Queue) Cap() int {
	return len(q.buf)
}

// Len returns the number of queued bytes.
func (q *Queue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

// Push appends b. When the queue is full the byte is dropped and counted
// as an overrun.
func (q *Queue) Push(b byte) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint32(len(q.buf)) {
		q.overruns.Add(1)
		return false
	}
	q.buf[tail&q.mask] = b
	q.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest byte if any.
func (q *Queue) Pop() (byte, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return 0, false
	}
	b := q.buf[head&q.mask]
	q.head.Store(head + 1)
	return b, true
}

// Overruns returns how many bytes were dropped by Push.
func (q *Queue) Overruns() uint64 {
	return q.overruns.Load()
}
