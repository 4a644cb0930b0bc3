package fanout

import (
	"context"
	"sync"
)

// OverflowPolicy decides what a bounded queue does when it is full.
type OverflowPolicy int

const (
	// OverflowReject refuses the new message with ErrQueueFull.
	OverflowReject OverflowPolicy = iota
	// OverflowDropOldest evicts the oldest queued message to make room.
	OverflowDropOldest
)

// Queue is a FIFO with any number of producers and one consumer. Push never
// blocks. With capacity 0 the queue is unbounded and never drops an accepted
// item.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int
	closed   bool
	capacity int
	policy   OverflowPolicy

	ready chan struct{} // one pending wakeup for Pop
	done  chan struct{} // closed by Close
}

// NewQueue returns an empty queue. capacity 0 means unbounded.
func NewQueue[T any](capacity int, policy OverflowPolicy) *Queue[T] {
	return &Queue[T]{
		capacity: capacity,
		policy:   policy,
		ready:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Push appends v. dropped reports that the oldest item was evicted to make room.
func (q *Queue[T]) Push(v T) (dropped bool, err error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, ErrQueueClosed
	}
	if q.capacity > 0 && q.lenLocked() >= q.capacity {
		if q.policy != OverflowDropOldest {
			q.mu.Unlock()
			return false, ErrQueueFull
		}
		q.popLocked()
		dropped = true
	}
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return dropped, nil
}

// Pop blocks until an item is available and returns it. It returns false once
// the queue is closed and drained, or when ctx is done.
func (q *Queue[T]) Pop(ctx context.Context) (T, bool) {
	for {
		q.mu.Lock()
		if q.lenLocked() > 0 {
			v := q.popLocked()
			q.mu.Unlock()
			return v, true
		}
		closed := q.closed
		q.mu.Unlock()

		var zero T
		if closed {
			return zero, false
		}
		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return zero, false
		}
	}
}

// Close rejects further pushes. Items already queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

func (q *Queue[T]) lenLocked() int {
	return len(q.items) - q.head
}

// popLocked must be called with q.mu held and a non-empty queue.
func (q *Queue[T]) popLocked() T {
	var zero T
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return v
	}
	// Compact once the consumed prefix dominates the backing array.
	if q.head > 64 && q.head*2 >= len(q.items) {
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v
}
