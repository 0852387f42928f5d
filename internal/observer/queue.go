package observer

import (
	"sync"

	"github.com/roach88/factdb/internal/fact"
)

// batchQueue is a thread-safe FIFO queue of saved-fact batches.
//
// The queue is unbounded so that Notify never blocks the writer that saved
// the facts. The observer goroutine is the only consumer.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the run loop.
type batchQueue struct {
	mu      sync.Mutex
	batches [][]fact.Fact
	closed  bool
	signal  chan struct{} // Signals batch availability (buffered, size 1)
}

func newBatchQueue() *batchQueue {
	return &batchQueue{
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a batch to the back of the queue.
// Returns false if the queue is closed.
func (q *batchQueue) Enqueue(batch []fact.Fact) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.batches = append(q.batches, batch)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Drain removes and returns every queued batch, oldest first.
// Returns nil if the queue is empty.
func (q *batchQueue) Drain() [][]fact.Fact {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.batches) == 0 {
		return nil
	}
	out := q.batches
	q.batches = nil
	return out
}

// Wait returns a channel that signals when batches may be available.
// The channel is closed when the queue is closed.
func (q *batchQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued batches.
func (q *batchQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.batches)
}

// Closed reports whether Close was called.
func (q *batchQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more batches will be enqueued and wakes the
// waiting consumer. Batches already queued are kept.
func (q *batchQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
