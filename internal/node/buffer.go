package node

import (
	"context"
	"time"

	"github.com/dreamware/firequery/internal/wire"
)

// chunkQueue is the bounded per-team buffer between a reader goroutine
// and the relay loop. The channel's capacity is the backpressure
// bound: a push into a full queue blocks the reader, which in turn
// stops pulling from the team leader.
type chunkQueue struct {
	ch chan *wire.Chunk
}

func newChunkQueue(capacity int) *chunkQueue {
	return &chunkQueue{ch: make(chan *wire.Chunk, capacity)}
}

// push enqueues a chunk, blocking while the queue is full. It returns
// false when ctx ends first, so a reader stuck on a slow consumer
// still observes cancellation promptly.
func (q *chunkQueue) push(ctx context.Context, c *wire.Chunk) bool {
	select {
	case q.ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}

// close marks the queue finished. Pending chunks remain poppable; once
// drained, pop reports finished.
func (q *chunkQueue) close() {
	close(q.ch)
}

// pop waits up to d for a chunk. It returns (chunk, false) on data,
// (nil, false) when the wait elapses, and (nil, true) once the queue
// is finished and empty.
func (q *chunkQueue) pop(d time.Duration) (*wire.Chunk, bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case c, ok := <-q.ch:
		if !ok {
			return nil, true
		}
		return c, false
	case <-timer.C:
		return nil, false
	}
}

// depth reports the number of buffered chunks.
func (q *chunkQueue) depth() int {
	return len(q.ch)
}
