package node

import (
	"sync"
	"time"

	"github.com/dreamware/firequery/internal/config"
	"github.com/dreamware/firequery/internal/status"
	"github.com/dreamware/firequery/internal/wire"
)

// counters tracks a node's pending and completed request counts under
// a single mutex.
type counters struct {
	mu        sync.Mutex
	pending   int
	completed int
}

// begin records a new in-flight request and returns the pending count.
func (c *counters) begin() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending++
	return c.pending
}

// finish retires an in-flight request and returns both counts.
func (c *counters) finish() (pending, completed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	c.completed++
	return c.pending, c.completed
}

// snapshot reads both counts.
func (c *counters) snapshot() (pending, completed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.completed
}

// publish pushes a node's counters to the coordination view. A nil
// view (standalone runs, tests) is a no-op.
func publish(v status.View, processID string, c *counters, activeWorkers int) {
	if v == nil {
		return
	}
	pending, completed := c.snapshot()
	v.UpdateProcessStatus(processID, pending, activeWorkers, completed, 0)
}

// splitChunks partitions records into ordered chunks of at most size
// records; the last chunk may be short. Size must be >= 1.
func splitChunks(recs []wire.Record, size int) [][]wire.Record {
	var out [][]wire.Record
	for start := 0; start < len(recs); start += size {
		end := start + size
		if end > len(recs) {
			end = len(recs)
		}
		out = append(out, recs[start:end])
	}
	return out
}

// advisoryDelay sleeps between worker chunks when configured. It is a
// pacing aid for demonstrations, never a correctness property.
func advisoryDelay(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// healthResponse builds the common HealthCheck reply for a node.
func healthResponse(cfg *config.Process, c *counters, activeWorkers int) *wire.HealthResponse {
	pending, _ := c.snapshot()
	return &wire.HealthResponse{
		RespondingProcess: cfg.ProcessID,
		IsHealthy:         true,
		PendingRequests:   int32(pending),
		ActiveWorkers:     int32(activeWorkers),
	}
}
