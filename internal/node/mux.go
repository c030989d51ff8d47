package node

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/dreamware/firequery/internal/metrics"
	"github.com/dreamware/firequery/internal/wire"
)

// Multiplexer tuning. PopWait bounds how long one scan round lingers
// on a single team; IdleSleep bounds CPU spin when no team has data.
// Together they keep client latency under a few milliseconds without
// busy-waiting.
const (
	defaultBufferCap = 32
	defaultPopWait   = 2 * time.Millisecond
	defaultIdleSleep = 1 * time.Millisecond
)

// delegateStream is the multiplexer's view of one downstream Delegate
// call: just the receive side. The terminal status is the error that
// ends Recv.
type delegateStream interface {
	Recv() (*wire.Chunk, error)
}

// delegateOpener opens the Delegate stream toward a team's leader
// under the given per-team context. The leader injects the gRPC
// client here; tests inject synthetic streams.
type delegateOpener func(ctx context.Context, team string) (delegateStream, error)

// muxOptions tunes one multiplexer instance.
type muxOptions struct {
	BufferCap int
	PopWait   time.Duration
	IdleSleep time.Duration
}

func (o muxOptions) withDefaults() muxOptions {
	if o.BufferCap <= 0 {
		o.BufferCap = defaultBufferCap
	}
	if o.PopWait <= 0 {
		o.PopWait = defaultPopWait
	}
	if o.IdleSleep <= 0 {
		o.IdleSleep = defaultIdleSleep
	}
	return o
}

// teamStream is the per-team state of one query: the bounded buffer
// its reader fills, the cancel handle for its downstream context, and
// relay bookkeeping owned by the relay loop.
type teamStream struct {
	team   string
	queue  *chunkQueue
	cancel context.CancelFunc

	mu  sync.Mutex
	err error // terminal status recorded by the reader

	// Owned by the relay loop; no locking needed.
	finished bool
	relayed  int
}

func (ts *teamStream) setErr(err error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.err == nil {
		ts.err = err
	}
}

func (ts *teamStream) terminalErr() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.err
}

// queryMux merges the per-team Delegate streams of one query onto the
// single upward client stream.
//
// One reader goroutine per team pulls chunks into a bounded buffer;
// the relay loop scans the teams round-robin, relaying at most one
// chunk per team per round (the fairness invariant), renumbering
// chunks into a dense sequence and finishing with a single final
// chunk that carries the totals. Client cancellation cancels every
// per-team context, and all readers are joined on every exit path.
type queryMux struct {
	req       *wire.QueryRequest
	out       wire.FireQuery_QueryServer
	open      delegateOpener
	opts      muxOptions
	processID string
	sink      *metrics.Sink

	// queueDepth supplies the node-level pending count for telemetry.
	queueDepth func() int

	cancelRequested atomic.Bool
	wg              sync.WaitGroup
	streams         []*teamStream

	nextChunkID  int32
	totalRecords int32
}

func newQueryMux(req *wire.QueryRequest, out wire.FireQuery_QueryServer, open delegateOpener,
	processID string, sink *metrics.Sink, queueDepth func() int, opts muxOptions) *queryMux {
	return &queryMux{
		req:        req,
		out:        out,
		open:       open,
		opts:       opts.withDefaults(),
		processID:  processID,
		sink:       sink,
		queueDepth: queueDepth,
	}
}

// run fans the query out to the given teams and drives the relay to
// completion. It returns nil after the final chunk is written, or a
// cancellation status when the client went away (in which case no
// final chunk is sent). Readers are joined before it returns, always.
func (m *queryMux) run(teams []string) error {
	clientCtx := m.out.Context()

	for _, team := range teams {
		ctx, cancel := context.WithCancel(clientCtx)
		ts := &teamStream{
			team:   team,
			queue:  newChunkQueue(m.opts.BufferCap),
			cancel: cancel,
		}
		m.streams = append(m.streams, ts)
		m.wg.Add(1)
		go m.readTeam(ctx, ts)
	}

	err := m.relay(clientCtx)

	// Whatever path got us here, release every downstream call and
	// join every reader before touching the final chunk.
	m.cancelAll()
	m.wg.Wait()

	if err != nil {
		return err
	}
	return m.sendFinal()
}

// readTeam is the per-team reader: open the downstream call, pull
// chunks, push them into the bounded buffer. A full buffer blocks the
// push, which is the backpressure toward the team leader. The reader
// exits on end-of-stream, on a downstream error, or promptly on
// cancellation, and always marks its buffer finished on the way out.
func (m *queryMux) readTeam(ctx context.Context, ts *teamStream) {
	defer m.wg.Done()
	defer ts.queue.close()

	stream, err := m.open(ctx, ts.team)
	if err != nil {
		ts.setErr(err)
		return
	}

	for {
		chunk, err := stream.Recv()
		if err != nil {
			if err != io.EOF {
				ts.setErr(err)
			}
			return
		}
		if m.cancelRequested.Load() {
			return
		}
		if !ts.queue.push(ctx, chunk) {
			return
		}
	}
}

// relay is the multiplexing loop. It owns the upward stream and all
// per-team relay bookkeeping; the bounded buffers are the only state
// it shares with the readers, so it never blocks while holding a lock.
func (m *queryMux) relay(clientCtx context.Context) error {
	idleRounds := 0

	for {
		select {
		case <-clientCtx.Done():
			log.Printf("[Leader] client disconnected, cancelling query %s", m.req.RequestID)
			m.sink.LogEvent("CLIENT_DISCONNECT", m.req.RequestID, m.queueDepth(), 1, -1, -1,
				"client context cancelled")
			m.cancelRequested.Store(true)
			m.cancelAll()
			return grpcstatus.Error(codes.Canceled, "client disconnected")
		default:
		}

		yielded := false
		remaining := 0

		// One chunk per team per round, in configured order. Draining
		// a team here would starve the others; the loop structure is
		// the fairness guarantee.
		for _, ts := range m.streams {
			if ts.finished {
				continue
			}

			chunk, finished := ts.queue.pop(m.opts.PopWait)
			if finished {
				ts.finished = true
				if err := ts.terminalErr(); err != nil {
					log.Printf("[Leader] team %s finished with error: %v", ts.team, err)
				}
				m.sink.LogEvent("TEAM_FINISH", m.req.RequestID, m.queueDepth(), 1, -1, ts.relayed, ts.team)
				continue
			}
			remaining++
			if chunk == nil {
				continue
			}

			if err := m.relayChunk(ts, chunk); err != nil {
				return err
			}
			yielded = true
		}

		if remaining == 0 {
			return nil
		}
		if !yielded {
			idleRounds++
			if idleRounds == 1 {
				m.sink.LogEvent("NO_DATA_ROUND", m.req.RequestID, m.queueDepth(), 1, -1, -1,
					"all buffers empty")
			}
			time.Sleep(m.opts.IdleSleep)
		} else {
			idleRounds = 0
		}
	}
}

// relayChunk renumbers one downstream chunk into the upward sequence
// and writes it to the client. A write failure is a client disconnect:
// cancel everything and surface a cancellation status.
func (m *queryMux) relayChunk(ts *teamStream, chunk *wire.Chunk) error {
	up := &wire.Chunk{
		RequestID:     m.req.RequestID,
		ChunkNumber:   m.nextChunkID,
		TotalChunks:   -1,
		SourceProcess: chunk.SourceProcess,
		Records:       chunk.Records,
	}

	if err := m.out.Send(up); err != nil {
		log.Printf("[Leader] client disconnected during streaming: %v", err)
		m.sink.LogEvent("CLIENT_DISCONNECT", m.req.RequestID, m.queueDepth(), 1,
			int(up.ChunkNumber), len(up.Records), "client write failed")
		m.cancelRequested.Store(true)
		m.cancelAll()
		return grpcstatus.Error(codes.Canceled, "client disconnected during streaming")
	}

	m.nextChunkID++
	m.totalRecords += int32(len(up.Records))
	ts.relayed++
	m.sink.LogEvent("CHUNK_RELAY", m.req.RequestID, m.queueDepth(), 1,
		int(up.ChunkNumber), len(up.Records), chunk.SourceProcess)
	return nil
}

// sendFinal writes the sentinel chunk: the chunk number names the
// sentinel itself, total_chunks counts it in, and total_records sums
// every record written upward.
func (m *queryMux) sendFinal() error {
	final := &wire.Chunk{
		RequestID:     m.req.RequestID,
		ChunkNumber:   m.nextChunkID,
		TotalChunks:   m.nextChunkID + 1,
		IsFinal:       true,
		TotalRecords:  m.totalRecords,
		SourceProcess: m.processID,
	}

	if err := m.out.Send(final); err != nil {
		log.Printf("[Leader] client disconnected while sending final chunk: %v", err)
		m.sink.LogEvent("CLIENT_DISCONNECT_FINAL", m.req.RequestID, m.queueDepth(), 1,
			int(final.ChunkNumber), int(final.TotalRecords), "client disconnected on final chunk")
		return grpcstatus.Error(codes.Canceled, "client disconnected on final chunk")
	}

	m.sink.LogEvent("FINAL_CHUNK", m.req.RequestID, m.queueDepth(), 1,
		int(final.ChunkNumber), int(final.TotalRecords), "final from leader")
	return nil
}

func (m *queryMux) cancelAll() {
	for _, ts := range m.streams {
		ts.cancel()
	}
}
