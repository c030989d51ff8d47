package node

import (
	"context"
	"fmt"
	"io"
	"log"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/dreamware/firequery/internal/config"
	"github.com/dreamware/firequery/internal/firedata"
	"github.com/dreamware/firequery/internal/metrics"
	"github.com/dreamware/firequery/internal/status"
	"github.com/dreamware/firequery/internal/wire"
)

// workerEdge pairs a configured worker with its dialed client.
type workerEdge struct {
	id     string
	client wire.FireQueryClient
}

// TeamLeader is a mid-tier node: it serves Delegate by streaming its
// own partition first, then forwarding each configured worker's stream
// in order onto the same upward stream.
type TeamLeader struct {
	cfg     *config.Process
	source  *firedata.Source
	view    status.View
	sink    *metrics.Sink
	workers []workerEdge
	reqs    counters
}

// NewTeamLeader builds a team leader and dials its worker edges in
// configured order. Dialing is lazy; a worker that is down surfaces
// when its Delegate stream fails, not here.
func NewTeamLeader(cfg *config.Process, source *firedata.Source, view status.View, sink *metrics.Sink, dial Dialer) (*TeamLeader, error) {
	tl := &TeamLeader{cfg: cfg, source: source, view: view, sink: sink}
	for _, edge := range cfg.WorkerEdges() {
		client, err := dial(edge.Target())
		if err != nil {
			return nil, fmt.Errorf("dial worker %s at %s: %w", edge.To, edge.Target(), err)
		}
		tl.workers = append(tl.workers, workerEdge{id: edge.To, client: client})
		log.Printf("team_leader[%s] connected to worker %s at %s", cfg.ProcessID, edge.To, edge.Target())
	}
	return tl, nil
}

// Delegate streams the team's share of a query: the leader's own
// partition, then every worker sequentially. Worker failures are
// absorbed — the outer stream keeps going with whatever the rest of
// the team produces. Only an upward write failure aborts.
func (t *TeamLeader) Delegate(req *wire.DelegationRequest, stream wire.FireQuery_DelegateServer) error {
	log.Printf("team_leader[%s] received delegation %s from %s",
		t.cfg.ProcessID, req.RequestID, req.DelegatingProcess)

	pending := t.reqs.begin()
	publish(t.view, t.cfg.ProcessID, &t.reqs, len(t.workers))
	defer func() {
		t.reqs.finish()
		publish(t.view, t.cfg.ProcessID, &t.reqs, len(t.workers))
	}()

	t.sink.LogEvent("RECEIVED_DELEGATION", req.RequestID, pending, len(t.workers), -1, -1, req.DelegatingProcess)

	query, err := wire.DecodeQuery(req.OriginalQuery)
	if err != nil {
		return grpcstatus.Error(codes.InvalidArgument, "failed to parse original query")
	}

	if err := t.streamLocal(req.RequestID, query, stream); err != nil {
		// The upward stream is gone; starting workers would only feed
		// a dead pipe.
		return err
	}

	for _, w := range t.workers {
		if err := t.forwardWorker(w, req, stream); err != nil {
			return err
		}
	}

	log.Printf("team_leader[%s] delegation %s complete", t.cfg.ProcessID, req.RequestID)
	return nil
}

// streamLocal emits the team leader's own partition as chunks numbered
// from zero.
func (t *TeamLeader) streamLocal(requestID string, query *wire.QueryRequest, stream wire.FireQuery_DelegateServer) error {
	dates := firedata.IntersectDates(t.cfg.Partitioning.OwnedDates, query.DateStart, query.DateEnd)
	if len(dates) == 0 {
		return nil
	}

	records, _ := t.source.Load(dates, firedata.FilterFromQuery(query), query.MaxRecords)
	log.Printf("team_leader[%s] loaded %d local records", t.cfg.ProcessID, len(records))

	size := t.cfg.ChunkSizeFor(query.ChunkSize)
	for i, recs := range splitChunks(records, size) {
		chunk := &wire.Chunk{
			RequestID:     requestID,
			ChunkNumber:   int32(i),
			SourceProcess: t.cfg.ProcessID,
			Records:       recs,
		}
		if err := stream.Send(chunk); err != nil {
			log.Printf("team_leader[%s] failed to write local chunk %d: %v", t.cfg.ProcessID, i, err)
			return grpcstatus.Error(codes.Canceled, "upstream write failed")
		}
	}
	return nil
}

// forwardWorker relays one worker's Delegate stream upward, preserving
// the worker's chunk numbering and producer id. A worker-side error is
// logged and absorbed; an upward write failure aborts the delegation
// so remaining workers are never started.
func (t *TeamLeader) forwardWorker(w workerEdge, req *wire.DelegationRequest, stream wire.FireQuery_DelegateServer) error {
	log.Printf("team_leader[%s] delegating %s to worker %s", t.cfg.ProcessID, req.RequestID, w.id)

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	downstream, err := w.client.Delegate(ctx, req)
	if err != nil {
		log.Printf("team_leader[%s] worker %s unavailable: %v", t.cfg.ProcessID, w.id, err)
		return nil
	}

	for {
		chunk, err := downstream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			log.Printf("team_leader[%s] worker %s error: %v", t.cfg.ProcessID, w.id, err)
			return nil
		}
		if err := stream.Send(chunk); err != nil {
			log.Printf("team_leader[%s] failed to forward chunk from %s: %v",
				t.cfg.ProcessID, chunk.SourceProcess, err)
			return grpcstatus.Error(codes.Canceled, "upstream write failed")
		}
	}
}

// Query is not served by team leaders.
func (t *TeamLeader) Query(_ *wire.QueryRequest, _ wire.FireQuery_QueryServer) error {
	return grpcstatus.Error(codes.Unimplemented, "team leaders don't accept direct queries")
}

// HealthCheck reports the team leader's counters.
func (t *TeamLeader) HealthCheck(_ context.Context, _ *wire.HealthRequest) (*wire.HealthResponse, error) {
	return healthResponse(t.cfg, &t.reqs, len(t.workers)), nil
}

// CancelQuery acknowledges a cancellation request.
func (t *TeamLeader) CancelQuery(_ context.Context, req *wire.CancelRequest) (*wire.CancelResponse, error) {
	log.Printf("team_leader[%s] cancel request for %s", t.cfg.ProcessID, req.RequestID)
	return &wire.CancelResponse{
		RequestID: req.RequestID,
		Cancelled: true,
		Message:   "Query cancellation acknowledged",
	}, nil
}
