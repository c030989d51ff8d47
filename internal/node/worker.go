package node

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/dreamware/firequery/internal/config"
	"github.com/dreamware/firequery/internal/firedata"
	"github.com/dreamware/firequery/internal/metrics"
	"github.com/dreamware/firequery/internal/status"
	"github.com/dreamware/firequery/internal/wire"
)

// Worker is a terminal node: it owns a set of date partitions and
// answers Delegate calls by streaming the matching records as ordered
// chunks.
type Worker struct {
	cfg    *config.Process
	source *firedata.Source
	view   status.View
	sink   *metrics.Sink
	reqs   counters

	// ChunkDelay optionally paces the stream between chunks. Advisory
	// only; tests and production runs leave it zero.
	ChunkDelay time.Duration
}

// NewWorker builds a worker over its configured data source.
func NewWorker(cfg *config.Process, source *firedata.Source, view status.View, sink *metrics.Sink) *Worker {
	return &Worker{cfg: cfg, source: source, view: view, sink: sink}
}

// Delegate implements the worker side of the fan-out edge: parse the
// embedded query, select the owned dates it covers, load, chunk and
// stream. An empty intersection is a successful zero-chunk stream.
func (w *Worker) Delegate(req *wire.DelegationRequest, stream wire.FireQuery_DelegateServer) error {
	log.Printf("worker[%s] received delegation %s from %s",
		w.cfg.ProcessID, req.RequestID, req.DelegatingProcess)

	pending := w.reqs.begin()
	publish(w.view, w.cfg.ProcessID, &w.reqs, 1)
	defer func() {
		w.reqs.finish()
		publish(w.view, w.cfg.ProcessID, &w.reqs, 1)
	}()

	w.sink.LogEvent("RECEIVED_DELEGATION", req.RequestID, pending, 1, -1, -1, req.DelegatingProcess)

	query, err := wire.DecodeQuery(req.OriginalQuery)
	if err != nil {
		return grpcstatus.Error(codes.InvalidArgument, "failed to parse original query")
	}

	dates := firedata.IntersectDates(w.cfg.Partitioning.OwnedDates, query.DateStart, query.DateEnd)
	if len(dates) == 0 {
		log.Printf("worker[%s] no matching dates in partition for %s", w.cfg.ProcessID, req.RequestID)
		return nil
	}

	records, stats := w.source.Load(dates, firedata.FilterFromQuery(query), query.MaxRecords)
	log.Printf("worker[%s] loaded %d records (%d rows scanned, %d skipped)",
		w.cfg.ProcessID, len(records), stats.RowsScanned, stats.RowsSkipped)
	w.sink.LogEvent("LOADED_RECORDS", req.RequestID, pending, 1, -1, len(records), "loaded by worker")

	size := w.cfg.ChunkSizeFor(query.ChunkSize)
	for i, recs := range splitChunks(records, size) {
		chunk := &wire.Chunk{
			RequestID:     req.RequestID,
			ChunkNumber:   int32(i),
			SourceProcess: w.cfg.ProcessID,
			Records:       recs,
		}
		if err := stream.Send(chunk); err != nil {
			log.Printf("worker[%s] failed to write chunk %d: %v", w.cfg.ProcessID, i, err)
			w.sink.LogEvent("WORKER_CHUNK_SEND_ERROR", req.RequestID, pending, 1, i, len(recs), w.cfg.ProcessID)
			return grpcstatus.Error(codes.Canceled, "downstream write failed")
		}
		w.sink.LogEvent("WORKER_CHUNK_SENT", req.RequestID, pending, 1, i, len(recs), w.cfg.ProcessID)
		advisoryDelay(w.ChunkDelay)
	}

	log.Printf("worker[%s] delegation %s complete", w.cfg.ProcessID, req.RequestID)
	return nil
}

// Query is not served by workers.
func (w *Worker) Query(_ *wire.QueryRequest, _ wire.FireQuery_QueryServer) error {
	return grpcstatus.Error(codes.Unimplemented, "workers don't accept direct queries")
}

// HealthCheck reports the worker's counters.
func (w *Worker) HealthCheck(_ context.Context, _ *wire.HealthRequest) (*wire.HealthResponse, error) {
	return healthResponse(w.cfg, &w.reqs, 1), nil
}

// CancelQuery acknowledges a cancellation request. Actual teardown
// rides on the per-call stream contexts.
func (w *Worker) CancelQuery(_ context.Context, req *wire.CancelRequest) (*wire.CancelResponse, error) {
	log.Printf("worker[%s] cancel request for %s", w.cfg.ProcessID, req.RequestID)
	return &wire.CancelResponse{
		RequestID: req.RequestID,
		Cancelled: true,
		Message:   "Query cancellation acknowledged",
	}, nil
}
