package node

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/dreamware/firequery/internal/config"
	"github.com/dreamware/firequery/internal/metrics"
	"github.com/dreamware/firequery/internal/status"
	"github.com/dreamware/firequery/internal/wire"
)

// teamEdge pairs a team with its leader's id and dialed client.
type teamEdge struct {
	team   string
	id     string
	client wire.FireQueryClient
}

// Leader is the root of the tree: it serves the client-facing Query
// RPC and fans every query out to its team leaders through the
// multiplexer. The root never accepts delegations itself.
type Leader struct {
	cfg      *config.Process
	view     status.View
	sink     *metrics.Sink
	selector TeamSelector
	teams    map[string]teamEdge
	reqs     counters

	// MuxOptions tunes the per-query multiplexer; the zero value uses
	// the package defaults.
	MuxOptions muxOptions
}

// NewLeader builds the root leader and dials a client per configured
// team_leader edge.
func NewLeader(cfg *config.Process, view status.View, sink *metrics.Sink, selector TeamSelector, dial Dialer) (*Leader, error) {
	l := &Leader{
		cfg:      cfg,
		view:     view,
		sink:     sink,
		selector: selector,
		teams:    make(map[string]teamEdge),
	}
	for _, edge := range cfg.TeamLeaderEdges() {
		client, err := dial(edge.Target())
		if err != nil {
			return nil, fmt.Errorf("dial team leader %s at %s: %w", edge.To, edge.Target(), err)
		}
		l.teams[edge.Team] = teamEdge{team: edge.Team, id: edge.To, client: client}
		log.Printf("[Leader] connected to team leader %s (%s) at %s", edge.To, edge.Team, edge.Target())
	}
	return l, nil
}

// Query validates the request, selects the target teams and hands the
// stream to the fan-out multiplexer.
func (l *Leader) Query(req *wire.QueryRequest, stream wire.FireQuery_QueryServer) error {
	log.Printf("[Leader] received query %s: dates %s..%s pollutant %q",
		req.RequestID, req.DateStart, req.DateEnd, req.PollutantType)

	if err := req.Validate(); err != nil {
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	}

	pending := l.reqs.begin()
	publish(l.view, l.cfg.ProcessID, &l.reqs, len(l.teams))
	defer func() {
		l.reqs.finish()
		publish(l.view, l.cfg.ProcessID, &l.reqs, len(l.teams))
	}()

	l.sink.LogEvent("ENQUEUE", req.RequestID, pending, 1, -1, -1, "received at leader")

	teams := l.selector.SelectTeams(req)
	var selected []string
	for _, team := range teams {
		if _, ok := l.teams[team]; !ok {
			log.Printf("[Leader] no team leader configured for team %s", team)
			continue
		}
		selected = append(selected, team)
	}
	log.Printf("[Leader] delegating %s to teams %v", req.RequestID, selected)
	l.sink.LogEvent("START_DELEGATE", req.RequestID, pending, 1, -1, -1, "delegating to teams")

	payload, err := wire.EncodeQuery(req)
	if err != nil {
		return grpcstatus.Error(codes.Internal, err.Error())
	}
	open := func(ctx context.Context, team string) (delegateStream, error) {
		edge, ok := l.teams[team]
		if !ok {
			return nil, fmt.Errorf("no team leader for team %s", team)
		}
		return edge.client.Delegate(ctx, &wire.DelegationRequest{
			RequestID:         req.RequestID,
			DelegatingProcess: l.cfg.ProcessID,
			OriginalQuery:     payload,
		})
	}

	mux := newQueryMux(req, stream, open, l.cfg.ProcessID, l.sink, func() int {
		p, _ := l.reqs.snapshot()
		return p
	}, l.MuxOptions)

	if err := mux.run(selected); err != nil {
		return err
	}

	l.sink.LogEvent("FINISH", req.RequestID, pending, 1, -1, int(mux.totalRecords), "query complete at leader")
	log.Printf("[Leader] query %s complete: %d chunks, %d records",
		req.RequestID, mux.nextChunkID+1, mux.totalRecords)
	return nil
}

// HealthCheck reports the leader's counters.
func (l *Leader) HealthCheck(_ context.Context, _ *wire.HealthRequest) (*wire.HealthResponse, error) {
	return healthResponse(l.cfg, &l.reqs, len(l.teams)), nil
}

// CancelQuery acknowledges a cancellation request; teardown rides on
// the client's stream context.
func (l *Leader) CancelQuery(_ context.Context, req *wire.CancelRequest) (*wire.CancelResponse, error) {
	log.Printf("[Leader] cancel request for %s", req.RequestID)
	return &wire.CancelResponse{
		RequestID: req.RequestID,
		Cancelled: true,
		Message:   "Query cancellation acknowledged",
	}, nil
}

// Delegate is not served by the root: delegation only flows downward.
func (l *Leader) Delegate(_ *wire.DelegationRequest, _ wire.FireQuery_DelegateServer) error {
	return grpcstatus.Error(codes.Unimplemented, "leader does not accept delegations")
}
