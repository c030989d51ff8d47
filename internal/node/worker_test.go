package node

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"

	"github.com/dreamware/firequery/internal/config"
	"github.com/dreamware/firequery/internal/firedata"
	"github.com/dreamware/firequery/internal/wire"
)

// writePartition populates root/<date>/data.csv with n well-formed
// rows alternating between PM2.5 and OZONE.
func writePartition(t *testing.T, root, date string, n int) {
	t.Helper()
	dir := filepath.Join(root, date)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	var rows string
	for i := 0; i < n; i++ {
		pollutant := "PM2.5"
		if i%2 == 1 {
			pollutant = "OZONE"
		}
		rows += fmt.Sprintf("37.1,-121.9,%s-%02d,%s,12.5,UG/M3,12.1,40,1,Site %d,AgencyX,%d,840%d\n",
			date, i, pollutant, i, i, i)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte(rows), 0o644))
}

func workerConfig(t *testing.T, dataPath string, dates ...string) *config.Process {
	t.Helper()
	return &config.Process{
		ProcessID:  "C",
		Role:       config.RoleWorker,
		ListenHost: "127.0.0.1",
		ListenPort: 50061,
		DataPath:   dataPath,
		Team:       config.TeamGreen,
		Partitioning: config.Partitioning{
			Strategy:   "by_date",
			OwnedDates: dates,
		},
		Chunking: config.ChunkConfig{
			DefaultChunkSize: 500,
			MaxChunkSize:     1000,
			MinChunkSize:     1,
		},
	}
}

func delegationFor(t *testing.T, q *wire.QueryRequest) *wire.DelegationRequest {
	t.Helper()
	payload, err := wire.EncodeQuery(q)
	require.NoError(t, err)
	return &wire.DelegationRequest{
		RequestID:         q.RequestID,
		DelegatingProcess: "A",
		OriginalQuery:     payload,
	}
}

func newTestWorker(t *testing.T, cfg *config.Process) *Worker {
	t.Helper()
	source, err := firedata.NewSource(cfg.DataPath)
	require.NoError(t, err)
	return NewWorker(cfg, source, nil, nil)
}

func TestWorkerDelegate(t *testing.T) {
	root := t.TempDir()
	writePartition(t, root, "20200810", 5)
	w := newTestWorker(t, workerConfig(t, root, "20200810"))

	q := testQuery()
	q.ChunkSize = 2
	out := newCaptureStream(context.Background())
	require.NoError(t, w.Delegate(delegationFor(t, q), out))

	chunks := out.received()
	require.Len(t, chunks, 3) // ceil(5/2)
	for i, c := range chunks {
		require.Equal(t, int32(i), c.ChunkNumber)
		require.Equal(t, "C", c.SourceProcess)
		require.Equal(t, "req-test", c.RequestID)
		require.False(t, c.IsFinal)
	}
	require.Len(t, chunks[0].Records, 2)
	require.Len(t, chunks[2].Records, 1)

	// Records arrive in file order.
	require.Equal(t, "Site 0", chunks[0].Records[0].SiteName)
	require.Equal(t, "Site 4", chunks[2].Records[0].SiteName)
}

func TestWorkerDelegateEmptyIntersection(t *testing.T) {
	root := t.TempDir()
	writePartition(t, root, "20200810", 5)
	w := newTestWorker(t, workerConfig(t, root, "20200810"))

	q := testQuery()
	q.DateStart, q.DateEnd = "20200812", "20200812"
	out := newCaptureStream(context.Background())

	// No owned date in range: a clean zero-chunk stream.
	require.NoError(t, w.Delegate(delegationFor(t, q), out))
	require.Empty(t, out.received())
}

func TestWorkerDelegateBadPayload(t *testing.T) {
	root := t.TempDir()
	w := newTestWorker(t, workerConfig(t, root, "20200810"))

	err := w.Delegate(&wire.DelegationRequest{
		RequestID:     "req-test",
		OriginalQuery: []byte("{not json"),
	}, newCaptureStream(context.Background()))
	require.Equal(t, codes.InvalidArgument, grpcstatus.Code(err))
}

func TestWorkerDelegatePollutantFilter(t *testing.T) {
	root := t.TempDir()
	writePartition(t, root, "20200810", 4) // 2 PM2.5, 2 OZONE
	w := newTestWorker(t, workerConfig(t, root, "20200810"))

	q := testQuery()
	q.PollutantType = "PM2.5"
	q.ChunkSize = 100
	out := newCaptureStream(context.Background())
	require.NoError(t, w.Delegate(delegationFor(t, q), out))

	chunks := out.received()
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0].Records, 2)
	for _, rec := range chunks[0].Records {
		require.Equal(t, "PM2.5", rec.Pollutant)
	}
}

func TestWorkerDelegateMaxRecords(t *testing.T) {
	root := t.TempDir()
	writePartition(t, root, "20200810", 100)
	w := newTestWorker(t, workerConfig(t, root, "20200810"))

	q := testQuery()
	q.MaxRecords = 5
	q.ChunkSize = 100
	out := newCaptureStream(context.Background())
	require.NoError(t, w.Delegate(delegationFor(t, q), out))

	chunks := out.received()
	require.Len(t, chunks, 1)
	require.Len(t, chunks[0].Records, 5)
}

func TestWorkerDelegateWriteFailure(t *testing.T) {
	root := t.TempDir()
	writePartition(t, root, "20200810", 5)
	w := newTestWorker(t, workerConfig(t, root, "20200810"))

	out := newCaptureStream(context.Background())
	out.failAt = 1 // first chunk lands, second write fails

	q := testQuery()
	q.ChunkSize = 2
	err := w.Delegate(delegationFor(t, q), out)
	require.Equal(t, codes.Canceled, grpcstatus.Code(err))
	require.Len(t, out.received(), 1)
}

func TestWorkerHealthAndCancel(t *testing.T) {
	root := t.TempDir()
	w := newTestWorker(t, workerConfig(t, root, "20200810"))

	h, err := w.HealthCheck(context.Background(), &wire.HealthRequest{})
	require.NoError(t, err)
	require.True(t, h.IsHealthy)
	require.Equal(t, "C", h.RespondingProcess)

	c, err := w.CancelQuery(context.Background(), &wire.CancelRequest{RequestID: "req-9"})
	require.NoError(t, err)
	require.True(t, c.Cancelled)
	require.Equal(t, "req-9", c.RequestID)

	// Direct queries are not a worker operation.
	err = w.Query(testQuery(), nil)
	require.Equal(t, codes.Unimplemented, grpcstatus.Code(err))
}
