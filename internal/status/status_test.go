package status

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamFor(t *testing.T) {
	for id, want := range map[string]string{
		"A": "green", "B": "green", "C": "green",
		"D": "pink", "E": "pink", "F": "pink",
		"Z": "", "": "",
	} {
		if got := TeamFor(id); got != want {
			t.Errorf("TeamFor(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestBoard(t *testing.T) {
	t.Run("updates aggregate into team totals", func(t *testing.T) {
		b := NewBoard()
		b.UpdateProcessStatus("A", 2, 1, 5, 0)
		b.UpdateProcessStatus("B", 3, 2, 7, 0.5)
		b.UpdateProcessStatus("E", 1, 1, 2, 0)

		assert.Equal(t, 5, b.GetTeamLoad("green"))
		assert.Equal(t, 1, b.GetTeamLoad("pink"))
		assert.Equal(t, 0, b.GetTeamLoad("mauve"))

		snap := b.Get()
		require.Len(t, snap.Green.Processes, 2)
		assert.Equal(t, 3, snap.Green.TotalActiveWorkers)
		assert.True(t, snap.Green.Processes[0].IsHealthy)
		assert.NotZero(t, snap.Green.Processes[0].LastUpdate)
	})

	t.Run("re-update replaces the slot", func(t *testing.T) {
		b := NewBoard()
		b.UpdateProcessStatus("C", 4, 1, 0, 0)
		b.UpdateProcessStatus("C", 1, 1, 3, 0)

		assert.Equal(t, 1, b.GetTeamLoad("green"))
		require.Len(t, b.Get().Green.Processes, 1)
	})

	t.Run("least loaded team with green winning ties", func(t *testing.T) {
		b := NewBoard()
		assert.Equal(t, "green", b.LeastLoadedTeam())

		b.UpdateProcessStatus("A", 5, 1, 0, 0)
		assert.Equal(t, "pink", b.LeastLoadedTeam())

		b.UpdateProcessStatus("D", 5, 1, 0, 0)
		assert.Equal(t, "green", b.LeastLoadedTeam())
	})

	t.Run("shutdown flag", func(t *testing.T) {
		b := NewBoard()
		assert.False(t, b.IsShutdownRequested())
		b.RequestShutdown()
		assert.True(t, b.IsShutdownRequested())
	})

	t.Run("unknown process ids are dropped", func(t *testing.T) {
		b := NewBoard()
		b.UpdateProcessStatus("Q", 9, 9, 9, 0)
		assert.Equal(t, 0, b.GetTeamLoad("green"))
		assert.Equal(t, 0, b.GetTeamLoad("pink"))
	})
}

func TestRemoteView(t *testing.T) {
	board := NewBoard()
	srv := httptest.NewServer(board.Handler())
	defer srv.Close()
	addr := strings.TrimPrefix(srv.URL, "http://")

	view, err := Attach(context.Background(), addr, "C")
	require.NoError(t, err)

	t.Run("attach registers the slot", func(t *testing.T) {
		require.Len(t, board.Get().Green.Processes, 1)
	})

	t.Run("updates flow through to the board", func(t *testing.T) {
		view.UpdateProcessStatus("C", 3, 1, 4, 0)
		assert.Equal(t, 3, board.GetTeamLoad("green"))
		assert.Equal(t, 3, view.GetTeamLoad("green"))
	})

	t.Run("least loaded reflects the board", func(t *testing.T) {
		view.UpdateProcessStatus("C", 3, 1, 4, 0)
		assert.Equal(t, "pink", view.LeastLoadedTeam())
	})

	t.Run("shutdown round-trips", func(t *testing.T) {
		assert.False(t, view.IsShutdownRequested())
		view.RequestShutdown()
		assert.True(t, view.IsShutdownRequested())
		assert.True(t, board.IsShutdownRequested())
	})
}

func TestRemoteViewDegradesWhenUnreachable(t *testing.T) {
	// A view whose board has gone away must degrade to safe defaults,
	// never error: all reads are advisory.
	board := NewBoard()
	srv := httptest.NewServer(board.Handler())
	addr := strings.TrimPrefix(srv.URL, "http://")

	view, err := Attach(context.Background(), addr, "C")
	require.NoError(t, err)
	srv.Close()

	assert.Equal(t, 0, view.GetTeamLoad("green"))
	assert.Equal(t, "green", view.LeastLoadedTeam())
	assert.False(t, view.IsShutdownRequested())
	view.UpdateProcessStatus("C", 1, 1, 1, 0) // swallowed
}

func TestAttachFailsWithoutBoard(t *testing.T) {
	if testing.Short() {
		t.Skip("attach retry loop takes several seconds")
	}
	_, err := Attach(context.Background(), "127.0.0.1:1", "C")
	require.Error(t, err)
}
