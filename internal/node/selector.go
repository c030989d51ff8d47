package node

import (
	"log"

	"github.com/dreamware/firequery/internal/config"
	"github.com/dreamware/firequery/internal/status"
	"github.com/dreamware/firequery/internal/wire"
)

// TeamSelector chooses the set of teams a query fans out to. The
// selector is injected into the Leader so routing policy can change
// without touching the multiplexer.
type TeamSelector interface {
	SelectTeams(q *wire.QueryRequest) []string
}

// BothTeams is the present policy: every query fans out to both teams
// for full partition coverage. The least-loaded reading is taken for
// telemetry but does not narrow the selection.
type BothTeams struct {
	View status.View
}

// SelectTeams implements TeamSelector.
func (s BothTeams) SelectTeams(q *wire.QueryRequest) []string {
	if s.View != nil {
		log.Printf("[Leader] least loaded team: %s (query %s)",
			s.View.LeastLoadedTeam(), q.RequestID)
	}
	return []string{config.TeamGreen, config.TeamPink}
}
