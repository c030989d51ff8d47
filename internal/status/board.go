package status

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/exp/slices"
)

// Board is the authoritative status surface, hosted by the root
// leader. One coarse lock serializes writers; readers get copies.
// The lock is never held across an RPC or HTTP call.
type Board struct {
	mu       sync.Mutex
	version  int
	shutdown bool
	green    TeamStatus
	pink     TeamStatus
	updated  int64
}

// NewBoard creates an empty board with both team slots named.
func NewBoard() *Board {
	return &Board{
		green: TeamStatus{TeamName: "green"},
		pink:  TeamStatus{TeamName: "pink"},
	}
}

// UpdateProcessStatus implements View. Unknown process ids are dropped.
func (b *Board) UpdateProcessStatus(processID string, pending, active, completed int, cpu float64) {
	team := TeamFor(processID)
	if team == "" {
		log.Printf("status: ignoring update from unknown process %q", processID)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.version++
	b.updated = time.Now().Unix()

	ts := b.teamLocked(team)
	i := slices.IndexFunc(ts.Processes, func(p ProcessStatus) bool {
		return p.ProcessID == processID
	})
	if i < 0 {
		ts.Processes = append(ts.Processes, ProcessStatus{ProcessID: processID})
		i = len(ts.Processes) - 1
	}

	p := &ts.Processes[i]
	p.IsHealthy = true
	p.PendingRequests = pending
	p.ActiveWorkers = active
	p.CompletedRequests = completed
	p.LastUpdate = time.Now().Unix()
	p.CPUUsage = cpu
	p.QueueDepth = pending

	ts.TotalPendingRequests = 0
	ts.TotalActiveWorkers = 0
	for _, proc := range ts.Processes {
		ts.TotalPendingRequests += proc.PendingRequests
		ts.TotalActiveWorkers += proc.ActiveWorkers
	}
}

// GetTeamLoad implements View.
func (b *Board) GetTeamLoad(team string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ts := b.teamLocked(team); ts != nil {
		return ts.TotalPendingRequests
	}
	return 0
}

// LeastLoadedTeam implements View. Green wins ties.
func (b *Board) LeastLoadedTeam() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.green.TotalPendingRequests <= b.pink.TotalPendingRequests {
		return "green"
	}
	return "pink"
}

// IsShutdownRequested implements View.
func (b *Board) IsShutdownRequested() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shutdown
}

// RequestShutdown implements View.
func (b *Board) RequestShutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdown = true
	b.version++
}

// Get returns a copy of the whole board.
func (b *Board) Get() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snap := Snapshot{
		Version:           b.version,
		ShutdownRequested: b.shutdown,
		Green:             b.green,
		Pink:              b.pink,
		LastGlobalUpdate:  b.updated,
	}
	snap.Green.Processes = append([]ProcessStatus(nil), b.green.Processes...)
	snap.Pink.Processes = append([]ProcessStatus(nil), b.pink.Processes...)
	return snap
}

func (b *Board) teamLocked(team string) *TeamStatus {
	switch team {
	case "green":
		return &b.green
	case "pink":
		return &b.pink
	}
	return nil
}

// updateRequest is the body of POST /status/update and /status/attach.
type updateRequest struct {
	ProcessID         string  `json:"process_id"`
	PendingRequests   int     `json:"pending_requests"`
	ActiveWorkers     int     `json:"active_workers"`
	CompletedRequests int     `json:"completed_requests"`
	CPUUsage          float64 `json:"cpu_usage"`
}

// Handler returns the HTTP surface of the board:
//
//	POST /status/attach        register a process slot
//	POST /status/update        publish counters
//	GET  /status/team/{team}   team load snapshot
//	GET  /status/least-loaded  routing hint
//	GET  /status/shutdown      shutdown flag
//	POST /status/shutdown      request shutdown
//	GET  /status               full snapshot (debugging)
func (b *Board) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/status/attach", b.handleUpdate).Methods(http.MethodPost)
	r.HandleFunc("/status/update", b.handleUpdate).Methods(http.MethodPost)

	r.HandleFunc("/status/team/{team}", func(w http.ResponseWriter, req *http.Request) {
		team := mux.Vars(req)["team"]
		if team != "green" && team != "pink" {
			http.Error(w, "unknown team", http.StatusNotFound)
			return
		}
		writeJSON(w, struct {
			Team string `json:"team"`
			Load int    `json:"load"`
		}{Team: team, Load: b.GetTeamLoad(team)})
	}).Methods(http.MethodGet)

	r.HandleFunc("/status/least-loaded", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, struct {
			Team string `json:"team"`
		}{Team: b.LeastLoadedTeam()})
	}).Methods(http.MethodGet)

	r.HandleFunc("/status/shutdown", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, struct {
			Shutdown bool `json:"shutdown"`
		}{Shutdown: b.IsShutdownRequested()})
	}).Methods(http.MethodGet)

	r.HandleFunc("/status/shutdown", func(w http.ResponseWriter, _ *http.Request) {
		b.RequestShutdown()
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)

	r.HandleFunc("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, b.Get())
	}).Methods(http.MethodGet)

	return r
}

func (b *Board) handleUpdate(w http.ResponseWriter, req *http.Request) {
	var u updateRequest
	if err := json.NewDecoder(req.Body).Decode(&u); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if u.ProcessID == "" {
		http.Error(w, "missing process_id", http.StatusBadRequest)
		return
	}
	if TeamFor(u.ProcessID) == "" {
		http.Error(w, "unknown process id", http.StatusBadRequest)
		return
	}
	b.UpdateProcessStatus(u.ProcessID, u.PendingRequests, u.ActiveWorkers, u.CompletedRequests, u.CPUUsage)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Serve runs the board's HTTP exchange on addr until the server stops.
// Intended to be run in its own goroutine by the root leader.
func (b *Board) Serve(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           b.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
