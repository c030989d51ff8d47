package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
)

var httpClient = &http.Client{Timeout: 2 * time.Second}

// RemoteView is the child-side View: it talks to the root's Board
// over the HTTP exchange. Updates are fire-and-forget; reads degrade
// to safe defaults when the board is unreachable, because every
// consumer treats them as advisory.
type RemoteView struct {
	baseURL   string
	processID string
}

// Attach connects a process to the board at addr (host:port), retrying
// while the root comes up. The returned view is only handed out after
// a successful attach: a node that cannot reach the coordination
// surface must fail startup, the root has to be running first.
func Attach(ctx context.Context, addr, processID string) (*RemoteView, error) {
	v := &RemoteView{
		baseURL:   "http://" + addr,
		processID: processID,
	}

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return postJSON(ctx, v.baseURL+"/status/attach", updateRequest{ProcessID: processID}, nil)
		},
		NotifyFunc: func(lastErr error, attempt int) {
			log.Printf("status attach retry %d: %v", attempt, lastErr)
		},
		Attempts: 10,
		Delay:    400 * time.Millisecond,
		Clock:    clock.WallClock,
	})
	if err != nil {
		return nil, fmt.Errorf("attach to status board at %s: %w", addr, err)
	}

	log.Printf("attached to status board @ %s", addr)
	return v, nil
}

// UpdateProcessStatus implements View. Errors are swallowed after a
// warning; stale telemetry is acceptable.
func (v *RemoteView) UpdateProcessStatus(processID string, pending, active, completed int, cpu float64) {
	u := updateRequest{
		ProcessID:         processID,
		PendingRequests:   pending,
		ActiveWorkers:     active,
		CompletedRequests: completed,
		CPUUsage:          cpu,
	}
	if err := postJSON(context.Background(), v.baseURL+"/status/update", u, nil); err != nil {
		log.Printf("warning: status update failed: %v", err)
	}
}

// GetTeamLoad implements View; unreachable boards read as unloaded.
func (v *RemoteView) GetTeamLoad(team string) int {
	var out struct {
		Load int `json:"load"`
	}
	if err := getJSON(context.Background(), v.baseURL+"/status/team/"+team, &out); err != nil {
		return 0
	}
	return out.Load
}

// LeastLoadedTeam implements View; unreachable boards default green.
func (v *RemoteView) LeastLoadedTeam() string {
	var out struct {
		Team string `json:"team"`
	}
	if err := getJSON(context.Background(), v.baseURL+"/status/least-loaded", &out); err != nil {
		return "green"
	}
	return out.Team
}

// IsShutdownRequested implements View.
func (v *RemoteView) IsShutdownRequested() bool {
	var out struct {
		Shutdown bool `json:"shutdown"`
	}
	if err := getJSON(context.Background(), v.baseURL+"/status/shutdown", &out); err != nil {
		return false
	}
	return out.Shutdown
}

// RequestShutdown implements View.
func (v *RemoteView) RequestShutdown() {
	if err := postJSON(context.Background(), v.baseURL+"/status/shutdown", struct{}{}, nil); err != nil {
		log.Printf("warning: shutdown request failed: %v", err)
	}
}

func postJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
