// Package config loads and validates the static process configuration
// every firequery binary takes as its single positional argument.
//
// The topology is static: each process knows its own identity, the
// dates it owns, and its outgoing edges. There is no dynamic
// membership; a config file is the whole truth for one process.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Roles a process can be configured as.
const (
	RoleLeader     = "leader"
	RoleTeamLeader = "team_leader"
	RoleWorker     = "worker"
)

// Teams in the fixed two-team topology.
const (
	TeamGreen = "green"
	TeamPink  = "pink"
)

// Edge relationships.
const (
	RelTeamLeader = "team_leader"
	RelWorker     = "worker"
)

// Edge is one outgoing call edge in the static topology.
type Edge struct {
	To           string `yaml:"to"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Relationship string `yaml:"relationship"`
	Team         string `yaml:"team"`
}

// Target returns the dialable host:port for the edge.
func (e Edge) Target() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Partitioning describes the dates this process is authoritative for.
// Partitions are disjoint across all leaves.
type Partitioning struct {
	Strategy   string   `yaml:"strategy"`
	OwnedDates []string `yaml:"owned_dates"`
}

// ChunkConfig bounds the record count per streamed chunk.
type ChunkConfig struct {
	DefaultChunkSize int `yaml:"default_chunk_size"`
	MaxChunkSize     int `yaml:"max_chunk_size"`
	MinChunkSize     int `yaml:"min_chunk_size"`
}

// Process is the full configuration of one server process.
type Process struct {
	ProcessID    string       `yaml:"process_id"`
	Role         string       `yaml:"role"`
	ListenHost   string       `yaml:"listen_host"`
	ListenPort   int          `yaml:"listen_port"`
	DataPath     string       `yaml:"data_path"`
	Team         string       `yaml:"team"`
	IsTeamLeader bool         `yaml:"is_team_leader"`
	StatusAddr   string       `yaml:"status_addr"`
	Edges        []Edge       `yaml:"edges"`
	Partitioning Partitioning `yaml:"data_partitioning"`
	Chunking     ChunkConfig  `yaml:"chunk_config"`
}

// Load reads, env-overrides and validates a process configuration.
//
// FIRE_DATA_PATH, when set and non-empty, overrides data_path so a
// whole tree can be pointed at a dataset without editing files.
func Load(path string) (*Process, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	p := new(Process)
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if env := os.Getenv("FIRE_DATA_PATH"); env != "" {
		p.DataPath = env
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return p, nil
}

func (p *Process) validate() error {
	if p.ProcessID == "" {
		return fmt.Errorf("process_id is required")
	}
	switch p.Role {
	case RoleLeader, RoleTeamLeader, RoleWorker:
	default:
		return fmt.Errorf("unknown role %q", p.Role)
	}
	if p.ListenPort <= 0 || p.ListenPort > 65535 {
		return fmt.Errorf("listen_port %d out of range", p.ListenPort)
	}
	if p.Role != RoleLeader && p.Team != TeamGreen && p.Team != TeamPink {
		return fmt.Errorf("role %s requires team green or pink, got %q", p.Role, p.Team)
	}
	if p.Role == RoleLeader && len(p.TeamLeaderEdges()) == 0 {
		return fmt.Errorf("leader has no team_leader edges")
	}

	c := p.Chunking
	if c.MinChunkSize < 1 {
		return fmt.Errorf("min_chunk_size %d must be >= 1", c.MinChunkSize)
	}
	if c.DefaultChunkSize < c.MinChunkSize || c.DefaultChunkSize > c.MaxChunkSize {
		return fmt.Errorf("default_chunk_size %d outside [%d, %d]",
			c.DefaultChunkSize, c.MinChunkSize, c.MaxChunkSize)
	}

	for i, e := range p.Edges {
		if e.To == "" || e.Host == "" || e.Port <= 0 {
			return fmt.Errorf("edge %d incomplete: %+v", i, e)
		}
		if e.Relationship != RelTeamLeader && e.Relationship != RelWorker {
			return fmt.Errorf("edge %d has unknown relationship %q", i, e.Relationship)
		}
	}
	return nil
}

// ListenAddr returns the host:port this process serves on.
func (p *Process) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.ListenHost, p.ListenPort)
}

// TeamLeaderEdges returns the outgoing team_leader edges in configured
// order. Order matters: the multiplexer scans teams in this order.
func (p *Process) TeamLeaderEdges() []Edge {
	return p.edgesByRel(RelTeamLeader)
}

// WorkerEdges returns the outgoing worker edges in configured order.
// Team leaders call workers sequentially in exactly this order.
func (p *Process) WorkerEdges() []Edge {
	return p.edgesByRel(RelWorker)
}

func (p *Process) edgesByRel(rel string) []Edge {
	var out []Edge
	for _, e := range p.Edges {
		if e.Relationship == rel {
			out = append(out, e)
		}
	}
	return out
}

// TeamLeaderFor returns the team_leader edge for the named team, or
// false when the topology has none.
func (p *Process) TeamLeaderFor(team string) (Edge, bool) {
	for _, e := range p.TeamLeaderEdges() {
		if e.Team == team {
			return e, true
		}
	}
	return Edge{}, false
}

// ChunkSizeFor resolves the effective chunk size for a query: the
// query's requested size when positive, clamped to the configured
// bounds, otherwise the configured default.
func (p *Process) ChunkSizeFor(requested int32) int {
	size := int(requested)
	if size <= 0 {
		return p.Chunking.DefaultChunkSize
	}
	if size < p.Chunking.MinChunkSize {
		return p.Chunking.MinChunkSize
	}
	if size > p.Chunking.MaxChunkSize {
		return p.Chunking.MaxChunkSize
	}
	return size
}
