// Package metrics appends structured query-lifecycle events to a CSV
// file, one row per event, flushed immediately. The sink is advisory
// observability: failure to open the file is a warning and every
// subsequent event is silently dropped, never a query failure.
package metrics

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Header is the fixed column layout of every metrics file.
const Header = "wall_ms,steady_ms,event,request_id,process,role,hostname,pid,thread_id," +
	"queue_depth,active_count,chunk_number,records,extra"

// Sink writes events for one process. A nil *Sink is valid and drops
// every event, so callers never need to guard their telemetry.
type Sink struct {
	mu        sync.Mutex
	file      *os.File
	processID string
	role      string
	hostname  string
	pid       int
	start     time.Time
	enabled   bool
}

// New opens a sink rooted at dirOrPath. A path ending in .csv is used
// verbatim; anything else is treated as a directory and the file is
// named metrics-<role>-<process>-<hostname>[-<pid>-<startms>].csv
// inside it.
//
// Environment knobs (1/true/yes):
//
//	METRICS_OVERWRITE        truncate instead of append
//	METRICS_FILENAME_UNIQUE  append -<pid>-<startms> to the name
//
// Open failures log a warning and return a disabled sink.
func New(dirOrPath, processID, role string) *Sink {
	s := &Sink{
		processID: processID,
		role:      role,
		hostname:  hostname(),
		pid:       os.Getpid(),
		start:     time.Now(),
	}

	path := dirOrPath
	if !strings.HasSuffix(path, ".csv") {
		if err := os.MkdirAll(dirOrPath, 0o755); err != nil {
			log.Printf("warning: metrics dir %s: %v", dirOrPath, err)
			return s
		}
		name := fmt.Sprintf("metrics-%s-%s-%s", sanitize(role), sanitize(processID), sanitize(s.hostname))
		if envTrue("METRICS_FILENAME_UNIQUE") {
			name = fmt.Sprintf("%s-%d-%d", name, s.pid, s.start.UnixMilli())
		}
		path = filepath.Join(dirOrPath, name+".csv")
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if envTrue("METRICS_OVERWRITE") {
		flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		log.Printf("warning: failed to open metrics file %s: %v", path, err)
		return s
	}

	s.file = file
	s.enabled = true

	// Only a fresh (or truncated) file gets the header; appending to
	// an earlier run must not repeat it.
	if info, err := file.Stat(); err == nil && info.Size() == 0 {
		fmt.Fprintln(file, Header)
	}
	return s
}

// LogEvent appends one event row. Counter arguments that do not apply
// to an event are passed as -1, matching the analysis tooling's
// expectations. Extra is newline-sanitized and CSV-escaped.
func (s *Sink) LogEvent(event, requestID string, queueDepth, activeCount, chunkNumber, records int, extra string) {
	if s == nil {
		return
	}

	wallMs := time.Now().UnixMilli()
	steadyMs := time.Since(s.start).Milliseconds()
	tid := goroutineID()
	extra = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return ' '
		}
		return r
	}, extra)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}

	fmt.Fprintf(s.file, "%d,%d,%s,%s,%s,%s,%s,%d,%s,%d,%d,%d,%d,%s\n",
		wallMs, steadyMs,
		escape(event), escape(requestID),
		escape(s.processID), escape(s.role), escape(s.hostname),
		s.pid, tid,
		queueDepth, activeCount, chunkNumber, records,
		escape(extra))
	s.file.Sync()
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		s.file.Close()
		s.enabled = false
	}
}

// escape quotes a field when it contains a delimiter, quote or line
// break, doubling interior quotes.
func escape(in string) string {
	if !strings.ContainsAny(in, "\",\n\r") {
		return in
	}
	return `"` + strings.ReplaceAll(in, `"`, `""`) + `"`
}

func sanitize(in string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':', '\n', '\r', '\t':
			return '-'
		}
		return r
	}, in)
}

func envTrue(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown-host"
	}
	return h
}

// goroutineID extracts the current goroutine's id from the runtime
// stack header ("goroutine N [running]:"). It fills the thread_id
// column the way the thread id does elsewhere; it is for log
// correlation only and nothing keys off it.
func goroutineID() string {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i > 0 {
		if _, err := strconv.Atoi(string(buf[:i])); err == nil {
			return string(buf[:i])
		}
	}
	return "0"
}
