package wire

import "fmt"

// Record is one air-quality observation as stored in the partitioned
// dataset. Records are immutable once parsed; nodes copy them into
// chunks verbatim and never mutate them in flight.
type Record struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	Timestamp        string  `json:"timestamp"`
	Pollutant        string  `json:"pollutant"`
	Concentration    float64 `json:"concentration"`
	Unit             string  `json:"unit"`
	RawConcentration float64 `json:"raw_concentration"`
	AQI              int32   `json:"aqi"`
	AQICategory      int32   `json:"aqi_category"`
	SiteName         string  `json:"site_name"`
	Agency           string  `json:"agency"`
	SiteID           string  `json:"site_id"`
	FullSiteID       string  `json:"full_site_id"`
}

// QueryRequest is the client-facing query. Dates are YYYYMMDD strings
// compared lexicographically; MaxRecords of -1 means unlimited.
type QueryRequest struct {
	RequestID     string  `json:"request_id"`
	DateStart     string  `json:"date_start"`
	DateEnd       string  `json:"date_end"`
	PollutantType string  `json:"pollutant_type"`
	LatitudeMin   float64 `json:"latitude_min"`
	LatitudeMax   float64 `json:"latitude_max"`
	LongitudeMin  float64 `json:"longitude_min"`
	LongitudeMax  float64 `json:"longitude_max"`
	MaxRecords    int32   `json:"max_records"`
	ChunkSize     int32   `json:"chunk_size"`
}

// Validate checks the request invariants: date ordering, bounding box
// within +/-90 / +/-180, and a usable chunk size (0 means "use the
// server default"; negatives are rejected).
func (q *QueryRequest) Validate() error {
	if q.DateStart == "" || q.DateEnd == "" {
		return fmt.Errorf("date range is required")
	}
	if q.DateStart > q.DateEnd {
		return fmt.Errorf("date_start %q after date_end %q", q.DateStart, q.DateEnd)
	}
	if q.LatitudeMin < -90 || q.LatitudeMax > 90 || q.LatitudeMin > q.LatitudeMax {
		return fmt.Errorf("latitude range [%v, %v] out of bounds", q.LatitudeMin, q.LatitudeMax)
	}
	if q.LongitudeMin < -180 || q.LongitudeMax > 180 || q.LongitudeMin > q.LongitudeMax {
		return fmt.Errorf("longitude range [%v, %v] out of bounds", q.LongitudeMin, q.LongitudeMax)
	}
	if q.ChunkSize < 0 {
		return fmt.Errorf("chunk_size %d must not be negative", q.ChunkSize)
	}
	return nil
}

// DelegationRequest carries a query one hop down the tree. The
// original query travels as its canonical encoding so every node
// re-parses exactly what the client sent.
type DelegationRequest struct {
	RequestID         string `json:"request_id"`
	DelegatingProcess string `json:"delegating_process"`
	OriginalQuery     []byte `json:"original_query"`
}

// Chunk is one server-streaming message in either direction.
//
// Downstream (Delegate) chunks number from 0 per producer and leave
// IsFinal false; end-of-stream is the source of truth. Upstream
// (Query) chunks are renumbered by the root, and the stream is
// terminated by exactly one final chunk carrying the totals.
type Chunk struct {
	RequestID     string   `json:"request_id"`
	ChunkNumber   int32    `json:"chunk_number"`
	TotalChunks   int32    `json:"total_chunks"`
	IsFinal       bool     `json:"is_final"`
	TotalRecords  int32    `json:"total_records"`
	SourceProcess string   `json:"source_process"`
	Records       []Record `json:"records"`
}

// HealthRequest asks any node for its liveness snapshot.
type HealthRequest struct{}

// HealthResponse reports a node's liveness and load counters.
type HealthResponse struct {
	RespondingProcess string `json:"responding_process"`
	IsHealthy         bool   `json:"is_healthy"`
	PendingRequests   int32  `json:"pending_requests"`
	ActiveWorkers     int32  `json:"active_workers"`
}

// CancelRequest acknowledges-only cancellation surface for a request id.
type CancelRequest struct {
	RequestID string `json:"request_id"`
}

// CancelResponse acks a CancelRequest.
type CancelResponse struct {
	RequestID string `json:"request_id"`
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message"`
}
