package metrics

import (
	"github.com/erfi/goload/internal/client"
)

// Duration is an alias to client.Duration so snapshots marshal latencies in ms
type Duration = client.Duration

// CheckStats counts passes and failures of one named per-request check
type CheckStats struct {
	Name   string `json:"name"`
	Passes int64  `json:"passes"`
	Fails  int64  `json:"fails"`
}

// Connection phase names, in request order
const (
	PhaseDNSLookup       = "DNS Lookup"
	PhaseConnect         = "TCP Connection"
	PhaseTLSHandshake    = "TLS Handshake"
	PhaseTimeToFirstByte = "Time to First Byte"
)

// PhaseNames lists the phases in the order Snapshot.Phases reports them
var PhaseNames = []string{PhaseDNSLookup, PhaseConnect, PhaseTLSHandshake, PhaseTimeToFirstByte}

// PhaseStats is the mean duration of one connection phase. DNS, connect and
// TLS only happen on new connections, so Count covers just the requests
// where the phase was observed.
type PhaseStats struct {
	Name  string   `json:"name"`
	Count int64    `json:"count"`
	Mean  Duration `json:"mean"`
}

// Snapshot is a point-in-time view of the aggregated run metrics
type Snapshot struct {
	Count             int64                      `json:"count"`
	SuccessCount      int64                      `json:"success_count"`
	FailureCount      int64                      `json:"failure_count"`
	SuccessRate       float64                    `json:"success_rate"`
	FailureRate       float64                    `json:"failure_rate"`
	FailuresByKind    map[client.ErrorKind]int64 `json:"failures_by_kind"`
	StatusCodes       map[int]int64              `json:"status_codes"`
	Checks            []CheckStats               `json:"checks"`
	ConnectionsReused int64                      `json:"connections_reused"`
	Phases            []PhaseStats               `json:"phases"`
	Discarded         int64                      `json:"discarded"`
	LatencyOverflow   int64                      `json:"latency_overflow"`
	Elapsed           Duration                   `json:"elapsed"`
	Throughput        float64                    `json:"requests_per_second"`
	MinLatency        Duration                   `json:"min_latency"`
	MaxLatency        Duration                   `json:"max_latency"`
	MeanLatency       Duration                   `json:"mean_latency"`
	P50               Duration                   `json:"p50"`
	P90               Duration                   `json:"p90"`
	P95               Duration                   `json:"p95"`
	P99               Duration                   `json:"p99"`
	P999              Duration                   `json:"p99_9,omitempty"`
	Histogram         map[int]int64              `json:"histogram,omitempty"`
}

// HistogramBucketWidthMs is the width of one Snapshot.Histogram bucket.
// Bucket n covers [n*10ms, (n+1)*10ms).
const HistogramBucketWidthMs = 10
