package output

import (
	"testing"
	"time"

	"github.com/erfi/goload/internal/client"
	"github.com/erfi/goload/internal/config"
	"github.com/erfi/goload/internal/metrics"
	"github.com/erfi/goload/internal/threshold"
	"github.com/fatih/color"
)

func init() {
	color.NoColor = true
}

func sampleReport() *Report {
	limit := func(v float64) *float64 { return &v }
	snap := &metrics.Snapshot{
		Count:        1000,
		SuccessCount: 985,
		FailureCount: 15,
		SuccessRate:  0.985,
		FailureRate:  0.015,
		FailuresByKind: map[client.ErrorKind]int64{
			client.KindHTTPStatus: 10,
			client.KindSLABreach:  5,
		},
		StatusCodes: map[int]int64{200: 990, 404: 10},
		Checks: []metrics.CheckStats{
			{Name: client.CheckStatusOK, Passes: 990, Fails: 10},
			{Name: client.CheckHasOrder, Passes: 990, Fails: 10},
			{Name: client.CheckWithinSLA, Passes: 995, Fails: 5},
		},
		Phases: []metrics.PhaseStats{
			{Name: metrics.PhaseDNSLookup, Count: 50, Mean: metrics.Duration(2 * time.Millisecond)},
			{Name: metrics.PhaseConnect, Count: 50, Mean: metrics.Duration(4 * time.Millisecond)},
			{Name: metrics.PhaseTLSHandshake},
			{Name: metrics.PhaseTimeToFirstByte, Count: 1000, Mean: metrics.Duration(75 * time.Millisecond)},
		},
		Elapsed:     metrics.Duration(10 * time.Second),
		Throughput:  100,
		MinLatency:  metrics.Duration(2 * time.Millisecond),
		MaxLatency:  metrics.Duration(1500 * time.Millisecond),
		MeanLatency: metrics.Duration(80 * time.Millisecond),
		P50:         metrics.Duration(60 * time.Millisecond),
		P90:         metrics.Duration(150 * time.Millisecond),
		P95:         metrics.Duration(300 * time.Millisecond),
		P99:         metrics.Duration(950 * time.Millisecond),
		P999:        metrics.Duration(1400 * time.Millisecond),
		Histogram:   map[int]int64{0: 200, 5: 700, 30: 95, 150: 5},
	}
	verdict := threshold.Evaluate(snap, threshold.Thresholds{
		MaxFailureRate:  limit(0.01),
		MaxP99LatencyMs: limit(1000),
	})

	return &Report{
		RunID:   "2Hx1bWq9ZkTq6oYfKcPOiZ7cXyA",
		Name:    "GetOrder",
		BaseURL: "http://localhost:8081",
		Started: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Stages:  []config.Stage{{DurationSeconds: 10, TargetConcurrency: 50}},
		Run:     RunInfo{VUsSpawned: 50, VUsPeak: 50, Elapsed: metrics.Duration(10 * time.Second)},
		Metrics: snap,
		Verdict: verdict,
	}
}

func TestGetFormatter(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"table", "*output.TableFormatter"},
		{"", "*output.TableFormatter"},
		{"json", "*output.JSONFormatter"},
		{"graph", "*output.GraphFormatter"},
		{"prom", "*output.PromFormatter"},
	}

	for _, tt := range tests {
		f, err := GetFormatter(tt.format, false)
		if err != nil {
			t.Fatalf("GetFormatter(%q) failed: %v", tt.format, err)
		}
		if got := typeName(f); got != tt.want {
			t.Errorf("GetFormatter(%q): expected %s, got %s", tt.format, tt.want, got)
		}
	}

	if _, err := GetFormatter("xml", false); err == nil {
		t.Error("expected error for unknown format")
	}
}

func typeName(f Formatter) string {
	switch f.(type) {
	case *TableFormatter:
		return "*output.TableFormatter"
	case *JSONFormatter:
		return "*output.JSONFormatter"
	case *GraphFormatter:
		return "*output.GraphFormatter"
	case *PromFormatter:
		return "*output.PromFormatter"
	default:
		return "unknown"
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "0.50ms"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.50s"},
	}
	for _, tt := range tests {
		if got := formatDuration(metrics.Duration(tt.d)); got != tt.want {
			t.Errorf("formatDuration(%v): expected %s, got %s", tt.d, tt.want, got)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(1, 4); got != "25.0%" {
		t.Errorf("Expected 25.0%%, got %s", got)
	}
	if got := formatPercent(1, 0); got != "0.0%" {
		t.Errorf("Expected 0.0%%, got %s", got)
	}
}
