package output

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewJSONFormatter(t *testing.T) {
	formatter := NewJSONFormatter(false)

	if formatter == nil {
		t.Fatal("NewJSONFormatter returned nil")
	}

	if formatter.verbose {
		t.Error("verbose should be false")
	}
}

func TestJSONFormatterFormat(t *testing.T) {
	formatter := NewJSONFormatter(false)

	output, err := formatter.Format(sampleReport())
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}

	if parsed["run_id"] != "2Hx1bWq9ZkTq6oYfKcPOiZ7cXyA" {
		t.Errorf("run_id not correctly formatted: %v", parsed["run_id"])
	}

	m := parsed["metrics"].(map[string]interface{})
	if m["count"].(float64) != 1000 {
		t.Error("count not correctly formatted")
	}
	if m["p99"].(float64) != 950 {
		t.Errorf("Expected p99 950, got %v", m["p99"])
	}
	if _, ok := m["histogram"]; ok {
		t.Error("histogram should be omitted without verbose")
	}

	verdict := parsed["verdict"].(map[string]interface{})
	if verdict["passed"].(bool) {
		t.Error("verdict should fail")
	}
	violated := verdict["violated_thresholds"].([]interface{})
	if len(violated) != 1 || violated[0] != "maxFailureRate" {
		t.Errorf("Expected [maxFailureRate], got %v", violated)
	}
}

func TestJSONFormatterVerboseKeepsHistogram(t *testing.T) {
	report := sampleReport()

	var buf bytes.Buffer
	if err := NewJSONFormatter(true).Write(&buf, report); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var parsed struct {
		Metrics struct {
			Histogram map[string]int64 `json:"histogram"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("Invalid JSON output: %v", err)
	}
	if parsed.Metrics.Histogram["5"] != 700 {
		t.Errorf("Expected bucket 5 to hold 700, got %v", parsed.Metrics.Histogram)
	}
}

func TestJSONFormatterDoesNotMutateReport(t *testing.T) {
	report := sampleReport()

	if _, err := NewJSONFormatter(false).Format(report); err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if report.Metrics.Histogram == nil {
		t.Error("Format should not strip the histogram from the caller's report")
	}
}
