package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromFormatterWrite(t *testing.T) {
	out, err := NewPromFormatter().Format(sampleReport())
	require.NoError(t, err)

	assert.Contains(t, out, "# TYPE goload_requests_total counter")
	assert.Contains(t, out, `goload_requests_total{name="GetOrder",result="success"} 985`)
	assert.Contains(t, out, `goload_requests_total{name="GetOrder",result="failure"} 15`)
	assert.Contains(t, out, `goload_request_failures_total{kind="http_status",name="GetOrder"} 10`)
	assert.Contains(t, out, `goload_responses_total{code="404",name="GetOrder"} 10`)
	assert.Contains(t, out, `goload_checks_total{check="response time < SLA",name="GetOrder",result="fail"} 5`)
	assert.Contains(t, out, "# TYPE goload_request_duration_seconds summary")
	assert.Contains(t, out, `goload_request_duration_seconds{name="GetOrder",quantile="0.99"} 0.95`)
	assert.Contains(t, out, `goload_request_duration_seconds_count{name="GetOrder"} 1000`)
	assert.Contains(t, out, `goload_threshold_passed{name="GetOrder",threshold="maxFailureRate"} 0`)
	assert.Contains(t, out, `goload_threshold_passed{name="GetOrder",threshold="maxP99LatencyMs"} 1`)
	assert.Contains(t, out, `goload_run_passed{name="GetOrder"} 0`)
	assert.Contains(t, out, `goload_vus_peak{name="GetOrder"} 50`)
	assert.Contains(t, out, `goload_phase_duration_seconds{name="GetOrder",phase="DNS Lookup"} 0.002`)
	assert.NotContains(t, out, `phase="TLS Handshake"`)
}

func TestGatherFamilies(t *testing.T) {
	families, err := Gather(sampleReport())
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"goload_requests_total",
		"goload_request_duration_seconds",
		"goload_requests_per_second",
		"goload_run_duration_seconds",
	} {
		assert.True(t, names[want], "missing family %s", want)
	}
}

func TestGatherRequiresMetrics(t *testing.T) {
	_, err := Gather(&Report{})
	assert.Error(t, err)
}
