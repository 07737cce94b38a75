// Package threshold turns a final metrics snapshot into a pass/fail verdict.
package threshold

import (
	"fmt"
	"time"

	"github.com/erfi/goload/internal/config"
	"github.com/erfi/goload/internal/metrics"
)

// ThresholdID names a pass/fail criterion
type ThresholdID string

const (
	MaxFailureRate  ThresholdID = "maxFailureRate"
	MaxP99LatencyMs ThresholdID = "maxP99LatencyMs"
)

// Thresholds holds the configured limits. A nil limit is not evaluated.
type Thresholds struct {
	MaxFailureRate  *float64
	MaxP99LatencyMs *float64
}

// FromConfig converts config thresholds. A negative value disables a
// threshold; zero or more is an exclusive upper bound.
func FromConfig(c config.Thresholds) Thresholds {
	var t Thresholds
	if c.MaxFailureRate >= 0 {
		v := c.MaxFailureRate
		t.MaxFailureRate = &v
	}
	if c.MaxP99LatencyMs >= 0 {
		v := c.MaxP99LatencyMs
		t.MaxP99LatencyMs = &v
	}
	return t
}

// Result is the evaluation of one threshold
type Result struct {
	ID       ThresholdID `json:"id"`
	Limit    float64     `json:"limit"`
	Observed float64     `json:"observed"`
	Passed   bool        `json:"passed"`
	Vacuous  bool        `json:"vacuous,omitempty"`
}

func (r Result) String() string {
	status := "ok"
	if !r.Passed {
		status = "FAILED"
	}
	return fmt.Sprintf("%s: observed %.4g, limit %.4g (%s)", r.ID, r.Observed, r.Limit, status)
}

// Verdict is the outcome of a run
type Verdict struct {
	Passed   bool          `json:"passed"`
	Violated []ThresholdID `json:"violated_thresholds"`
	Results  []Result      `json:"results"`
}

// ExitCode maps the verdict to a process exit status
func (v Verdict) ExitCode() int {
	if v.Passed {
		return 0
	}
	return 1
}

// Evaluate checks the snapshot against every configured threshold. A limit is
// exclusive: the observed value passes only when it is strictly below it, so
// an observation equal to the limit fails. With no recorded requests every
// threshold passes vacuously.
func Evaluate(s *metrics.Snapshot, t Thresholds) Verdict {
	v := Verdict{Passed: true, Violated: []ThresholdID{}}

	var failureRate float64
	if s.Count > 0 {
		failureRate = float64(s.FailureCount) / float64(s.Count)
	}
	p99 := float64(time.Duration(s.P99)) / float64(time.Millisecond)

	checks := []struct {
		id       ThresholdID
		limit    *float64
		observed float64
	}{
		{MaxFailureRate, t.MaxFailureRate, failureRate},
		{MaxP99LatencyMs, t.MaxP99LatencyMs, p99},
	}

	for _, c := range checks {
		if c.limit == nil {
			continue
		}

		r := Result{ID: c.id, Limit: *c.limit, Observed: c.observed}
		if s.Count == 0 {
			r.Passed = true
			r.Vacuous = true
		} else {
			r.Passed = c.observed < *c.limit
		}

		if !r.Passed {
			v.Passed = false
			v.Violated = append(v.Violated, c.id)
		}
		v.Results = append(v.Results, r)
	}

	return v
}
