package scheduler

import (
	"math"
	"time"

	"github.com/erfi/goload/internal/config"
)

// DesiredAt returns the target concurrency at elapsed run time. Each stage
// ramps linearly from the previous stage's target (0 for the first stage) to
// its own. After the last stage the final target holds.
func DesiredAt(stages []config.Stage, elapsed time.Duration) int {
	prev := 0
	var start time.Duration

	for _, st := range stages {
		d := st.Duration()
		end := start + d
		if elapsed < end {
			frac := float64(elapsed-start) / float64(d)
			if frac < 0 {
				frac = 0
			}
			return int(math.Round(float64(prev) + float64(st.TargetConcurrency-prev)*frac))
		}
		prev = st.TargetConcurrency
		start = end
	}

	return prev
}

// TotalDuration is the sum of the stage durations
func TotalDuration(stages []config.Stage) time.Duration {
	var total time.Duration
	for _, st := range stages {
		total += st.Duration()
	}
	return total
}

// Segment describes one stage on the run timeline
type Segment struct {
	Index int
	Start time.Duration
	End   time.Duration
	From  int
	To    int
}

// Plan lays the stages out on the run timeline
func Plan(stages []config.Stage) []Segment {
	segments := make([]Segment, 0, len(stages))
	prev := 0
	var start time.Duration

	for i, st := range stages {
		end := start + st.Duration()
		segments = append(segments, Segment{
			Index: i,
			Start: start,
			End:   end,
			From:  prev,
			To:    st.TargetConcurrency,
		})
		prev = st.TargetConcurrency
		start = end
	}

	return segments
}

// Peak returns the highest target concurrency of the plan
func Peak(stages []config.Stage) int {
	peak := 0
	for _, st := range stages {
		peak = max(peak, st.TargetConcurrency)
	}
	return peak
}
