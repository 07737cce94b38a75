package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/erfi/goload/internal/client"
)

const (
	// MaxTrackableLatency is the histogram ceiling. Slower requests are
	// clamped to it and counted in Snapshot.LatencyOverflow.
	MaxTrackableLatency = 60 * time.Second

	minTrackableMicros = 1
	maxTrackableMicros = int64(MaxTrackableLatency / time.Microsecond)
	significantFigures = 3
)

// Aggregator accumulates request outcomes from concurrent workers.
// Record is the only mutation path; memory use is fixed regardless of
// how many outcomes are recorded.
type Aggregator struct {
	mu sync.Mutex

	hist     *hdrhistogram.Histogram
	count    int64
	success  int64
	failure  int64
	byKind   map[client.ErrorKind]int64
	status   map[int]int64
	checks   []int64 // passes, indexed like client.CheckNames
	phases   []phaseSum
	reused   int64
	overflow int64
	sumMicro int64
	minMicro int64
	maxMicro int64

	discarded int64
	sealed    bool
	startTime time.Time
	endTime   time.Time
}

// NewAggregator creates an aggregator whose throughput clock starts now
func NewAggregator() *Aggregator {
	return &Aggregator{
		hist:      hdrhistogram.New(minTrackableMicros, maxTrackableMicros, significantFigures),
		byKind:    make(map[client.ErrorKind]int64, len(client.ErrorKinds)),
		status:    make(map[int]int64),
		checks:    make([]int64, len(client.CheckNames)),
		phases:    make([]phaseSum, len(PhaseNames)),
		minMicro:  math.MaxInt64,
		startTime: time.Now(),
	}
}

// Record folds one outcome into the aggregate. It returns false when the
// aggregator is sealed, in which case the outcome is discarded.
func (a *Aggregator) Record(o client.Outcome) bool {
	us := o.Latency.Microseconds()
	if us < minTrackableMicros {
		us = minTrackableMicros
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sealed {
		a.discarded++
		return false
	}

	a.count++
	if o.Success {
		a.success++
	} else {
		a.failure++
		a.byKind[o.ErrorKind]++
	}

	if o.StatusCode > 0 {
		a.status[o.StatusCode]++
	}
	for i, name := range client.CheckNames {
		if o.Checks.Passed(name) {
			a.checks[i]++
		}
	}
	if o.ConnectionReused {
		a.reused++
	}
	for i, d := range phaseDurations(o.Timing) {
		if d > 0 {
			a.phases[i].sum += d
			a.phases[i].n++
		}
	}

	if us > maxTrackableMicros {
		a.overflow++
		us = maxTrackableMicros
	}
	// Cannot fail: us is clamped to the trackable range above.
	_ = a.hist.RecordValue(us)

	a.sumMicro += us
	a.minMicro = min(a.minMicro, us)
	a.maxMicro = max(a.maxMicro, us)

	return true
}

// Seal stops accepting outcomes and freezes the elapsed clock.
// Outcomes recorded afterwards are counted as discarded.
func (a *Aggregator) Seal() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.sealed {
		a.sealed = true
		a.endTime = time.Now()
	}
}

// Sealed reports whether Seal has been called
func (a *Aggregator) Sealed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sealed
}

// Snapshot returns a consistent point-in-time view. It does not modify the
// aggregate. An *AggregationError is returned if the counters are inconsistent.
func (a *Aggregator) Snapshot() (*Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.verify(); err != nil {
		return nil, err
	}

	end := a.endTime
	if !a.sealed {
		end = time.Now()
	}
	elapsed := end.Sub(a.startTime)

	s := &Snapshot{
		Count:             a.count,
		SuccessCount:      a.success,
		FailureCount:      a.failure,
		FailuresByKind:    make(map[client.ErrorKind]int64, len(a.byKind)),
		StatusCodes:       make(map[int]int64, len(a.status)),
		Checks:            make([]CheckStats, len(client.CheckNames)),
		Phases:            make([]PhaseStats, len(PhaseNames)),
		ConnectionsReused: a.reused,
		Discarded:         a.discarded,
		LatencyOverflow:   a.overflow,
		Elapsed:           Duration(elapsed),
	}

	for k, v := range a.byKind {
		s.FailuresByKind[k] = v
	}
	for k, v := range a.status {
		s.StatusCodes[k] = v
	}
	for i, name := range client.CheckNames {
		s.Checks[i] = CheckStats{Name: name, Passes: a.checks[i], Fails: a.count - a.checks[i]}
	}

	for i, name := range PhaseNames {
		p := a.phases[i]
		s.Phases[i] = PhaseStats{Name: name, Count: p.n}
		if p.n > 0 {
			s.Phases[i].Mean = Duration(p.sum / time.Duration(p.n))
		}
	}

	if elapsed > 0 {
		s.Throughput = float64(a.count) / elapsed.Seconds()
	}

	if a.count == 0 {
		return s, nil
	}

	s.SuccessRate = float64(a.success) / float64(a.count)
	s.FailureRate = float64(a.failure) / float64(a.count)
	s.MinLatency = micros(a.minMicro)
	s.MaxLatency = micros(a.maxMicro)
	s.MeanLatency = micros(a.sumMicro / a.count)
	s.P50 = micros(a.hist.ValueAtQuantile(50))
	s.P90 = micros(a.hist.ValueAtQuantile(90))
	s.P95 = micros(a.hist.ValueAtQuantile(95))
	s.P99 = micros(a.hist.ValueAtQuantile(99))
	if a.count >= 1000 {
		s.P999 = micros(a.hist.ValueAtQuantile(99.9))
	}
	s.Histogram = a.buckets()

	return s, nil
}

// verify checks the aggregate invariants. Callers hold a.mu.
func (a *Aggregator) verify() error {
	if a.count < 0 || a.success < 0 || a.failure < 0 || a.discarded < 0 {
		return invariantError("non-negative counts", "count=%d success=%d failure=%d discarded=%d",
			a.count, a.success, a.failure, a.discarded)
	}
	if a.count != a.success+a.failure {
		return invariantError("count == success + failure", "count=%d success=%d failure=%d",
			a.count, a.success, a.failure)
	}
	if total := a.hist.TotalCount(); total != a.count {
		return invariantError("histogram total == count", "histogram=%d count=%d", total, a.count)
	}

	var kinds int64
	for _, v := range a.byKind {
		kinds += v
	}
	if kinds != a.failure {
		return invariantError("failures by kind == failure", "by_kind=%d failure=%d", kinds, a.failure)
	}

	for i, passes := range a.checks {
		if passes < 0 || passes > a.count {
			return invariantError("check passes within count", "check=%q passes=%d count=%d",
				client.CheckNames[i], passes, a.count)
		}
	}

	for i, p := range a.phases {
		if p.n < 0 || p.n > a.count || p.sum < 0 {
			return invariantError("phase samples within count", "phase=%q samples=%d count=%d",
				PhaseNames[i], p.n, a.count)
		}
	}

	return nil
}

// buckets folds the HDR distribution into fixed-width buckets for display
func (a *Aggregator) buckets() map[int]int64 {
	out := make(map[int]int64)
	for _, bar := range a.hist.Distribution() {
		if bar.Count == 0 {
			continue
		}
		bucket := int(bar.From / 1000 / HistogramBucketWidthMs)
		out[bucket] += bar.Count
	}
	return out
}

type phaseSum struct {
	sum time.Duration
	n   int64
}

// phaseDurations orders a breakdown like PhaseNames
func phaseDurations(t client.TimingBreakdown) [4]time.Duration {
	return [4]time.Duration{
		time.Duration(t.DNSLookup),
		time.Duration(t.Connect),
		time.Duration(t.TLSHandshake),
		time.Duration(t.TimeToFirstByte),
	}
}

func micros(v int64) Duration {
	return Duration(time.Duration(v) * time.Microsecond)
}
