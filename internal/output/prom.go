package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/erfi/goload/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const promNamespace = "goload"

// PromFormatter renders the report in the Prometheus text exposition format,
// suitable for a node_exporter textfile collector or a pushgateway
type PromFormatter struct{}

// NewPromFormatter creates a new Prometheus formatter
func NewPromFormatter() *PromFormatter {
	return &PromFormatter{}
}

// Format renders the report as exposition text
func (f *PromFormatter) Format(report *Report) (string, error) {
	var buf strings.Builder
	if err := f.Write(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write writes every metric family of the report
func (f *PromFormatter) Write(w io.Writer, report *Report) error {
	families, err := Gather(report)
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Gather registers the report metrics in a fresh registry and returns them
func Gather(report *Report) ([]*dto.MetricFamily, error) {
	s := report.Metrics
	if s == nil {
		return nil, fmt.Errorf("report has no metrics")
	}

	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"name": report.Name}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "requests_total",
		Help:      "Requests completed during the run, by result",
	}, []string{"name", "result"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "request_failures_total",
		Help:      "Failed requests by error kind",
	}, []string{"name", "kind"})
	responses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "responses_total",
		Help:      "Responses by HTTP status code",
	}, []string{"name", "code"})
	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "checks_total",
		Help:      "Per-request check results",
	}, []string{"name", "check", "result"})
	phases := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "phase_duration_seconds",
		Help:      "Mean duration of a connection phase over the requests that went through it",
	}, []string{"name", "phase"})
	throughput := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "requests_per_second",
		Help:      "Average request throughput over the run",
	}, []string{"name"})
	elapsed := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   promNamespace,
		Name:        "run_duration_seconds",
		Help:        "Wall-clock duration of the run",
		ConstLabels: labels,
	})
	peak := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   promNamespace,
		Name:        "vus_peak",
		Help:        "Highest number of concurrent virtual users",
		ConstLabels: labels,
	})
	thresholds := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "threshold_passed",
		Help:      "1 if the threshold held, 0 if it was violated",
	}, []string{"name", "threshold"})
	passed := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   promNamespace,
		Name:        "run_passed",
		Help:        "1 if every threshold held",
		ConstLabels: labels,
	})

	for _, c := range []prometheus.Collector{
		requests, failures, responses, checks, phases, throughput, elapsed, peak, thresholds, passed,
		newLatencySummary(report.Name, s),
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metric: %w", err)
		}
	}

	requests.WithLabelValues(report.Name, "success").Add(float64(s.SuccessCount))
	requests.WithLabelValues(report.Name, "failure").Add(float64(s.FailureCount))
	for kind, n := range s.FailuresByKind {
		failures.WithLabelValues(report.Name, string(kind)).Add(float64(n))
	}
	for code, n := range s.StatusCodes {
		responses.WithLabelValues(report.Name, strconv.Itoa(code)).Add(float64(n))
	}
	for _, c := range s.Checks {
		checks.WithLabelValues(report.Name, c.Name, "pass").Add(float64(c.Passes))
		checks.WithLabelValues(report.Name, c.Name, "fail").Add(float64(c.Fails))
	}
	for _, p := range s.Phases {
		if p.Count > 0 {
			phases.WithLabelValues(report.Name, p.Name).Set(p.Mean.Seconds())
		}
	}
	throughput.WithLabelValues(report.Name).Set(s.Throughput)
	elapsed.Set(s.Elapsed.Seconds())
	peak.Set(float64(report.Run.VUsPeak))
	for _, r := range report.Verdict.Results {
		thresholds.WithLabelValues(report.Name, string(r.ID)).Set(boolValue(r.Passed))
	}
	passed.Set(boolValue(report.Verdict.Passed))

	return reg.Gather()
}

// latencySummary exposes the aggregated percentiles as a constant summary
type latencySummary struct {
	desc     *prometheus.Desc
	name     string
	snapshot *metrics.Snapshot
}

func newLatencySummary(name string, s *metrics.Snapshot) *latencySummary {
	return &latencySummary{
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(promNamespace, "", "request_duration_seconds"),
			"Request latency",
			[]string{"name"}, nil,
		),
		name:     name,
		snapshot: s,
	}
}

func (l *latencySummary) Describe(ch chan<- *prometheus.Desc) {
	ch <- l.desc
}

func (l *latencySummary) Collect(ch chan<- prometheus.Metric) {
	s := l.snapshot
	quantiles := map[float64]float64{
		0.5:  s.P50.Seconds(),
		0.9:  s.P90.Seconds(),
		0.95: s.P95.Seconds(),
		0.99: s.P99.Seconds(),
	}
	if s.P999 > 0 {
		quantiles[0.999] = s.P999.Seconds()
	}
	sum := s.MeanLatency.Seconds() * float64(s.Count)
	ch <- prometheus.MustNewConstSummary(l.desc, uint64(s.Count), sum, quantiles, l.name)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
