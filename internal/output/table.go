package output

import (
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/erfi/goload/internal/client"
	"github.com/erfi/goload/internal/metrics"
	"github.com/erfi/goload/internal/threshold"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter formats output as a table
type TableFormatter struct {
	verbose bool
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(verbose bool) *TableFormatter {
	return &TableFormatter{verbose: verbose}
}

// Format renders the report as a string
func (f *TableFormatter) Format(report *Report) (string, error) {
	var buf strings.Builder
	if err := f.Write(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write writes the report as tables to the writer
func (f *TableFormatter) Write(w io.Writer, report *Report) error {
	s := report.Metrics
	if s == nil {
		return fmt.Errorf("report has no metrics")
	}

	writeSummary(w, report)

	// Latency statistics
	t := newTable(w, "Latency Statistics")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Min", formatDuration(s.MinLatency)})
	t.AppendRow(table.Row{"Max", formatDuration(s.MaxLatency)})
	t.AppendRow(table.Row{"Mean", formatDuration(s.MeanLatency)})
	t.AppendRow(table.Row{"Median (p50)", formatDuration(s.P50)})
	t.AppendRow(table.Row{"P90", formatDuration(s.P90)})
	t.AppendRow(table.Row{"P95", formatDuration(s.P95)})
	t.AppendRow(table.Row{"P99", formatDuration(s.P99)})
	if s.P999 > 0 {
		t.AppendRow(table.Row{"P99.9", formatDuration(s.P999)})
	}
	t.Render()

	if len(s.Checks) > 0 {
		fmt.Fprintln(w)
		ct := newTable(w, "Checks")
		ct.AppendHeader(table.Row{"Check", "Passes", "Fails", "Pass Rate"})
		for _, c := range s.Checks {
			ct.AppendRow(table.Row{c.Name, c.Passes, c.Fails, formatPercent(c.Passes, c.Passes+c.Fails)})
		}
		ct.Render()
	}

	if hasPhases(s.Phases) {
		fmt.Fprintln(w)
		pt := newTable(w, "Connection Phases")
		pt.AppendHeader(table.Row{"Phase", "Requests", "Mean"})
		for _, p := range s.Phases {
			if p.Count == 0 {
				continue
			}
			pt.AppendRow(table.Row{p.Name, p.Count, formatDuration(p.Mean)})
		}
		pt.Render()
	}

	if s.FailureCount > 0 {
		fmt.Fprintln(w)
		ft := newTable(w, "Failures by Kind")
		ft.AppendHeader(table.Row{"Kind", "Count", "% of Failures"})
		for _, kind := range client.ErrorKinds {
			n := s.FailuresByKind[kind]
			if n == 0 {
				continue
			}
			ft.AppendRow(table.Row{string(kind), n, formatPercent(n, s.FailureCount)})
		}
		ft.Render()
	}

	if len(s.StatusCodes) > 0 {
		fmt.Fprintln(w)
		st := newTable(w, "Status Code Distribution")
		st.AppendHeader(table.Row{"Status Code", "Count", "Percentage"})
		for _, code := range slices.Sorted(maps.Keys(s.StatusCodes)) {
			count := s.StatusCodes[code]
			st.AppendRow(table.Row{
				getStatusColor(code)("%d %s", code, http.StatusText(code)),
				count,
				formatPercent(count, s.Count),
			})
		}
		st.Render()
	}

	if f.verbose {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s\n", color.CyanString("Run Details:"))
		fmt.Fprintf(w, "  Run ID: %s\n", report.RunID)
		fmt.Fprintf(w, "  Started: %s\n", report.Started.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(w, "  VUs spawned: %d (peak %d)\n", report.Run.VUsSpawned, report.Run.VUsPeak)
		fmt.Fprintf(w, "  Connections reused: %d\n", s.ConnectionsReused)
		if s.LatencyOverflow > 0 {
			fmt.Fprintf(w, "  Latencies above histogram range: %d\n", s.LatencyOverflow)
		}
		if s.Discarded > 0 {
			fmt.Fprintf(w, "  Outcomes discarded after seal: %d\n", s.Discarded)
		}
	}

	fmt.Fprintln(w)
	writeVerdict(w, report.Verdict)
	return nil
}

func hasPhases(phases []metrics.PhaseStats) bool {
	for _, p := range phases {
		if p.Count > 0 {
			return true
		}
	}
	return false
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleLight)
	return t
}

// writeSummary prints the run header shared by the table and graph formats
func writeSummary(w io.Writer, report *Report) {
	s := report.Metrics
	fmt.Fprintf(w, "%s\n", color.CyanString("=== Load Test Results ==="))
	fmt.Fprintf(w, "Target: %s/order/{id}\n", report.BaseURL)
	fmt.Fprintf(w, "Total Requests: %d\n", s.Count)
	fmt.Fprintf(w, "Successful: %s (%s)\n", color.GreenString("%d", s.SuccessCount), formatPercent(s.SuccessCount, s.Count))
	fmt.Fprintf(w, "Failed: %s\n", color.RedString("%d", s.FailureCount))
	fmt.Fprintf(w, "Duration: %s\n", formatDuration(s.Elapsed))
	fmt.Fprintf(w, "Requests/sec: %.2f\n", s.Throughput)
	if report.Run.Interrupted {
		fmt.Fprintf(w, "%s\n", color.YellowString("Run was interrupted before the last stage ended"))
	}
	if report.Run.Abandoned > 0 {
		fmt.Fprintf(w, "%s\n", color.YellowString("%d workers abandoned after the grace period", report.Run.Abandoned))
	}
	fmt.Fprintln(w)
}

func writeVerdict(w io.Writer, v threshold.Verdict) {
	for _, r := range v.Results {
		mark := color.GreenString("✓")
		if !r.Passed {
			mark = color.RedString("✗")
		}
		fmt.Fprintf(w, "%s %s\n", mark, r)
	}

	if v.Passed {
		fmt.Fprintf(w, "%s\n", color.GreenString("PASS"))
		return
	}
	names := make([]string, len(v.Violated))
	for i, id := range v.Violated {
		names[i] = string(id)
	}
	fmt.Fprintf(w, "%s thresholds violated: %s\n", color.RedString("FAIL"), strings.Join(names, ", "))
}
