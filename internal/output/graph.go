package output

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/erfi/goload/internal/metrics"
	"github.com/fatih/color"
)

// GraphFormatter formats output with ASCII graphs
type GraphFormatter struct {
	verbose bool
}

// NewGraphFormatter creates a new graph formatter
func NewGraphFormatter(verbose bool) *GraphFormatter {
	return &GraphFormatter{verbose: verbose}
}

// Format renders the report with graphs
func (f *GraphFormatter) Format(report *Report) (string, error) {
	var buf strings.Builder
	if err := f.Write(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write writes the report with graphs
func (f *GraphFormatter) Write(w io.Writer, report *Report) error {
	s := report.Metrics
	if s == nil {
		return fmt.Errorf("report has no metrics")
	}

	writeSummary(w, report)

	// Latency statistics
	fmt.Fprintf(w, "%s\n", color.YellowString("Latency Statistics:"))
	fmt.Fprintf(w, "  Min:          %s\n", formatDuration(s.MinLatency))
	fmt.Fprintf(w, "  Max:          %s\n", formatDuration(s.MaxLatency))
	fmt.Fprintf(w, "  Mean:         %s\n", formatDuration(s.MeanLatency))
	fmt.Fprintf(w, "  Median (p50): %s\n", formatDuration(s.P50))
	fmt.Fprintf(w, "  P95:          %s\n", formatDuration(s.P95))
	fmt.Fprintf(w, "  P99:          %s\n", formatDuration(s.P99))
	if s.P999 > 0 {
		fmt.Fprintf(w, "  P99.9:        %s\n", formatDuration(s.P999))
	}
	fmt.Fprintln(w)

	if len(s.Histogram) > 0 {
		fmt.Fprintf(w, "%s\n", color.YellowString("Latency Distribution:"))
		f.drawHistogram(w, s.Histogram, s.Count)
		fmt.Fprintln(w)
	}

	if s.FailureCount > 0 {
		fmt.Fprintf(w, "%s\n", color.YellowString("Failures by Kind:"))
		for _, kind := range slices.Sorted(maps.Keys(s.FailuresByKind)) {
			count := s.FailuresByKind[kind]
			pct := float64(count) / float64(s.FailureCount) * 100
			fmt.Fprintf(w, "  %-12s %s %5d (%.1f%%)\n", kind, f.createBar(int(pct/2), 50), count, pct)
		}
		fmt.Fprintln(w)
	}

	if len(s.StatusCodes) > 0 {
		fmt.Fprintf(w, "%s\n", color.YellowString("Status Code Distribution:"))
		for _, code := range slices.Sorted(maps.Keys(s.StatusCodes)) {
			count := s.StatusCodes[code]
			pct := float64(count) / float64(s.Count) * 100
			bar := f.createBar(int(pct/2), 50)
			fmt.Fprintf(w, "  %s %s %5d (%.1f%%)\n", getStatusColor(code)("%3d", code), bar, count, pct)
		}
		fmt.Fprintln(w)
	}

	writeVerdict(w, report.Verdict)
	return nil
}

// drawHistogram draws an ASCII histogram. Without verbose, runs of empty
// buckets are skipped.
func (f *GraphFormatter) drawHistogram(w io.Writer, histogram map[int]int64, total int64) {
	buckets := slices.Sorted(maps.Keys(histogram))
	if len(buckets) == 0 {
		return
	}

	var maxCount int64
	for _, count := range histogram {
		maxCount = max(maxCount, count)
	}

	maxBarWidth := 50
	for bucket := buckets[0]; bucket <= buckets[len(buckets)-1]; bucket++ {
		count := histogram[bucket]
		if count == 0 && !f.verbose {
			continue
		}

		barWidth := int(float64(count) / float64(maxCount) * float64(maxBarWidth))
		bar := strings.Repeat("█", barWidth)
		pct := float64(count) / float64(total) * 100

		fmt.Fprintf(w, "  %14s │%s %d (%.1f%%)\n", f.formatBucketRange(bucket), bar, count, pct)
	}
}

// formatBucketRange formats a histogram bucket as a time range
func (f *GraphFormatter) formatBucketRange(bucket int) string {
	start := bucket * metrics.HistogramBucketWidthMs
	end := start + metrics.HistogramBucketWidthMs

	if start < 1000 {
		return fmt.Sprintf("%d-%dms", start, end)
	}
	return fmt.Sprintf("%.2f-%.2fs", float64(start)/1000, float64(end)/1000)
}

// createBar creates a horizontal bar for visualization
func (f *GraphFormatter) createBar(value, maxWidth int) string {
	if value <= 0 {
		return ""
	}
	if value > maxWidth {
		value = maxWidth
	}
	return color.GreenString(strings.Repeat("█", value))
}
