package output

import (
	"fmt"
	"io"
	"time"

	"github.com/erfi/goload/internal/config"
	"github.com/erfi/goload/internal/metrics"
	"github.com/erfi/goload/internal/scheduler"
	"github.com/erfi/goload/internal/threshold"
	"github.com/fatih/color"
)

// Report is everything printed at the end of a run
type Report struct {
	RunID   string            `json:"run_id"`
	Name    string            `json:"name"`
	BaseURL string            `json:"base_url"`
	Started time.Time         `json:"started"`
	Stages  []config.Stage    `json:"stages"`
	Run     RunInfo           `json:"run"`
	Metrics *metrics.Snapshot `json:"metrics"`
	Verdict threshold.Verdict `json:"verdict"`
}

// RunInfo describes how the scheduler ended the run
type RunInfo struct {
	VUsSpawned  int64            `json:"vus_spawned"`
	VUsPeak     int64            `json:"vus_peak"`
	Interrupted bool             `json:"interrupted"`
	Abandoned   int64            `json:"abandoned"`
	Elapsed     metrics.Duration `json:"elapsed"`
}

// NewRunInfo converts a scheduler result for reporting
func NewRunInfo(r scheduler.Result) RunInfo {
	return RunInfo{
		VUsSpawned:  r.Spawned,
		VUsPeak:     r.Peak,
		Interrupted: r.Interrupted,
		Abandoned:   r.Abandoned,
		Elapsed:     metrics.Duration(r.Elapsed),
	}
}

// Formatter defines the interface for different output formats
type Formatter interface {
	Format(report *Report) (string, error)
	Write(w io.Writer, report *Report) error
}

// Formats lists the accepted -o values
var Formats = []string{"table", "json", "graph", "prom"}

// GetFormatter returns the appropriate formatter based on the format string
func GetFormatter(format string, verbose bool) (Formatter, error) {
	switch format {
	case "json":
		return NewJSONFormatter(verbose), nil
	case "table", "":
		return NewTableFormatter(verbose), nil
	case "graph":
		return NewGraphFormatter(verbose), nil
	case "prom":
		return NewPromFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, Formats)
	}
}

// Helper functions shared by the text formatters

func getStatusColor(code int) func(string, ...interface{}) string {
	switch {
	case code >= 200 && code < 300:
		return color.GreenString
	case code >= 300 && code < 400:
		return color.YellowString
	case code >= 400:
		return color.RedString
	default:
		return color.WhiteString
	}
}

func formatDuration(d metrics.Duration) string {
	ms := d.Milliseconds()
	if ms < 1 {
		return fmt.Sprintf("%.2fms", d.Seconds()*1000)
	} else if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	} else {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

func formatPercent(part, total int64) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)/float64(total)*100)
}
