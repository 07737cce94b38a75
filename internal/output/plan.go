package output

import (
	"fmt"
	"io"
	"time"

	"github.com/erfi/goload/internal/config"
	"github.com/erfi/goload/internal/scheduler"
	"github.com/erfi/goload/internal/threshold"
	"github.com/jedib0t/go-pretty/v6/table"
)

// WritePlan prints the resolved configuration and stage timeline without
// running anything
func WritePlan(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "Target: %s/order/{id} (%d ids)\n", cfg.BaseURL, len(cfg.TargetPool))
	fmt.Fprintf(w, "Post-request sleep: %s, SLA: %s\n", cfg.PostRequestSleep(), cfg.SLA())

	th := threshold.FromConfig(cfg.Thresholds)
	fmt.Fprintf(w, "Thresholds: %s=%s %s=%s\n",
		threshold.MaxFailureRate, limit(th.MaxFailureRate),
		threshold.MaxP99LatencyMs, limit(th.MaxP99LatencyMs))
	fmt.Fprintln(w)

	t := newTable(w, "Stage Plan")
	t.AppendHeader(table.Row{"#", "Start", "End", "From VUs", "To VUs"})
	for _, seg := range scheduler.Plan(cfg.Stages) {
		t.AppendRow(table.Row{seg.Index + 1, seg.Start.Round(time.Millisecond), seg.End.Round(time.Millisecond), seg.From, seg.To})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"", "", cfg.TotalDuration().Round(time.Millisecond), "peak", scheduler.Peak(cfg.Stages)})
	t.Render()
}

func limit(v *float64) string {
	if v == nil {
		return "off"
	}
	return fmt.Sprintf("%g", *v)
}
