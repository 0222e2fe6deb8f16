// Package report renders provenance ledgers as standalone HTML charts.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/geoflow/internal/provenance"
)

// RenderTimeline writes an HTML bar chart of per-operation execution times
// to w, one bar per ledger record in execution order. Failed operations are
// drawn in red.
func RenderTimeline(tracker *provenance.Tracker, w io.Writer) error {
	summary := tracker.Summarize()

	x := make([]string, 0, len(summary.Operations))
	y := make([]opts.BarData, 0, len(summary.Operations))
	for _, op := range summary.Operations {
		x = append(x, op.Name)
		bd := opts.BarData{Value: op.Time}
		if op.Status == "failed" {
			bd.ItemStyle = &opts.ItemStyle{Color: "#ff5252"}
		}
		y = append(y, bd)
	}

	subtitle := fmt.Sprintf("run=%s ops=%d failed=%d total=%.3fs",
		tracker.RunID, summary.TotalOperations, summary.FailedOperations, summary.TotalExecutionTime)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Pipeline Timeline", Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: tracker.PipelineName, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "seconds"}),
	)
	bar.SetXAxis(x).
		AddSeries("execution time", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}

// WriteSummary prints a plain-text run summary to w, one line per
// operation plus aggregate timing.
func WriteSummary(tracker *provenance.Tracker, w io.Writer) error {
	summary := tracker.Summarize()

	if _, err := fmt.Fprintf(w, "pipeline %s started %s\n",
		summary.PipelineName, tracker.StartTime.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	for _, op := range summary.Operations {
		if _, err := fmt.Fprintf(w, "  %-30s %-8s %8.3fs\n", op.Name, op.Status, op.Time); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d operations, %d failed, %.3fs total (mean %.3fs, median %.3fs)\n",
		summary.TotalOperations, summary.FailedOperations, summary.TotalExecutionTime,
		summary.Timing.MeanSeconds, summary.Timing.MedianSeconds)
	return err
}
