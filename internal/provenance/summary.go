package provenance

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// OperationSummary is one line of the execution summary.
type OperationSummary struct {
	Name   string  `json:"name"`
	Status string  `json:"status"`
	Time   float64 `json:"time"`
}

// TimingStats aggregates per-operation execution times.
type TimingStats struct {
	MeanSeconds   float64 `json:"mean_seconds"`
	MedianSeconds float64 `json:"median_seconds"`
	StdDevSeconds float64 `json:"stddev_seconds"`
}

// Summary condenses a tracker for display and assertions.
type Summary struct {
	PipelineName       string             `json:"pipeline_name"`
	TotalOperations    int                `json:"total_operations"`
	FailedOperations   int                `json:"failed_operations"`
	TotalExecutionTime float64            `json:"total_execution_time"`
	Operations         []OperationSummary `json:"operations"`
	Timing             TimingStats        `json:"timing"`
}

// Summarize builds the execution summary: one entry per record in ledger
// order, with status "success" unless the record carries an error.
func (t *Tracker) Summarize() *Summary {
	s := &Summary{
		PipelineName:       t.PipelineName,
		TotalOperations:    len(t.Records),
		FailedOperations:   t.FailedOperations(),
		TotalExecutionTime: t.TotalExecutionTime(),
		Operations:         make([]OperationSummary, 0, len(t.Records)),
	}

	times := make([]float64, 0, len(t.Records))
	for _, rec := range t.Records {
		status := "success"
		if rec.Failed() {
			status = "failed"
		}
		s.Operations = append(s.Operations, OperationSummary{
			Name:   rec.OperationName,
			Status: status,
			Time:   rec.ExecutionTime,
		})
		times = append(times, rec.ExecutionTime)
	}

	if len(times) > 0 {
		s.Timing.MeanSeconds = stat.Mean(times, nil)
		if len(times) > 1 {
			s.Timing.StdDevSeconds = stat.StdDev(times, nil)
		}

		sorted := make([]float64, len(times))
		copy(sorted, times)
		sort.Float64s(sorted)
		s.Timing.MedianSeconds = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	}
	return s
}
