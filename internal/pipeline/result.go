package pipeline

import "github.com/banshee-data/geoflow/internal/provenance"

// Result bundles a tracked run's output value with its provenance ledger.
// It is read-only after construction.
type Result[T any] struct {
	// Value is whatever the wrapped function returned; Run never alters it.
	Value T

	// Provenance is the ledger owned by this run.
	Provenance *provenance.Tracker
}

// Summary returns the execution summary of the run's ledger.
func (r *Result[T]) Summary() *provenance.Summary {
	return r.Provenance.Summarize()
}

// SaveProvenance serializes the run's ledger to path.
func (r *Result[T]) SaveProvenance(path string) error {
	return r.Provenance.Save(path)
}
