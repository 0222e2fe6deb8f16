// Package provenance implements the append-only, time-ordered ledger of
// operations executed during one pipeline run, plus a process-environment
// snapshot captured at tracker construction.
//
// A Tracker moves through two states: open (created, EndTime unset) and
// finalized (EndTime set). Records may only be started, completed or marked
// failed while the tracker is open. Records are appended in strict call
// order and never deleted, so the ledger mirrors execution order exactly.
package provenance

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/geoflow/internal/fsutil"
	"github.com/banshee-data/geoflow/internal/timeutil"
)

// Operation types recorded in the ledger.
const (
	OpTypeTask     = "task"
	OpTypePipeline = "pipeline"
)

// OperationRecord is one entry in the ledger. It is created by
// StartOperation and mutated only by CompleteOperation and RecordError.
type OperationRecord struct {
	OperationName string         `json:"operation_name"`
	OperationType string         `json:"operation_type"`
	Parameters    map[string]any `json:"parameters,omitempty"`
	StartTime     time.Time      `json:"start_time"`
	ExecutionTime float64        `json:"execution_time"`
	Error         string         `json:"error,omitempty"`

	completed bool
}

// Failed reports whether the operation recorded an error.
func (r *OperationRecord) Failed() bool {
	return r.Error != ""
}

// Tracker is the provenance ledger for a single pipeline run. Each run owns
// exactly one tracker; trackers are never shared or reused across runs.
type Tracker struct {
	PipelineName string
	RunID        string
	StartTime    time.Time
	EndTime      *time.Time
	Environment  Environment
	Records      []*OperationRecord

	clock    timeutil.Clock
	fs       fsutil.FileSystem
	readOnly bool
}

// Option configures a Tracker at construction.
type Option func(*Tracker)

// WithClock substitutes the clock used for timestamps. Intended for tests.
func WithClock(c timeutil.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithFileSystem substitutes the filesystem used by Save. Intended for tests.
func WithFileSystem(fs fsutil.FileSystem) Option {
	return func(t *Tracker) { t.fs = fs }
}

// NewTracker creates an open tracker for the named pipeline, capturing the
// environment snapshot immediately.
func NewTracker(pipelineName string, opts ...Option) *Tracker {
	t := &Tracker{
		PipelineName: pipelineName,
		RunID:        uuid.New().String(),
		Environment:  CaptureEnvironment(),
		clock:        timeutil.RealClock{},
		fs:           fsutil.OSFileSystem{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.StartTime = t.clock.Now()
	return t
}

// StartOperation appends a new record to the ledger and returns it. The
// parameters map is copied so later caller mutation cannot rewrite history.
func (t *Tracker) StartOperation(name, opType string, parameters map[string]any) (*OperationRecord, error) {
	if err := t.mutable(); err != nil {
		return nil, err
	}
	if opType == "" {
		opType = OpTypeTask
	}

	var params map[string]any
	if len(parameters) > 0 {
		params = make(map[string]any, len(parameters))
		for k, v := range parameters {
			params[k] = v
		}
	}

	rec := &OperationRecord{
		OperationName: name,
		OperationType: opType,
		Parameters:    params,
		StartTime:     t.clock.Now(),
	}
	t.Records = append(t.Records, rec)
	return rec, nil
}

// CompleteOperation sets the record's execution time in seconds. Completing
// the same record twice is an error, not a silent overwrite.
func (t *Tracker) CompleteOperation(rec *OperationRecord, executionTime float64) error {
	if err := t.mutable(); err != nil {
		return err
	}
	if rec.completed {
		return fmt.Errorf("operation %q already completed", rec.OperationName)
	}
	rec.ExecutionTime = executionTime
	rec.completed = true
	return nil
}

// RecordError stores the error message on the record. The error itself is
// not consumed; callers re-raise it unchanged.
func (t *Tracker) RecordError(rec *OperationRecord, opErr error) error {
	if err := t.mutable(); err != nil {
		return err
	}
	if opErr == nil {
		return fmt.Errorf("cannot record a nil error for operation %q", rec.OperationName)
	}
	rec.Error = opErr.Error()
	return nil
}

// Finalize transitions the tracker to the finalized state, setting EndTime.
// A second Finalize is a no-op: EndTime is set at most once.
func (t *Tracker) Finalize() {
	if t.EndTime != nil {
		return
	}
	end := t.clock.Now()
	t.EndTime = &end
}

// Finalized reports whether the tracker has been finalized.
func (t *Tracker) Finalized() bool {
	return t.EndTime != nil
}

// TotalExecutionTime returns the wall-clock seconds between start and end.
// For a still-open tracker it measures up to the current time.
func (t *Tracker) TotalExecutionTime() float64 {
	if t.EndTime != nil {
		return t.EndTime.Sub(t.StartTime).Seconds()
	}
	return t.clock.Since(t.StartTime).Seconds()
}

// FailedOperations counts records with a recorded error.
func (t *Tracker) FailedOperations() int {
	n := 0
	for _, rec := range t.Records {
		if rec.Failed() {
			n++
		}
	}
	return n
}

func (t *Tracker) mutable() error {
	if t.readOnly {
		return fmt.Errorf("tracker for %q was loaded for inspection and is read-only", t.PipelineName)
	}
	if t.EndTime != nil {
		return fmt.Errorf("tracker for %q is finalized", t.PipelineName)
	}
	return nil
}
