package provenance

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/geoflow/internal/fsutil"
	"github.com/banshee-data/geoflow/internal/timeutil"
)

// ledger is the on-disk form of a tracker. Field names follow the external
// provenance JSON contract.
type ledger struct {
	PipelineName       string             `json:"pipeline_name"`
	RunID              string             `json:"run_id"`
	StartTime          time.Time          `json:"start_time"`
	EndTime            *time.Time         `json:"end_time,omitempty"`
	TotalExecutionTime float64            `json:"total_execution_time"`
	Environment        Environment        `json:"environment"`
	Operations         []*OperationRecord `json:"operations"`
}

// MarshalJSON serializes the full ledger: pipeline name, timing, environment
// snapshot, and the ordered operation records.
func (t *Tracker) MarshalJSON() ([]byte, error) {
	return json.Marshal(ledger{
		PipelineName:       t.PipelineName,
		RunID:              t.RunID,
		StartTime:          t.StartTime,
		EndTime:            t.EndTime,
		TotalExecutionTime: t.TotalExecutionTime(),
		Environment:        t.Environment,
		Operations:         t.Records,
	})
}

// ToJSON renders the ledger as indented JSON.
func (t *Tracker) ToJSON() ([]byte, error) {
	raw, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf map[string]any
	if err := json.Unmarshal(raw, &buf); err != nil {
		return nil, err
	}
	return json.MarshalIndent(buf, "", "  ")
}

// Save writes the ledger to path as JSON, creating parent directories.
func (t *Tracker) Save(path string) error {
	data, err := t.ToJSON()
	if err != nil {
		return fmt.Errorf("serialize provenance: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := t.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create provenance directory: %w", err)
		}
	}
	if err := t.fs.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write provenance file: %w", err)
	}
	return nil
}

// Load reads a ledger file and reconstructs a read-only tracker for
// inspection. Loaded trackers refuse further mutation; they are a record of
// a past run, not a resumable one.
func Load(path string, opts ...Option) (*Tracker, error) {
	t := &Tracker{
		clock: timeutil.RealClock{},
		fs:    fsutil.OSFileSystem{},
	}
	for _, opt := range opts {
		opt(t)
	}

	data, err := t.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provenance file: %w", err)
	}
	return Parse(data, t)
}

// Parse decodes ledger JSON into the given tracker shell (or a fresh one
// when nil) and marks it read-only.
func Parse(data []byte, t *Tracker) (*Tracker, error) {
	if t == nil {
		t = &Tracker{clock: timeutil.RealClock{}, fs: fsutil.OSFileSystem{}}
	}

	var l ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse provenance ledger: %w", err)
	}

	t.PipelineName = l.PipelineName
	t.RunID = l.RunID
	t.StartTime = l.StartTime
	t.EndTime = l.EndTime
	t.Environment = l.Environment
	t.Records = l.Operations
	for _, rec := range t.Records {
		rec.completed = true
	}
	t.readOnly = true
	return t, nil
}
