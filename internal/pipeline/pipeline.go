package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/banshee-data/geoflow/internal/fsutil"
	"github.com/banshee-data/geoflow/internal/provenance"
	"github.com/banshee-data/geoflow/internal/timeutil"
)

// Params carries the named arguments of a pipeline invocation. They are
// summarised into the ledger's top-level operation record.
type Params map[string]any

// Func is the top-level function a Pipeline wraps, typically composed of
// Task calls.
type Func[T any] func(ctx context.Context, params Params) (T, error)

// Config is the immutable configuration captured when a pipeline is wrapped.
type Config struct {
	// Name identifies the pipeline and becomes the ledger's pipeline_name.
	Name string

	// Description is free-form documentation carried in the config.
	Description string

	// AutoSaveProvenance persists the ledger after every successful
	// tracked run.
	AutoSaveProvenance bool

	// ProvenanceDir is where auto-saved ledgers are written. Defaults to
	// "provenance" when auto-save is enabled.
	ProvenanceDir string
}

// Normalize validates the configuration and applies defaults.
func (c Config) Normalize() (Config, error) {
	if c.Name == "" {
		return c, fmt.Errorf("pipeline name is required")
	}
	if c.AutoSaveProvenance && c.ProvenanceDir == "" {
		c.ProvenanceDir = "provenance"
	}
	return c, nil
}

// Pipeline is a named wrapper around a top-level function offering two
// execution modes: Call (plain, zero tracking overhead) and Run (tracked,
// producing a provenance ledger). Both modes execute the same function body,
// so for identical inputs the data results are identical.
type Pipeline[T any] struct {
	cfg   Config
	fn    Func[T]
	clock timeutil.Clock
	fs    fsutil.FileSystem
}

// Option configures a Pipeline at wrap time.
type Option func(*pipelineSettings)

type pipelineSettings struct {
	clock timeutil.Clock
	fs    fsutil.FileSystem
}

// WithClock substitutes the clock used for run timing. Intended for tests.
func WithClock(c timeutil.Clock) Option {
	return func(s *pipelineSettings) { s.clock = c }
}

// WithFileSystem substitutes the filesystem used for provenance auto-save.
// Intended for tests.
func WithFileSystem(fs fsutil.FileSystem) Option {
	return func(s *pipelineSettings) { s.fs = fs }
}

// New wraps fn as a Pipeline.
func New[T any](cfg Config, fn Func[T], opts ...Option) (*Pipeline[T], error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("pipeline %q: function is required", cfg.Name)
	}

	settings := pipelineSettings{
		clock: timeutil.RealClock{},
		fs:    fsutil.OSFileSystem{},
	}
	for _, opt := range opts {
		opt(&settings)
	}
	return &Pipeline[T]{cfg: cfg, fn: fn, clock: settings.clock, fs: settings.fs}, nil
}

// Name returns the pipeline's configured name.
func (p *Pipeline[T]) Name() string {
	return p.cfg.Name
}

// Config returns a copy of the pipeline's configuration.
func (p *Pipeline[T]) Config() Config {
	return p.cfg
}

// Call executes the wrapped function directly with no tracking side effects.
func (p *Pipeline[T]) Call(ctx context.Context, params Params) (T, error) {
	return p.fn(ctx, params)
}

// Run executes the wrapped function under a fresh provenance tracker.
//
// The tracker records one top-level operation for the run. On failure the
// error is recorded in the ledger, the tracker is finalized, and the
// original error is returned unchanged: provenance capture never swallows
// or rewrites a failure. On success the tracker is finalized, optionally
// auto-saved, and returned inside the Result.
func (p *Pipeline[T]) Run(ctx context.Context, params Params) (*Result[T], error) {
	tracker := provenance.NewTracker(p.cfg.Name,
		provenance.WithClock(p.clock),
		provenance.WithFileSystem(p.fs),
	)

	rec, err := tracker.StartOperation(p.cfg.Name, provenance.OpTypePipeline, summarizeParams(params))
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", p.cfg.Name, err)
	}

	start := p.clock.Now()
	value, runErr := p.fn(ctx, params)
	elapsed := p.clock.Since(start).Seconds()

	if runErr != nil {
		// Best-effort bookkeeping; the caller gets the original error
		// regardless of how recording fares.
		_ = tracker.RecordError(rec, runErr)
		_ = tracker.CompleteOperation(rec, elapsed)
		tracker.Finalize()
		return nil, runErr
	}

	if err := tracker.CompleteOperation(rec, elapsed); err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", p.cfg.Name, err)
	}
	tracker.Finalize()

	if p.cfg.AutoSaveProvenance {
		path := p.provenancePath(tracker)
		if err := tracker.Save(path); err != nil {
			return nil, fmt.Errorf("pipeline %q: auto-save provenance: %w", p.cfg.Name, err)
		}
	}

	return &Result[T]{Value: value, Provenance: tracker}, nil
}

// provenancePath derives the auto-save filename from the pipeline name and
// the run's start timestamp.
func (p *Pipeline[T]) provenancePath(t *provenance.Tracker) string {
	stamp := t.StartTime.UTC().Format("20060102T150405")
	return filepath.Join(p.cfg.ProvenanceDir, fmt.Sprintf("%s_%s_provenance.json", p.cfg.Name, stamp))
}

// summarizeParams copies params into a ledger-serializable form. JSON-native
// values pass through; anything else is rendered with its String/format
// representation so the ledger never fails to serialize.
func summarizeParams(params Params) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch val := v.(type) {
		case nil, bool, string,
			int, int8, int16, int32, int64,
			uint, uint8, uint16, uint32, uint64,
			float32, float64:
			out[k] = val
		case time.Time:
			out[k] = val.Format(time.RFC3339Nano)
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
