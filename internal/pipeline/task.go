// Package pipeline provides the Task and Pipeline wrappers: named, stateless
// shells around transformation functions that apply CRS and geometry safety
// gates before delegating, and optionally record a provenance ledger.
package pipeline

import (
	"context"
	"fmt"

	"github.com/banshee-data/geoflow/internal/crs"
	"github.com/banshee-data/geoflow/internal/geodata"
	"github.com/banshee-data/geoflow/internal/monitoring"
	"github.com/banshee-data/geoflow/internal/validate"
)

// GeographicOperationError reports a distance- or area-sensitive operation
// attempted under StrictCRS on an angular reference system.
type GeographicOperationError struct {
	Operation string
	CRS       string
}

func (e *GeographicOperationError) Error() string {
	return fmt.Sprintf("cannot perform %q on geographic CRS %s: reproject to a projected CRS first", e.Operation, e.CRS)
}

// TransformFunc is a transformation over one or more spatial datasets. The
// first dataset is the primary geometry-bearing argument for gate checks.
type TransformFunc func(ctx context.Context, inputs ...*geodata.Dataset) (*geodata.Dataset, error)

// TaskConfig is the immutable configuration captured when a task is wrapped.
type TaskConfig struct {
	// Name identifies the task in advisories and errors.
	Name string

	// WarnGeographic emits an advisory when the primary input's CRS is
	// geographic.
	WarnGeographic bool

	// StrictCRS rejects execution outright when the primary input's CRS is
	// geographic.
	StrictCRS bool

	// ValidateGeometries computes a validation report on the primary input
	// and emits an advisory when invalid geometries are present.
	ValidateGeometries bool

	// ValidateCRS rejects execution when multiple inputs carry differing
	// reference systems and no explicit target CRS was supplied.
	ValidateCRS bool
}

// Normalize validates the configuration.
func (c TaskConfig) Normalize() (TaskConfig, error) {
	if c.Name == "" {
		return c, fmt.Errorf("task name is required")
	}
	return c, nil
}

// Task is a named, stateless wrapper around a single transformation
// function. Calling a task applies the configured pre-checks and then
// delegates to the wrapped function with the arguments unchanged; it never
// mutates its inputs and is safely re-callable.
type Task struct {
	cfg       TaskConfig
	fn        TransformFunc
	crs       *crs.Manager
	validator *validate.GeometryValidator
}

// NewTask wraps fn with the given configuration.
func NewTask(cfg TaskConfig, fn TransformFunc) (*Task, error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("task %q: transformation function is required", cfg.Name)
	}
	return &Task{
		cfg:       cfg,
		fn:        fn,
		crs:       crs.NewManager(),
		validator: validate.NewGeometryValidator(),
	}, nil
}

// Name returns the task's configured name.
func (t *Task) Name() string {
	return t.cfg.Name
}

// Config returns a copy of the task's configuration.
func (t *Task) Config() TaskConfig {
	return t.cfg
}

// CallOption adjusts a single task invocation.
type CallOption func(*callSettings)

type callSettings struct {
	targetCRS string
}

// WithTargetCRS declares the explicit reference system the caller intends
// the operation to run in, satisfying the multi-input CRS gate.
func WithTargetCRS(code string) CallOption {
	return func(s *callSettings) { s.targetCRS = code }
}

// Call runs the safety gates and then the wrapped transformation.
//
// Gate order: geometry validation advisory, multi-input CRS reconciliation,
// geographic-CRS rejection or advisory, then delegation. Gate failures are
// returned as-is; the wrapped function is not invoked.
func (t *Task) Call(ctx context.Context, inputs []*geodata.Dataset, opts ...CallOption) (*geodata.Dataset, error) {
	var settings callSettings
	for _, opt := range opts {
		opt(&settings)
	}

	if t.cfg.ValidateGeometries && len(inputs) > 0 {
		report := t.validator.ValidationReport(inputs[0])
		if report.InvalidCount > 0 {
			monitoring.Advisory(t.cfg.Name,
				"%d of %d geometries are invalid (%.1f%%); consider repairing before this operation",
				report.InvalidCount, report.TotalFeatures, report.InvalidPercentage)
		}
	}

	if t.cfg.ValidateCRS && settings.targetCRS == "" {
		if err := checkCommonCRS(inputs); err != nil {
			return nil, err
		}
	}

	if len(inputs) > 0 {
		primary := inputs[0]
		if primary.CRS != "" && t.crs.IsGeographic(primary.CRS) {
			if t.cfg.StrictCRS {
				return nil, &GeographicOperationError{
					Operation: t.cfg.Name,
					CRS:       crs.Normalize(primary.CRS),
				}
			}
			if t.cfg.WarnGeographic {
				t.crs.WarnIfGeographic(primary, t.cfg.Name)
			}
		}
	}

	return t.fn(ctx, inputs...)
}

// checkCommonCRS fails with a MismatchError when any two geometry-bearing
// inputs disagree on their reference system.
func checkCommonCRS(inputs []*geodata.Dataset) error {
	var first string
	for _, ds := range inputs {
		if ds == nil || ds.CRS == "" {
			continue
		}
		code := crs.Normalize(ds.CRS)
		if first == "" {
			first = code
			continue
		}
		if code != first {
			return &crs.MismatchError{A: first, B: code}
		}
	}
	return nil
}
