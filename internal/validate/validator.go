// Package validate provides dataset-level geometry validation: locating
// invalid features, repairing them, and producing diagnostic reports.
package validate

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/banshee-data/geoflow/internal/geodata"
	"github.com/banshee-data/geoflow/internal/geomcheck"
)

// Repair method names accepted by FixInvalid and Options.Method.
const (
	MethodMakeValid = "make_valid"
	MethodBuffer    = "buffer"
)

// ErrUnknownRepairMethod reports an unsupported repair strategy name.
var ErrUnknownRepairMethod = errors.New("unknown repair method")

// InvalidGeometryError reports rows failing topological validity where
// validity was required.
type InvalidGeometryError struct {
	Count      int
	Percentage float64
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("dataset contains %d invalid geometries (%.2f%% of features)", e.Count, e.Percentage)
}

// InvalidFeature is one row that failed the validity predicate, annotated
// with the defect description. Index preserves the row's original position.
type InvalidFeature struct {
	Index   int
	Feature geodata.Feature
	Issue   string
}

// Report summarises the validity of a dataset.
type Report struct {
	TotalFeatures     int            `json:"total_features"`
	InvalidCount      int            `json:"invalid_count"`
	ValidCount        int            `json:"valid_count"`
	InvalidPercentage float64        `json:"invalid_percentage"`
	EmptyCount        int            `json:"empty_count"`
	NullCount         int            `json:"null_count"`
	Issues            map[string]int `json:"issues"`
}

// GeometryValidator detects and repairs topologically invalid geometries.
// It is stateless and safe to share.
type GeometryValidator struct{}

// NewGeometryValidator creates a validator.
func NewGeometryValidator() *GeometryValidator {
	return &GeometryValidator{}
}

// FindInvalid returns the features whose geometry fails the validity
// predicate, in input order, each annotated with its defect description.
func (v *GeometryValidator) FindInvalid(ds *geodata.Dataset) []InvalidFeature {
	var out []InvalidFeature
	for i := 0; i < ds.Len(); i++ {
		f := ds.Feature(i)
		if ok, issue := geomcheck.Check(f.Geometry); !ok {
			out = append(out, InvalidFeature{Index: i, Feature: f, Issue: issue})
		}
	}
	return out
}

// FixInvalid repairs every invalid geometry using the named method and
// returns a new dataset. Row count and attribute values are unchanged; only
// geometry values are modified. Valid geometries pass through untouched.
func (v *GeometryValidator) FixInvalid(ds *geodata.Dataset, method string) (*geodata.Dataset, error) {
	var repair func(orb.Geometry) (orb.Geometry, error)
	switch method {
	case MethodMakeValid:
		repair = geomcheck.MakeValid
	case MethodBuffer:
		repair = geomcheck.BufferZero
	default:
		return nil, fmt.Errorf("%w %q: supported methods are %s and %s",
			ErrUnknownRepairMethod, method, MethodMakeValid, MethodBuffer)
	}

	geoms := ds.Geometries()
	for i, g := range geoms {
		if g == nil {
			continue
		}
		if ok, _ := geomcheck.Check(g); ok {
			continue
		}
		fixed, err := repair(g)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		geoms[i] = fixed
	}
	return ds.WithGeometries(geoms)
}

// ValidateOrRaise fails with an InvalidGeometryError if any row is invalid;
// otherwise it is a no-op.
func (v *GeometryValidator) ValidateOrRaise(ds *geodata.Dataset) error {
	invalid := v.FindInvalid(ds)
	if len(invalid) == 0 {
		return nil
	}
	pct := 0.0
	if ds.Len() > 0 {
		pct = float64(len(invalid)) / float64(ds.Len()) * 100
	}
	return &InvalidGeometryError{Count: len(invalid), Percentage: pct}
}

// CheckEmptyGeometries returns a mask aligned 1:1 with the dataset's rows,
// true where the geometry is present but has no coordinates.
func (v *GeometryValidator) CheckEmptyGeometries(ds *geodata.Dataset) []bool {
	mask := make([]bool, ds.Len())
	for i, g := range ds.Geometries() {
		mask[i] = g != nil && isEmpty(g)
	}
	return mask
}

// CheckNullGeometries returns a mask aligned 1:1 with the dataset's rows,
// true where the geometry is missing entirely.
func (v *GeometryValidator) CheckNullGeometries(ds *geodata.Dataset) []bool {
	mask := make([]bool, ds.Len())
	for i, g := range ds.Geometries() {
		mask[i] = g == nil
	}
	return mask
}

// ValidationReport computes a full diagnostic report for the dataset.
func (v *GeometryValidator) ValidationReport(ds *geodata.Dataset) *Report {
	report := &Report{
		TotalFeatures: ds.Len(),
		Issues:        make(map[string]int),
	}

	for _, inv := range v.FindInvalid(ds) {
		report.InvalidCount++
		report.Issues[inv.Issue]++
	}
	report.ValidCount = report.TotalFeatures - report.InvalidCount
	if report.TotalFeatures > 0 {
		report.InvalidPercentage = float64(report.InvalidCount) / float64(report.TotalFeatures) * 100
	}

	for _, empty := range v.CheckEmptyGeometries(ds) {
		if empty {
			report.EmptyCount++
		}
	}
	for _, null := range v.CheckNullGeometries(ds) {
		if null {
			report.NullCount++
		}
	}
	return report
}

// Options configures ValidateGeometry.
type Options struct {
	// AutoFix repairs invalid geometries with Method.
	AutoFix bool

	// RaiseOnInvalid fails before any repair is attempted when invalid
	// geometries exist. Takes precedence over AutoFix.
	RaiseOnInvalid bool

	// Method is the repair strategy for AutoFix. Defaults to make_valid.
	Method string
}

// ValidateGeometry applies the configured validation policy and returns the
// dataset, repaired when AutoFix is set. Without AutoFix or RaiseOnInvalid
// the dataset is returned unchanged, possibly still containing invalid
// geometries.
func ValidateGeometry(ds *geodata.Dataset, opts Options) (*geodata.Dataset, error) {
	v := NewGeometryValidator()

	if opts.RaiseOnInvalid {
		if err := v.ValidateOrRaise(ds); err != nil {
			return nil, err
		}
	}
	if opts.AutoFix {
		method := opts.Method
		if method == "" {
			method = MethodMakeValid
		}
		return v.FixInvalid(ds, method)
	}
	return ds, nil
}

// isEmpty reports whether a non-nil geometry has no coordinates.
func isEmpty(g orb.Geometry) bool {
	switch geom := g.(type) {
	case orb.LineString:
		return len(geom) == 0
	case orb.MultiPoint:
		return len(geom) == 0
	case orb.MultiLineString:
		return len(geom) == 0
	case orb.Ring:
		return len(geom) == 0
	case orb.Polygon:
		return len(geom) == 0
	case orb.MultiPolygon:
		return len(geom) == 0
	case orb.Collection:
		return len(geom) == 0
	}
	return false
}
