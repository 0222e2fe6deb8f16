// Package geoio loads and saves spatial datasets. GeoJSON outputs carry
// provenance as a sidecar file; GeoPackage outputs embed it in a dedicated
// table. Loaded datasets are tagged with their source file.
package geoio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/geoflow/internal/geodata"
	"github.com/banshee-data/geoflow/internal/monitoring"
	"github.com/banshee-data/geoflow/internal/provenance"
	"github.com/banshee-data/geoflow/internal/validate"
)

// UnsupportedFormatError reports an I/O format outside the supported set.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format %q: supported formats are .geojson, .json and .gpkg", e.Ext)
}

// LoadOption adjusts a Load call.
type LoadOption func(*loadSettings)

type loadSettings struct {
	validate bool
	autoFix  bool
	method   string
}

// WithValidation computes a validation report after loading and emits an
// advisory when invalid geometries are present.
func WithValidation() LoadOption {
	return func(s *loadSettings) { s.validate = true }
}

// WithAutoFix repairs invalid geometries after loading using the given
// method ("" means make_valid). Implies validation.
func WithAutoFix(method string) LoadOption {
	return func(s *loadSettings) {
		s.validate = true
		s.autoFix = true
		s.method = method
	}
}

// Load reads a spatial dataset from path, tagging it with the source file.
func Load(path string, opts ...LoadOption) (*geodata.Dataset, error) {
	var settings loadSettings
	for _, opt := range opts {
		opt(&settings)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var ds *geodata.Dataset
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		ds, err = loadGeoJSON(path)
	case ".gpkg":
		ds, err = loadGeoPackage(path)
	default:
		return nil, &UnsupportedFormatError{Ext: ext}
	}
	if err != nil {
		return nil, err
	}
	ds.Source = path

	if settings.validate {
		ds, err = postLoadValidation(ds, settings)
		if err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func postLoadValidation(ds *geodata.Dataset, settings loadSettings) (*geodata.Dataset, error) {
	v := validate.NewGeometryValidator()
	report := v.ValidationReport(ds)
	if report.InvalidCount == 0 {
		return ds, nil
	}

	if !settings.autoFix {
		monitoring.Advisory("load",
			"%s has %d invalid geometries (%.1f%%)", ds.Source, report.InvalidCount, report.InvalidPercentage)
		return ds, nil
	}

	method := settings.method
	if method == "" {
		method = validate.MethodMakeValid
	}
	fixed, err := v.FixInvalid(ds, method)
	if err != nil {
		return nil, err
	}
	monitoring.Advisory("load",
		"repaired %d invalid geometries in %s using %s", report.InvalidCount, ds.Source, method)
	fixed.Source = ds.Source
	return fixed, nil
}

// Save writes the dataset to path, choosing the format from the extension.
// When a provenance tracker is supplied, GeoJSON outputs get a sidecar
// `<path>.provenance.json` and GeoPackage outputs get an embedded
// geoflow_provenance table. Passing a nil tracker persists no provenance.
func Save(ds *geodata.Dataset, path string, tracker *provenance.Tracker) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".geojson", ".json":
		if err := saveGeoJSON(ds, path, tracker); err != nil {
			return "", err
		}
	case ".gpkg":
		if err := saveGeoPackage(ds, path, tracker); err != nil {
			return "", err
		}
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
	return path, nil
}
