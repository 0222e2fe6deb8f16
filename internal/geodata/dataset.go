// Package geodata defines the tabular spatial dataset model shared by every
// geoflow component: an ordered sequence of features, each carrying named
// attributes and one geometry, annotated with a coordinate reference system.
//
// Datasets are treated as immutable: transformations derive new datasets via
// Clone/WithGeometries/WithCRS and must never modify a dataset they received.
package geodata

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Feature is a single row: an attribute mapping plus one geometry.
// A nil Geometry represents a null (missing) geometry.
type Feature struct {
	Attrs    map[string]any
	Geometry orb.Geometry
}

// Clone returns a copy of the feature with its own attribute map. Geometries
// are shared; the library never mutates geometry coordinates in place.
func (f Feature) Clone() Feature {
	attrs := make(map[string]any, len(f.Attrs))
	for k, v := range f.Attrs {
		attrs[k] = v
	}
	return Feature{Attrs: attrs, Geometry: f.Geometry}
}

// Dataset is an ordered collection of features with one CRS tag.
// An empty CRS means the reference system is unknown.
type Dataset struct {
	// CRS is the coordinate reference system code, e.g. "EPSG:4326".
	CRS string

	// Source records where the dataset was loaded from, when known.
	Source string

	features []Feature
}

// New creates a dataset from the given features. The feature slice is copied.
func New(crsCode string, features ...Feature) *Dataset {
	fs := make([]Feature, len(features))
	copy(fs, features)
	return &Dataset{CRS: crsCode, features: fs}
}

// Len returns the number of features.
func (d *Dataset) Len() int {
	return len(d.features)
}

// Feature returns the feature at index i.
func (d *Dataset) Feature(i int) Feature {
	return d.features[i]
}

// Features returns a copy of the feature slice in dataset order.
func (d *Dataset) Features() []Feature {
	out := make([]Feature, len(d.features))
	copy(out, d.features)
	return out
}

// Geometries returns the geometries in dataset order.
func (d *Dataset) Geometries() []orb.Geometry {
	out := make([]orb.Geometry, len(d.features))
	for i, f := range d.features {
		out[i] = f.Geometry
	}
	return out
}

// Clone returns a deep copy of the dataset's feature table. Attribute maps
// are copied per feature; geometries are shared (treated as immutable).
func (d *Dataset) Clone() *Dataset {
	fs := make([]Feature, len(d.features))
	for i, f := range d.features {
		fs[i] = f.Clone()
	}
	return &Dataset{CRS: d.CRS, Source: d.Source, features: fs}
}

// WithCRS returns a copy of the dataset tagged with the given CRS code.
// It does not reproject; it only re-labels.
func (d *Dataset) WithCRS(crsCode string) *Dataset {
	out := d.Clone()
	out.CRS = crsCode
	return out
}

// WithGeometries returns a copy of the dataset with every geometry replaced,
// preserving feature order and attributes. The slice length must match.
func (d *Dataset) WithGeometries(geoms []orb.Geometry) (*Dataset, error) {
	if len(geoms) != len(d.features) {
		return nil, fmt.Errorf("geometry count %d does not match feature count %d", len(geoms), len(d.features))
	}
	out := d.Clone()
	for i := range out.features {
		out.features[i].Geometry = geoms[i]
	}
	return out, nil
}

// Select returns a new dataset containing the features at the given indices,
// in the given order.
func (d *Dataset) Select(indices []int) *Dataset {
	fs := make([]Feature, 0, len(indices))
	for _, i := range indices {
		fs = append(fs, d.features[i].Clone())
	}
	return &Dataset{CRS: d.CRS, Source: d.Source, features: fs}
}

// String summarises the dataset for logs and parameter records.
func (d *Dataset) String() string {
	crsCode := d.CRS
	if crsCode == "" {
		crsCode = "none"
	}
	return fmt.Sprintf("dataset(features=%d, crs=%s)", len(d.features), crsCode)
}
