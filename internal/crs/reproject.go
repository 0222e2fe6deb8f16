package crs

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/banshee-data/geoflow/internal/geodata"
)

// Reproject returns a copy of the dataset with every geometry transformed to
// the target reference system. A dataset already in the target system is
// returned unchanged to avoid needless precision loss.
func Reproject(ds *geodata.Dataset, target string) (*geodata.Dataset, error) {
	if ds.CRS == "" {
		return nil, fmt.Errorf("cannot reproject %s: %w", ds, ErrMissingCRS)
	}

	src, err := Lookup(ds.CRS)
	if err != nil {
		return nil, err
	}
	dst, err := Lookup(target)
	if err != nil {
		return nil, err
	}
	if src.Code == dst.Code {
		return ds, nil
	}

	transform := composeTransform(src, dst)
	geoms := make([]orb.Geometry, ds.Len())
	for i, g := range ds.Geometries() {
		if g == nil {
			continue
		}
		geoms[i] = project.Geometry(orb.Clone(g), transform)
	}

	out, err := ds.WithGeometries(geoms)
	if err != nil {
		return nil, err
	}
	out.CRS = dst.Code
	return out, nil
}

// composeTransform builds a point transform routed through geographic
// lon/lat, skipping legs the source or destination does not need.
func composeTransform(src, dst Info) func(orb.Point) orb.Point {
	return func(p orb.Point) orb.Point {
		if src.toLonLat != nil {
			p = src.toLonLat(p)
		}
		if dst.fromLonLat != nil {
			p = dst.fromLonLat(p)
		}
		return p
	}
}
