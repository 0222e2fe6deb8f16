// Package spatial provides the minimal transformation collaborators the
// pipeline layer orchestrates: buffer, clip, and reprojection. The heavy
// computational geometry (polygon overlay, generalized buffering) is
// deliberately out of scope; these operations cover point and polygon data
// well enough to exercise the safety gates end to end.
package spatial

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"

	"github.com/banshee-data/geoflow/internal/crs"
	"github.com/banshee-data/geoflow/internal/geodata"
)

// defaultBufferSegments is the circle approximation used when the caller
// does not specify a segment count. 128 segments keep the area of a unit
// circle within 0.05% of pi.
const defaultBufferSegments = 128

// Buffer dilates every geometry by the given distance, expressed in the
// dataset's CRS units. Point and multi-point geometries become circle
// polygons; null geometries pass through. Other geometry types are not
// supported by this implementation.
func Buffer(ds *geodata.Dataset, distance float64, segments int) (*geodata.Dataset, error) {
	if segments <= 0 {
		segments = defaultBufferSegments
	}

	geoms := ds.Geometries()
	for i, g := range geoms {
		switch geom := g.(type) {
		case nil:
			continue
		case orb.Point:
			geoms[i] = circle(geom, distance, segments)
		case orb.MultiPoint:
			mp := make(orb.MultiPolygon, len(geom))
			for j, p := range geom {
				mp[j] = circle(p, distance, segments)
			}
			geoms[i] = mp
		default:
			return nil, fmt.Errorf("buffer: unsupported geometry type %T at feature %d", g, i)
		}
	}
	return ds.WithGeometries(geoms)
}

// circle approximates a disc of the given radius around center.
func circle(center orb.Point, radius float64, segments int) orb.Polygon {
	ring := make(orb.Ring, 0, segments+1)
	for k := 0; k < segments; k++ {
		theta := 2 * math.Pi * float64(k) / float64(segments)
		ring = append(ring, orb.Point{
			center[0] + radius*math.Cos(theta),
			center[1] + radius*math.Sin(theta),
		})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// Area returns the planar area of each feature's geometry in squared CRS
// units, aligned 1:1 with the dataset's rows.
func Area(ds *geodata.Dataset) []float64 {
	out := make([]float64, ds.Len())
	for i, g := range ds.Geometries() {
		if g == nil {
			continue
		}
		out[i] = planar.Area(g)
	}
	return out
}

// Clip restricts the dataset to the boundary dataset's polygons. Both inputs
// must share a reference system; differing systems require an explicit
// targetCRS, mirroring the CRS manager's reconciliation rules.
//
// Point features are kept when they fall inside any boundary polygon.
// Other geometry types are clipped to the boundary's bounding box.
func Clip(ds, boundary *geodata.Dataset, targetCRS string) (*geodata.Dataset, error) {
	manager := crs.NewManager()
	ds, boundary, err := manager.EnsureCommonCRS(ds, boundary, targetCRS)
	if err != nil {
		return nil, err
	}

	polys, bound, err := boundaryShapes(boundary)
	if err != nil {
		return nil, err
	}

	var kept []int
	clipped := make(map[int]orb.Geometry)
	for i, g := range ds.Geometries() {
		switch geom := g.(type) {
		case nil:
			continue
		case orb.Point:
			if containsPoint(polys, geom) {
				kept = append(kept, i)
			}
		case orb.MultiPoint:
			var inside orb.MultiPoint
			for _, p := range geom {
				if containsPoint(polys, p) {
					inside = append(inside, p)
				}
			}
			if len(inside) > 0 {
				kept = append(kept, i)
				clipped[i] = inside
			}
		default:
			out := clip.Geometry(bound, orb.Clone(g))
			if out != nil {
				kept = append(kept, i)
				clipped[i] = out
			}
		}
	}

	result := ds.Select(kept)
	geoms := result.Geometries()
	for j, idx := range kept {
		if g, ok := clipped[idx]; ok {
			geoms[j] = g
		}
	}
	return result.WithGeometries(geoms)
}

// Reproject transforms the dataset into the target reference system.
func Reproject(ds *geodata.Dataset, target string) (*geodata.Dataset, error) {
	return crs.Reproject(ds, target)
}

// boundaryShapes extracts the polygons and overall bound of the boundary
// dataset.
func boundaryShapes(boundary *geodata.Dataset) ([]orb.Polygon, orb.Bound, error) {
	var polys []orb.Polygon
	var bound orb.Bound
	first := true

	for i, g := range boundary.Geometries() {
		switch geom := g.(type) {
		case nil:
			continue
		case orb.Polygon:
			polys = append(polys, geom)
		case orb.MultiPolygon:
			polys = append(polys, geom...)
		default:
			return nil, orb.Bound{}, fmt.Errorf("clip: boundary feature %d is %T, want polygonal", i, g)
		}
		if first {
			bound = g.Bound()
			first = false
		} else {
			bound = bound.Union(g.Bound())
		}
	}

	if len(polys) == 0 {
		return nil, orb.Bound{}, fmt.Errorf("clip: boundary dataset has no polygons")
	}
	return polys, bound, nil
}

func containsPoint(polys []orb.Polygon, p orb.Point) bool {
	for _, poly := range polys {
		if planar.PolygonContains(poly, p) {
			return true
		}
	}
	return false
}
