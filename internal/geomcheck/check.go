// Package geomcheck implements the topological validity predicate and the
// repair strategies used by the dataset-level validator.
//
// The predicate covers the defects that matter for planar vector data:
// unclosed rings, degenerate rings and lines, duplicate interior vertices
// and ring self-intersections (the classic bow-tie). Null geometries are a
// dataset-level concern and are reported valid here.
package geomcheck

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Check reports whether the geometry is topologically valid. For invalid
// geometries it returns a human-readable description of the defect.
func Check(g orb.Geometry) (bool, string) {
	switch geom := g.(type) {
	case nil:
		return true, ""
	case orb.Point, orb.MultiPoint, orb.Bound:
		return true, ""
	case orb.LineString:
		return checkLineString(geom)
	case orb.MultiLineString:
		for _, ls := range geom {
			if ok, issue := checkLineString(ls); !ok {
				return false, issue
			}
		}
		return true, ""
	case orb.Ring:
		if issue := ringIssue(geom); issue != "" {
			return false, issue
		}
		return true, ""
	case orb.Polygon:
		return checkPolygon(geom)
	case orb.MultiPolygon:
		for _, p := range geom {
			if ok, issue := checkPolygon(p); !ok {
				return false, issue
			}
		}
		return true, ""
	case orb.Collection:
		for _, member := range geom {
			if ok, issue := Check(member); !ok {
				return false, issue
			}
		}
		return true, ""
	}
	return true, ""
}

func checkLineString(ls orb.LineString) (bool, string) {
	if len(ls) == 1 {
		return false, "LineString with a single point"
	}
	return true, ""
}

func checkPolygon(p orb.Polygon) (bool, string) {
	for _, r := range p {
		if issue := ringIssue(r); issue != "" {
			return false, issue
		}
	}
	return true, ""
}

// ringIssue returns a defect description for the ring, or "" if it is valid.
// An empty ring is treated as an empty geometry, not a defect.
func ringIssue(r orb.Ring) string {
	if len(r) == 0 {
		return ""
	}
	if r[0] != r[len(r)-1] {
		return "Ring not closed"
	}
	if len(r) < 4 {
		return "Too few points in ring"
	}

	vs := r[:len(r)-1]
	n := len(vs)

	// Duplicate non-consecutive vertices pinch the ring.
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if vs[i] == vs[j] {
				return fmt.Sprintf("Self-intersection at or near point (%g, %g)", vs[i][0], vs[i][1])
			}
		}
	}

	if pt, ok := firstSelfIntersection(vs); ok {
		return fmt.Sprintf("Self-intersection at or near point (%g, %g)", pt[0], pt[1])
	}
	return ""
}

// firstSelfIntersection finds a proper crossing between two non-adjacent
// segments of the cyclic vertex sequence vs.
func firstSelfIntersection(vs []orb.Point) (orb.Point, bool) {
	n := len(vs)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if segmentsAdjacent(i, j, n) {
				continue
			}
			a1, a2 := vs[i], vs[(i+1)%n]
			b1, b2 := vs[j], vs[(j+1)%n]
			if pt, ok := segmentIntersection(a1, a2, b1, b2); ok {
				return pt, true
			}
		}
	}
	return orb.Point{}, false
}

func segmentsAdjacent(i, j, n int) bool {
	return j == i+1 || (i == 0 && j == n-1)
}

// segmentIntersection returns the proper (interior) crossing point of two
// segments, if any. Shared endpoints between adjacent segments are not
// crossings and are excluded by the caller.
func segmentIntersection(a1, a2, b1, b2 orb.Point) (orb.Point, bool) {
	rx, ry := a2[0]-a1[0], a2[1]-a1[1]
	sx, sy := b2[0]-b1[0], b2[1]-b1[1]

	denom := rx*sy - ry*sx
	if math.Abs(denom) < 1e-14 {
		return orb.Point{}, false
	}

	qpx, qpy := b1[0]-a1[0], b1[1]-a1[1]
	t := (qpx*sy - qpy*sx) / denom
	u := (qpx*ry - qpy*rx) / denom

	const eps = 1e-12
	if t <= eps || t >= 1-eps || u <= eps || u >= 1-eps {
		return orb.Point{}, false
	}
	return orb.Point{a1[0] + t*rx, a1[1] + t*ry}, true
}

// signedArea computes the shoelace area of a closed ring. Positive values
// indicate counter-clockwise winding.
func signedArea(r orb.Ring) float64 {
	if len(r) < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}
