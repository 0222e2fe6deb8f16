package geomcheck

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// degenerateArea is the threshold below which a decomposed lobe is discarded
// as numerical noise rather than a real face.
const degenerateArea = 1e-12

// MakeValid reconstructs a topologically valid geometry of the same or a
// compatible dimension by structural decomposition and recombination: each
// self-intersecting ring is split at its crossing points and the resulting
// simple lobes are recombined. Valid input is returned unchanged, so repair
// is idempotent.
func MakeValid(g orb.Geometry) (orb.Geometry, error) {
	if ok, _ := Check(g); ok {
		return g, nil
	}

	switch geom := g.(type) {
	case orb.Polygon:
		return repairPolygon(geom, false)
	case orb.MultiPolygon:
		return repairMultiPolygon(geom, false)
	case orb.Ring:
		repaired, err := repairPolygon(orb.Polygon{geom}, false)
		if err != nil {
			return nil, err
		}
		return repaired, nil
	}
	return nil, fmt.Errorf("cannot repair geometry of type %T", g)
}

// BufferZero repairs via the zero-distance buffer trick: the invalid ring is
// decomposed like MakeValid, but only the dominant face survives. This is
// coarser than MakeValid and may discard small lobes, slightly perturbing
// the shape. Valid input is returned unchanged.
func BufferZero(g orb.Geometry) (orb.Geometry, error) {
	if ok, _ := Check(g); ok {
		return g, nil
	}

	switch geom := g.(type) {
	case orb.Polygon:
		return repairPolygon(geom, true)
	case orb.MultiPolygon:
		return repairMultiPolygon(geom, true)
	case orb.Ring:
		repaired, err := repairPolygon(orb.Polygon{geom}, true)
		if err != nil {
			return nil, err
		}
		return repaired, nil
	}
	return nil, fmt.Errorf("cannot repair geometry of type %T", g)
}

func repairMultiPolygon(mp orb.MultiPolygon, dominantOnly bool) (orb.Geometry, error) {
	var out orb.MultiPolygon
	for _, p := range mp {
		repaired, err := repairPolygon(p, dominantOnly)
		if err != nil {
			return nil, err
		}
		switch r := repaired.(type) {
		case orb.Polygon:
			out = append(out, r)
		case orb.MultiPolygon:
			out = append(out, r...)
		}
	}
	return out, nil
}

// repairPolygon rebuilds a polygon from its decomposed shell lobes. Valid
// holes are re-attached to the lobe that contains them; defective holes are
// decomposed and any lobe contained in a shell becomes a hole again.
func repairPolygon(p orb.Polygon, dominantOnly bool) (orb.Geometry, error) {
	if len(p) == 0 {
		return p, nil
	}

	shells := simpleLobes(p[0])
	if len(shells) == 0 {
		return nil, fmt.Errorf("polygon shell degenerated during repair")
	}

	for i := range shells {
		if shells[i].Orientation() != orb.CCW {
			shells[i].Reverse()
		}
	}

	if dominantOnly {
		shells = []orb.Ring{largestLobe(shells)}
	}

	polys := make([]orb.Polygon, len(shells))
	for i, shell := range shells {
		polys[i] = orb.Polygon{closedCopy(shell)}
	}

	// Re-attach holes to whichever shell contains them.
	for _, hole := range p[1:] {
		for _, lobe := range simpleLobes(hole) {
			if lobe.Orientation() != orb.CW {
				lobe.Reverse()
			}
			for i := range polys {
				if planar.RingContains(polys[i][0], lobe[0]) {
					polys[i] = append(polys[i], closedCopy(lobe))
					break
				}
			}
		}
	}

	if len(polys) == 1 {
		return polys[0], nil
	}
	out := make(orb.MultiPolygon, len(polys))
	copy(out, polys)
	return out, nil
}

// simpleLobes splits a ring at its self-intersection points and returns the
// simple, non-degenerate closed rings that remain.
func simpleLobes(r orb.Ring) []orb.Ring {
	if len(r) < 3 {
		return nil
	}
	vs := make([]orb.Point, 0, len(r))
	vs = append(vs, r...)
	if vs[0] == vs[len(vs)-1] {
		vs = vs[:len(vs)-1]
	}

	var out []orb.Ring
	for _, lobe := range splitAtCrossings(vs) {
		if len(lobe) < 3 {
			continue
		}
		closed := closedCopy(lobe)
		if math.Abs(signedArea(closed)) < degenerateArea {
			continue
		}
		out = append(out, closed)
	}
	return out
}

// splitAtCrossings recursively cuts the cyclic vertex sequence at its first
// pinch point or crossing until every piece is simple.
func splitAtCrossings(vs []orb.Point) []orb.Ring {
	n := len(vs)

	// A repeated non-consecutive vertex pinches the cycle into two
	// sub-rings meeting at that vertex. vs[0] and vs[n-1] are cyclically
	// adjacent, so equality there is a degenerate edge, not a pinch.
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if vs[i] != vs[j] {
				continue
			}

			a := make([]orb.Point, 0, j-i)
			a = append(a, vs[i:j]...)

			b := make([]orb.Point, 0, n-(j-i))
			b = append(b, vs[j:]...)
			b = append(b, vs[:i]...)

			return append(splitAtCrossings(a), splitAtCrossings(b)...)
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if segmentsAdjacent(i, j, n) {
				continue
			}
			pt, ok := segmentIntersection(vs[i], vs[(i+1)%n], vs[j], vs[(j+1)%n])
			if !ok {
				continue
			}

			// First piece: crossing point, then vertices strictly between
			// the two crossing segments.
			a := []orb.Point{pt}
			for k := i + 1; k <= j; k++ {
				a = append(a, vs[k])
			}

			// Second piece: crossing point, then the remaining vertices
			// wrapping past the end of the sequence.
			b := []orb.Point{pt}
			for k := j + 1; k < n; k++ {
				b = append(b, vs[k])
			}
			for k := 0; k <= i; k++ {
				b = append(b, vs[k])
			}

			return append(splitAtCrossings(a), splitAtCrossings(b)...)
		}
	}
	return []orb.Ring{orb.Ring(vs)}
}

func largestLobe(lobes []orb.Ring) orb.Ring {
	best := lobes[0]
	bestArea := math.Abs(signedArea(closedCopy(best)))
	for _, lobe := range lobes[1:] {
		if area := math.Abs(signedArea(closedCopy(lobe))); area > bestArea {
			best, bestArea = lobe, area
		}
	}
	return best
}

// closedCopy returns a closed copy of the ring (first point repeated last).
func closedCopy(r orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r)+1)
	out = append(out, r...)
	if len(out) > 0 && out[0] != out[len(out)-1] {
		out = append(out, out[0])
	}
	return out
}
