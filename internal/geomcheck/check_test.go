package geomcheck

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() orb.Polygon {
	return orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
}

func bowtie() orb.Polygon {
	return orb.Polygon{orb.Ring{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}}
}

func TestCheckValidGeometries(t *testing.T) {
	valid := []orb.Geometry{
		nil,
		orb.Point{1, 2},
		orb.MultiPoint{{0, 0}, {1, 1}},
		orb.LineString{{0, 0}, {1, 1}},
		orb.LineString{},
		square(),
		orb.MultiPolygon{square()},
		orb.Collection{orb.Point{0, 0}, square()},
	}
	for _, g := range valid {
		ok, issue := Check(g)
		assert.True(t, ok, "expected %T valid, got issue %q", g, issue)
		assert.Empty(t, issue)
	}
}

func TestCheckSinglePointLineString(t *testing.T) {
	ok, issue := Check(orb.LineString{{1, 1}})
	assert.False(t, ok)
	assert.Equal(t, "LineString with a single point", issue)
}

func TestCheckUnclosedRing(t *testing.T) {
	ok, issue := Check(orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}}})
	assert.False(t, ok)
	assert.Equal(t, "Ring not closed", issue)
}

func TestCheckDegenerateRing(t *testing.T) {
	ok, issue := Check(orb.Polygon{orb.Ring{{0, 0}, {1, 1}, {0, 0}}})
	assert.False(t, ok)
	assert.Equal(t, "Too few points in ring", issue)
}

func TestCheckBowtie(t *testing.T) {
	ok, issue := Check(bowtie())
	assert.False(t, ok)
	assert.Contains(t, issue, "Self-intersection at or near point (1, 1)")
}

func TestCheckPinchedRing(t *testing.T) {
	// Figure-eight sharing the vertex (1, 1).
	pinched := orb.Ring{{0, 0}, {1, 1}, {2, 0}, {2, 2}, {1, 1}, {0, 2}, {0, 0}}
	ok, issue := Check(pinched)
	assert.False(t, ok)
	assert.Contains(t, issue, "Self-intersection")
}

func TestCheckInvalidMemberOfMultiPolygon(t *testing.T) {
	ok, issue := Check(orb.MultiPolygon{square(), bowtie()})
	assert.False(t, ok)
	assert.Contains(t, issue, "Self-intersection")
}

func TestMakeValidKeepsValidInput(t *testing.T) {
	in := square()
	out, err := MakeValid(in)
	require.NoError(t, err)
	assert.Equal(t, orb.Geometry(in), out)
}

func TestMakeValidBowtie(t *testing.T) {
	out, err := MakeValid(bowtie())
	require.NoError(t, err)

	mp, ok := out.(orb.MultiPolygon)
	require.True(t, ok, "expected MultiPolygon, got %T", out)
	require.Len(t, mp, 2)

	valid, issue := Check(out)
	assert.True(t, valid, "repaired geometry still invalid: %s", issue)

	// The bow-tie splits into two unit-area triangles.
	total := 0.0
	for _, p := range mp {
		total += signedArea(p[0])
	}
	assert.InDelta(t, 2.0, total, 1e-9)
}

func TestMakeValidPinchedRing(t *testing.T) {
	// Figure-eight touching at the shared vertex (1, 1): no segment
	// crossing, only the repeated vertex pinches the ring.
	pinched := orb.Ring{{0, 0}, {1, 1}, {2, 0}, {2, 2}, {1, 1}, {0, 2}, {0, 0}}

	out, err := MakeValid(pinched)
	require.NoError(t, err)

	valid, issue := Check(out)
	assert.True(t, valid, "repaired geometry still invalid: %s", issue)

	mp, ok := out.(orb.MultiPolygon)
	require.True(t, ok, "expected MultiPolygon, got %T", out)
	require.Len(t, mp, 2)

	total := 0.0
	for _, p := range mp {
		total += signedArea(p[0])
	}
	assert.InDelta(t, 2.0, total, 1e-9)
}

func TestBufferZeroPinchedRing(t *testing.T) {
	pinched := orb.Ring{{0, 0}, {1, 1}, {2, 0}, {2, 2}, {1, 1}, {0, 2}, {0, 0}}

	out, err := BufferZero(pinched)
	require.NoError(t, err)

	valid, issue := Check(out)
	assert.True(t, valid, "repaired geometry still invalid: %s", issue)

	_, isPoly := out.(orb.Polygon)
	assert.True(t, isPoly, "expected single Polygon, got %T", out)
}

func TestMakeValidIdempotent(t *testing.T) {
	once, err := MakeValid(bowtie())
	require.NoError(t, err)
	twice, err := MakeValid(once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestBufferZeroKeepsDominantLobe(t *testing.T) {
	// Asymmetric bow-tie: the right lobe is larger and must survive.
	uneven := orb.Polygon{orb.Ring{{0, 0}, {3, 3}, {3, 0}, {0, 1}, {0, 0}}}
	ok, _ := Check(uneven)
	require.False(t, ok, "fixture must be invalid")

	out, err := BufferZero(uneven)
	require.NoError(t, err)

	poly, isPoly := out.(orb.Polygon)
	require.True(t, isPoly, "expected single Polygon, got %T", out)

	valid, issue := Check(poly)
	assert.True(t, valid, "repaired geometry still invalid: %s", issue)
}

func TestBufferZeroValidInputUnchanged(t *testing.T) {
	in := square()
	out, err := BufferZero(in)
	require.NoError(t, err)
	assert.Equal(t, orb.Geometry(in), out)
}

func TestMakeValidUnsupportedType(t *testing.T) {
	_, err := MakeValid(orb.LineString{{0, 0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot repair")
}

func TestRepairPreservesHoles(t *testing.T) {
	// Valid outer bow-tie with a small hole inside the left lobe.
	outer := orb.Ring{{0, 0}, {4, 4}, {4, 0}, {0, 4}, {0, 0}}
	hole := orb.Ring{{0.5, 1.8}, {0.7, 1.8}, {0.7, 2.2}, {0.5, 2.2}, {0.5, 1.8}}
	p := orb.Polygon{outer, hole}

	out, err := MakeValid(p)
	require.NoError(t, err)

	mp, ok := out.(orb.MultiPolygon)
	require.True(t, ok)

	holes := 0
	for _, poly := range mp {
		holes += len(poly) - 1
	}
	assert.Equal(t, 1, holes, "hole should be re-attached to its containing lobe")
}

func TestSignedArea(t *testing.T) {
	ccw := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	assert.InDelta(t, 1.0, signedArea(ccw), 1e-12)

	cw := orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	assert.InDelta(t, -1.0, signedArea(cw), 1e-12)
}
