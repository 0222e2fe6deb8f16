package spatial

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/geoflow/internal/crs"
	"github.com/banshee-data/geoflow/internal/geodata"
	"github.com/banshee-data/geoflow/internal/testutil"
)

func geomDataset(crsCode string, geoms ...orb.Geometry) *geodata.Dataset {
	features := make([]geodata.Feature, len(geoms))
	for i, g := range geoms {
		features[i] = geodata.Feature{Attrs: map[string]any{}, Geometry: g}
	}
	return geodata.New(crsCode, features...)
}

func TestBufferPoints(t *testing.T) {
	ds := testutil.PointDataset("EPSG:32633", orb.Point{500000, 0})

	out, err := Buffer(ds, 100, 0)
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())

	poly, ok := out.Geometries()[0].(orb.Polygon)
	require.True(t, ok, "buffered point should be a polygon, got %T", out.Geometries()[0])

	// At 128 segments the inscribed polygon area stays within 0.1% of the
	// true disc area.
	area := Area(out)[0]
	want := math.Pi * 100 * 100
	assert.InEpsilon(t, want, area, 1e-3)

	// Ring is closed and centered on the original point.
	ring := poly[0]
	assert.Equal(t, ring[0], ring[len(ring)-1])
	bound := poly.Bound()
	assert.InDelta(t, 500000, (bound.Min[0]+bound.Max[0])/2, 1e-6)
}

func TestBufferMultiPoint(t *testing.T) {
	in := geomDataset("EPSG:32633", orb.MultiPoint{{0, 0}, {1000, 1000}})

	buffered, err := Buffer(in, 10, 16)
	require.NoError(t, err)

	out, ok := buffered.Geometries()[0].(orb.MultiPolygon)
	require.True(t, ok)
	assert.Len(t, out, 2)
}

func TestBufferNullPassesThrough(t *testing.T) {
	in := geomDataset("EPSG:32633", orb.Point{0, 0}, nil)

	out, err := Buffer(in, 10, 16)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Nil(t, out.Geometries()[1])
}

func TestBufferRejectsLines(t *testing.T) {
	in := geomDataset("EPSG:32633", orb.LineString{{0, 0}, {1, 1}})
	_, err := Buffer(in, 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported geometry type")
}

func TestAreaAlignsWithRows(t *testing.T) {
	ds := geomDataset("EPSG:32633",
		testutil.SquarePolygon(0, 0, 2),
		nil,
		testutil.SquarePolygon(10, 10, 3),
	)

	areas := Area(ds)
	require.Len(t, areas, 3)
	assert.InDelta(t, 4, areas[0], 1e-9)
	assert.Equal(t, 0.0, areas[1])
	assert.InDelta(t, 9, areas[2], 1e-9)
}

func TestClipPoints(t *testing.T) {
	points := testutil.PointDataset("EPSG:32633",
		orb.Point{1, 1},
		orb.Point{5, 5},
		orb.Point{1.5, 0.5},
	)
	boundary := testutil.PolygonDataset("EPSG:32633", testutil.SquarePolygon(0, 0, 2))

	out, err := Clip(points, boundary, "")
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, int64(0), out.Feature(0).Attrs["id"])
	assert.Equal(t, int64(2), out.Feature(1).Attrs["id"])
}

func TestClipCRSMismatch(t *testing.T) {
	points := testutil.PointDataset("EPSG:4326", orb.Point{0.00001, 0.00001})
	boundary := testutil.PolygonDataset("EPSG:3857", testutil.SquarePolygon(-10, -10, 20))

	_, err := Clip(points, boundary, "")
	var mismatch *crs.MismatchError
	require.ErrorAs(t, err, &mismatch)

	out, err := Clip(points, boundary, "EPSG:3857")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len(), "reprojected point lands inside the boundary")
	assert.Equal(t, "EPSG:3857", out.CRS)
}

func TestClipRequiresPolygonalBoundary(t *testing.T) {
	points := testutil.PointDataset("EPSG:32633", orb.Point{0, 0})
	boundary := testutil.PointDataset("EPSG:32633", orb.Point{0, 0})

	_, err := Clip(points, boundary, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want polygonal")
}

func TestClipEmptyBoundary(t *testing.T) {
	points := testutil.PointDataset("EPSG:32633", orb.Point{0, 0})
	boundary := testutil.PolygonDataset("EPSG:32633")

	_, err := Clip(points, boundary, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no polygons")
}

func TestClipPreservesSourceTag(t *testing.T) {
	points := testutil.PointDataset("EPSG:32633", orb.Point{1, 1})
	points.Source = "input.geojson"
	boundary := testutil.PolygonDataset("EPSG:32633", testutil.SquarePolygon(0, 0, 2))

	out, err := Clip(points, boundary, "")
	require.NoError(t, err)
	assert.Equal(t, "input.geojson", out.Source)
}

func TestReprojectDelegates(t *testing.T) {
	ds := testutil.PointDataset("EPSG:4326", orb.Point{15, 0})
	out, err := Reproject(ds, "EPSG:32633")
	require.NoError(t, err)

	p := out.Geometries()[0].(orb.Point)
	assert.InDelta(t, 500000, p[0], 1e-3)
}
