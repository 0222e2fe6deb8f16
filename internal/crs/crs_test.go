package crs

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/geoflow/internal/geodata"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"EPSG:4326", "EPSG:4326"},
		{"epsg:4326", "EPSG:4326"},
		{" epsg:3857 ", "EPSG:3857"},
		{"4326", "EPSG:4326"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("EPSG:99999")
	require.Error(t, err)

	var unknown *UnknownCRSError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, err.Error(), "unknown CRS")
}

func TestLookupGeographicFlag(t *testing.T) {
	info, err := Lookup("EPSG:4326")
	require.NoError(t, err)
	assert.True(t, info.Geographic)

	info, err = Lookup("EPSG:3857")
	require.NoError(t, err)
	assert.False(t, info.Geographic)

	info, err = Lookup("EPSG:32633")
	require.NoError(t, err)
	assert.False(t, info.Geographic)
}

func TestWebMercatorKnownValue(t *testing.T) {
	info, err := Lookup("EPSG:3857")
	require.NoError(t, err)

	// One degree of longitude at the equator.
	p := info.fromLonLat(orb.Point{1, 0})
	assert.InDelta(t, 111319.49079327358, p[0], 1e-6)
	assert.InDelta(t, 0, p[1], 1e-6)

	back := info.toLonLat(p)
	assert.InDelta(t, 1, back[0], 1e-9)
	assert.InDelta(t, 0, back[1], 1e-9)
}

func TestUTMCentralMeridian(t *testing.T) {
	// Zone 33 north: central meridian 15E. A point on the central meridian
	// at the equator maps to the false easting exactly.
	info, err := Lookup("EPSG:32633")
	require.NoError(t, err)

	p := info.fromLonLat(orb.Point{15, 0})
	assert.InDelta(t, 500000, p[0], 1e-3)
	assert.InDelta(t, 0, p[1], 1e-3)
}

func TestUTMRoundTrip(t *testing.T) {
	tests := []struct {
		code string
		lon  float64
		lat  float64
	}{
		{"EPSG:32633", 16.37, 48.21},  // Vienna, zone 33N
		{"EPSG:32610", -122.33, 47.6}, // Seattle, zone 10N
		{"EPSG:32755", 147.32, -42.88}, // Hobart, zone 55S
	}

	for _, tt := range tests {
		info, err := Lookup(tt.code)
		require.NoError(t, err)

		fwd := info.fromLonLat(orb.Point{tt.lon, tt.lat})
		back := info.toLonLat(fwd)

		assert.InDelta(t, tt.lon, back[0], 1e-7, "%s longitude", tt.code)
		assert.InDelta(t, tt.lat, back[1], 1e-7, "%s latitude", tt.code)
	}
}

func TestUTMSouthFalseNorthing(t *testing.T) {
	info, err := Lookup("EPSG:32755")
	require.NoError(t, err)

	p := info.fromLonLat(orb.Point{147, -1})
	assert.Less(t, p[1], 10000000.0)
	assert.Greater(t, p[1], 9000000.0)
}

func TestReprojectMissingCRS(t *testing.T) {
	ds := geodata.New("", geodata.Feature{Geometry: orb.Point{0, 0}})
	_, err := Reproject(ds, "EPSG:3857")
	require.ErrorIs(t, err, ErrMissingCRS)
	assert.Contains(t, err.Error(), "no CRS")
}

func TestReprojectSameCRSUnchanged(t *testing.T) {
	ds := geodata.New("EPSG:4326", geodata.Feature{Geometry: orb.Point{1, 2}})
	out, err := Reproject(ds, "4326")
	require.NoError(t, err)
	assert.Same(t, ds, out)
}

func TestReprojectPreservesNullGeometries(t *testing.T) {
	ds := geodata.New("EPSG:4326",
		geodata.Feature{Geometry: orb.Point{1, 0}},
		geodata.Feature{Geometry: nil},
	)
	out, err := Reproject(ds, "EPSG:3857")
	require.NoError(t, err)
	assert.Equal(t, "EPSG:3857", out.CRS)
	assert.Nil(t, out.Geometries()[1])
}

func TestReprojectDoesNotMutateInput(t *testing.T) {
	orig := orb.Point{1, 0}
	ds := geodata.New("EPSG:4326", geodata.Feature{Geometry: orig})

	_, err := Reproject(ds, "EPSG:3857")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{1, 0}, ds.Geometries()[0])
}

func TestReprojectRoundTripThroughUTM(t *testing.T) {
	ds := geodata.New("EPSG:4326", geodata.Feature{Geometry: orb.Point{16.37, 48.21}})

	utm, err := Reproject(ds, "EPSG:32633")
	require.NoError(t, err)
	back, err := Reproject(utm, "EPSG:4326")
	require.NoError(t, err)

	p := back.Geometries()[0].(orb.Point)
	assert.InDelta(t, 16.37, p[0], 1e-7)
	assert.InDelta(t, 48.21, p[1], 1e-7)
}

func TestEnsureCommonCRS(t *testing.T) {
	a := geodata.New("EPSG:4326", geodata.Feature{Geometry: orb.Point{1, 2}})
	b := geodata.New("EPSG:3857", geodata.Feature{Geometry: orb.Point{111319.49, 222684.2}})
	m := NewManager()

	t.Run("identical systems pass through", func(t *testing.T) {
		outA, outB, err := m.EnsureCommonCRS(a, a.Clone(), "")
		require.NoError(t, err)
		assert.Same(t, a, outA)
		assert.NotNil(t, outB)
	})

	t.Run("mismatch without target fails", func(t *testing.T) {
		_, _, err := m.EnsureCommonCRS(a, b, "")
		require.Error(t, err)

		var mismatch *MismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Contains(t, err.Error(), "CRS mismatch")
		assert.Contains(t, err.Error(), "EPSG:4326")
		assert.Contains(t, err.Error(), "EPSG:3857")
	})

	t.Run("mismatch with target reprojects both", func(t *testing.T) {
		outA, outB, err := m.EnsureCommonCRS(a, b, "EPSG:4326")
		require.NoError(t, err)
		assert.Equal(t, "EPSG:4326", outA.CRS)
		assert.Equal(t, "EPSG:4326", outB.CRS)

		p := outB.Geometries()[0].(orb.Point)
		assert.InDelta(t, 1, p[0], 1e-4)
		assert.InDelta(t, 2, p[1], 1e-4)
	})

	t.Run("missing CRS fails", func(t *testing.T) {
		bare := geodata.New("", geodata.Feature{Geometry: orb.Point{0, 0}})
		_, _, err := m.EnsureCommonCRS(bare, b, "")
		require.ErrorIs(t, err, ErrMissingCRS)
	})
}

func TestIsGeographic(t *testing.T) {
	m := NewManager()
	assert.True(t, m.IsGeographic("EPSG:4326"))
	assert.True(t, m.IsGeographic("4326"))
	assert.False(t, m.IsGeographic("EPSG:3857"))
	assert.False(t, m.IsGeographic("EPSG:32633"))
	assert.False(t, m.IsGeographic("nonsense"))
}

func TestMeridianArcAtEquator(t *testing.T) {
	assert.Equal(t, 0.0, meridianArc(0))
	// A quarter meridian is about 10,001.966 km on WGS84.
	assert.InDelta(t, 10001965.7, meridianArc(math.Pi/2), 100)
}
