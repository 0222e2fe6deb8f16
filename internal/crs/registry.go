// Package crs provides coordinate reference system identification,
// reconciliation, and reprojection for spatial datasets.
//
// The registry is intentionally small and self-contained: geographic WGS84
// (EPSG:4326), Web Mercator (EPSG:3857), and the WGS84 UTM zones
// (EPSG:32601-32660 north, EPSG:32701-32760 south). Projection math runs on
// the WGS84 ellipsoid without cgo.
package crs

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// WGS84 ellipsoid parameters.
const (
	semiMajorAxis = 6378137.0
	flattening    = 1.0 / 298.257223563

	utmScaleFactor   = 0.9996
	utmFalseEasting  = 500000.0
	utmFalseNorthing = 10000000.0
)

var (
	ecc2  = flattening * (2 - flattening) // first eccentricity squared
	eccP2 = ecc2 / (1 - ecc2)             // second eccentricity squared
)

// Info describes a reference system known to the registry.
type Info struct {
	// Code is the normalised authority code, e.g. "EPSG:4326".
	Code string

	// Geographic reports whether coordinates are angular (degrees) rather
	// than projected linear units (meters).
	Geographic bool

	// toLonLat and fromLonLat convert between this system and geographic
	// WGS84 lon/lat. Both are nil for EPSG:4326 itself.
	toLonLat   func(orb.Point) orb.Point
	fromLonLat func(orb.Point) orb.Point
}

// UnknownCRSError reports a reference system code outside the registry.
type UnknownCRSError struct {
	Code string
}

func (e *UnknownCRSError) Error() string {
	return fmt.Sprintf("unknown CRS %q: supported systems are EPSG:4326, EPSG:3857 and WGS84 UTM zones (EPSG:326xx/327xx)", e.Code)
}

// Normalize canonicalises a CRS code: trims space, upper-cases the authority,
// and accepts a bare numeric EPSG code.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if _, err := strconv.Atoi(code); err == nil {
		return "EPSG:" + code
	}
	parts := strings.SplitN(code, ":", 2)
	if len(parts) == 2 {
		return strings.ToUpper(parts[0]) + ":" + strings.TrimSpace(parts[1])
	}
	return strings.ToUpper(code)
}

// Lookup resolves a CRS code to its registry entry.
func Lookup(code string) (Info, error) {
	norm := Normalize(code)
	if !strings.HasPrefix(norm, "EPSG:") {
		return Info{}, &UnknownCRSError{Code: code}
	}

	epsg, err := strconv.Atoi(strings.TrimPrefix(norm, "EPSG:"))
	if err != nil {
		return Info{}, &UnknownCRSError{Code: code}
	}

	switch {
	case epsg == 4326:
		return Info{Code: norm, Geographic: true}, nil

	case epsg == 3857:
		return Info{
			Code:       norm,
			toLonLat:   project.Mercator.ToWGS84,
			fromLonLat: project.WGS84.ToMercator,
		}, nil

	case epsg >= 32601 && epsg <= 32660:
		return utmInfo(norm, epsg-32600, false), nil

	case epsg >= 32701 && epsg <= 32760:
		return utmInfo(norm, epsg-32700, true), nil
	}

	return Info{}, &UnknownCRSError{Code: code}
}

func utmInfo(code string, zone int, south bool) Info {
	lon0 := float64(-183 + 6*zone) * math.Pi / 180
	return Info{
		Code: code,
		toLonLat: func(p orb.Point) orb.Point {
			return utmInverse(p, lon0, south)
		},
		fromLonLat: func(p orb.Point) orb.Point {
			return utmForward(p, lon0, south)
		},
	}
}

// meridianArc returns the meridional arc length from the equator to latitude
// phi (radians), per Snyder (1987) eq. 3-21.
func meridianArc(phi float64) float64 {
	e2 := ecc2
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajorAxis * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// utmForward projects geographic lon/lat (degrees) to UTM easting/northing.
func utmForward(lonLat orb.Point, lon0 float64, south bool) orb.Point {
	lon := lonLat[0] * math.Pi / 180
	lat := lonLat[1] * math.Pi / 180

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	tanLat := math.Tan(lat)

	n := semiMajorAxis / math.Sqrt(1-ecc2*sinLat*sinLat)
	t := tanLat * tanLat
	c := eccP2 * cosLat * cosLat
	a := cosLat * (lon - lon0)
	m := meridianArc(lat)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	x := utmScaleFactor*n*(a+(1-t+c)*a3/6+(5-18*t+t*t+72*c-58*eccP2)*a5/120) + utmFalseEasting
	y := utmScaleFactor * (m + n*tanLat*(a2/2+(5-t+9*c+4*c*c)*a4/24+(61-58*t+t*t+600*c-330*eccP2)*a6/720))
	if south {
		y += utmFalseNorthing
	}
	return orb.Point{x, y}
}

// utmInverse converts UTM easting/northing back to geographic lon/lat
// (degrees), per Snyder (1987) eq. 8-17ff.
func utmInverse(pt orb.Point, lon0 float64, south bool) orb.Point {
	x := pt[0] - utmFalseEasting
	y := pt[1]
	if south {
		y -= utmFalseNorthing
	}

	e2 := ecc2
	e4 := e2 * e2
	e6 := e4 * e2
	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))

	m := y / utmScaleFactor
	mu := m / (semiMajorAxis * (1 - e2/4 - 3*e4/64 - 5*e6/256))

	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := eccP2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := semiMajorAxis / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := semiMajorAxis * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * utmScaleFactor)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	lat := phi1 - (n1*tanPhi1/r1)*(d2/2-
		(5+3*t1+10*c1-4*c1*c1-9*eccP2)*d4/24+
		(61+90*t1+298*c1+45*t1*t1-252*eccP2-3*c1*c1)*d6/720)
	lon := lon0 + (d-(1+2*t1+c1)*d3/6+
		(5-2*c1+28*t1-3*c1*c1+8*eccP2+24*t1*t1)*d5/120)/cosPhi1

	return orb.Point{lon * 180 / math.Pi, lat * 180 / math.Pi}
}
