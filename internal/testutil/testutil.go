// Package testutil holds shared fixtures for geometry and dataset tests.
package testutil

import (
	"github.com/paulmach/orb"

	"github.com/banshee-data/geoflow/internal/geodata"
)

// SquarePolygon returns a closed unit-scale square with its lower-left
// corner at (x, y).
func SquarePolygon(x, y, size float64) orb.Polygon {
	return orb.Polygon{orb.Ring{
		{x, y}, {x + size, y}, {x + size, y + size}, {x, y + size}, {x, y},
	}}
}

// BowtiePolygon returns the classic self-intersecting "bow-tie" ring, two
// triangular lobes crossing at (1, 1).
func BowtiePolygon() orb.Polygon {
	return orb.Polygon{orb.Ring{
		{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0},
	}}
}

// PointDataset builds a dataset of point features in the given CRS, with an
// "id" attribute per feature.
func PointDataset(crsCode string, points ...orb.Point) *geodata.Dataset {
	features := make([]geodata.Feature, len(points))
	for i, p := range points {
		features[i] = geodata.Feature{
			Attrs:    map[string]any{"id": int64(i)},
			Geometry: p,
		}
	}
	return geodata.New(crsCode, features...)
}

// PolygonDataset builds a dataset of polygon features in the given CRS.
func PolygonDataset(crsCode string, polys ...orb.Polygon) *geodata.Dataset {
	features := make([]geodata.Feature, len(polys))
	for i, p := range polys {
		features[i] = geodata.Feature{
			Attrs:    map[string]any{"id": int64(i)},
			Geometry: p,
		}
	}
	return geodata.New(crsCode, features...)
}

// MixedValidityDataset returns a dataset holding one valid square, one
// bow-tie, one null geometry and one empty line string, in that order.
func MixedValidityDataset(crsCode string) *geodata.Dataset {
	return geodata.New(crsCode,
		geodata.Feature{Attrs: map[string]any{"name": "square"}, Geometry: SquarePolygon(0, 0, 1)},
		geodata.Feature{Attrs: map[string]any{"name": "bowtie"}, Geometry: BowtiePolygon()},
		geodata.Feature{Attrs: map[string]any{"name": "null"}, Geometry: nil},
		geodata.Feature{Attrs: map[string]any{"name": "empty"}, Geometry: orb.LineString{}},
	)
}
