package geoio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/geoflow/internal/geodata"
	"github.com/banshee-data/geoflow/internal/provenance"
)

// GeoJSON has no CRS field since RFC 7946; coordinates are geographic WGS84.
const geoJSONCRS = "EPSG:4326"

// sidecar is the `<path>.provenance.json` wrapper written next to formats
// that cannot embed auxiliary tables.
type sidecar struct {
	DataFile   string          `json:"data_file"`
	SavedAt    time.Time       `json:"saved_at"`
	Provenance json.RawMessage `json:"provenance"`
}

func loadGeoJSON(path string) (*geodata.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	features := make([]geodata.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		attrs := make(map[string]any, len(f.Properties))
		for k, v := range f.Properties {
			attrs[k] = v
		}
		features = append(features, geodata.Feature{Attrs: attrs, Geometry: f.Geometry})
	}
	return geodata.New(geoJSONCRS, features...), nil
}

func saveGeoJSON(ds *geodata.Dataset, path string, tracker *provenance.Tracker) error {
	fc := geojson.NewFeatureCollection()
	for _, f := range ds.Features() {
		gf := geojson.NewFeature(f.Geometry)
		for k, v := range f.Attrs {
			gf.Properties[k] = v
		}
		fc.Append(gf)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	if tracker == nil {
		return nil
	}
	return writeSidecar(path, tracker)
}

// writeSidecar persists the ledger alongside the data file following the
// `<output>.provenance.json` convention.
func writeSidecar(dataPath string, tracker *provenance.Tracker) error {
	ledgerJSON, err := tracker.MarshalJSON()
	if err != nil {
		return fmt.Errorf("serialize provenance: %w", err)
	}

	wrapper := sidecar{
		DataFile:   filepath.Base(dataPath),
		SavedAt:    time.Now().UTC(),
		Provenance: ledgerJSON,
	}
	data, err := json.MarshalIndent(wrapper, "", "  ")
	if err != nil {
		return fmt.Errorf("encode provenance sidecar: %w", err)
	}
	return os.WriteFile(dataPath+".provenance.json", data, 0o644)
}
