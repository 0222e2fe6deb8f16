package geoio

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/geoflow/internal/geodata"
	"github.com/banshee-data/geoflow/internal/provenance"
)

// featureTable is the table name geoflow writes feature data into.
const featureTable = "features"

// provenanceTable is the auxiliary table holding embedded provenance rows.
const provenanceTable = "geoflow_provenance"

const gpkgSchema = `
CREATE TABLE IF NOT EXISTS gpkg_spatial_ref_sys (
	srs_name                 TEXT NOT NULL,
	srs_id                   INTEGER PRIMARY KEY,
	organization             TEXT NOT NULL,
	organization_coordsys_id INTEGER NOT NULL,
	definition               TEXT NOT NULL,
	description              TEXT
);
CREATE TABLE IF NOT EXISTS gpkg_contents (
	table_name  TEXT PRIMARY KEY,
	data_type   TEXT NOT NULL,
	identifier  TEXT UNIQUE,
	description TEXT DEFAULT '',
	last_change DATETIME,
	min_x       DOUBLE,
	min_y       DOUBLE,
	max_x       DOUBLE,
	max_y       DOUBLE,
	srs_id      INTEGER
);
CREATE TABLE IF NOT EXISTS gpkg_geometry_columns (
	table_name         TEXT NOT NULL,
	column_name        TEXT NOT NULL,
	geometry_type_name TEXT NOT NULL,
	srs_id             INTEGER NOT NULL,
	z                  TINYINT NOT NULL,
	m                  TINYINT NOT NULL,
	PRIMARY KEY (table_name, column_name)
);`

func saveGeoPackage(ds *geodata.Dataset, path string, tracker *provenance.Tracker) error {
	// GeoPackage writes replace the whole artifact.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open geopackage %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.Exec(gpkgSchema); err != nil {
		return fmt.Errorf("create geopackage schema: %w", err)
	}

	srsID := epsgID(ds.CRS)
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO gpkg_spatial_ref_sys
		 (srs_name, srs_id, organization, organization_coordsys_id, definition)
		 VALUES (?, ?, 'EPSG', ?, 'undefined')`,
		ds.CRS, srsID, srsID,
	); err != nil {
		return fmt.Errorf("write spatial_ref_sys: %w", err)
	}

	cols := attributeColumns(ds)
	if err := createFeatureTable(db, cols); err != nil {
		return err
	}
	if err := insertFeatures(db, ds, cols, srsID); err != nil {
		return err
	}

	bound := datasetBound(ds)
	if _, err := db.Exec(
		`INSERT INTO gpkg_contents
		 (table_name, data_type, identifier, last_change, min_x, min_y, max_x, max_y, srs_id)
		 VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`,
		featureTable, featureTable, time.Now().UTC().Format(time.RFC3339),
		bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1], srsID,
	); err != nil {
		return fmt.Errorf("write gpkg_contents: %w", err)
	}
	if _, err := db.Exec(
		`INSERT INTO gpkg_geometry_columns
		 (table_name, column_name, geometry_type_name, srs_id, z, m)
		 VALUES (?, 'geom', 'GEOMETRY', ?, 0, 0)`,
		featureTable, srsID,
	); err != nil {
		return fmt.Errorf("write gpkg_geometry_columns: %w", err)
	}

	if tracker != nil {
		if err := embedProvenance(db, tracker); err != nil {
			return err
		}
	}
	return nil
}

// embedProvenance writes the ledger into the dedicated auxiliary table as
// one (timestamp, provenance_json) row.
func embedProvenance(db *sql.DB, tracker *provenance.Tracker) error {
	ledgerJSON, err := tracker.MarshalJSON()
	if err != nil {
		return fmt.Errorf("serialize provenance: %w", err)
	}
	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS ` + provenanceTable + ` (
			timestamp       TEXT NOT NULL,
			provenance_json TEXT NOT NULL
		)`,
	); err != nil {
		return fmt.Errorf("create provenance table: %w", err)
	}
	if _, err := db.Exec(
		`INSERT INTO `+provenanceTable+` (timestamp, provenance_json) VALUES (?, ?)`,
		time.Now().UTC().Format(time.RFC3339), string(ledgerJSON),
	); err != nil {
		return fmt.Errorf("embed provenance: %w", err)
	}
	return nil
}

// column describes one attribute column of the feature table.
type column struct {
	name    string
	sqlType string
}

// attributeColumns derives a deterministic column set from the union of
// attribute keys, typed by the first non-nil value seen.
func attributeColumns(ds *geodata.Dataset) []column {
	types := make(map[string]string)
	for _, f := range ds.Features() {
		for k, v := range f.Attrs {
			if _, seen := types[k]; seen && types[k] != "" {
				continue
			}
			types[k] = sqlTypeOf(v)
		}
	}

	names := make([]string, 0, len(types))
	for k := range types {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]column, len(names))
	for i, name := range names {
		t := types[name]
		if t == "" {
			t = "TEXT"
		}
		cols[i] = column{name: name, sqlType: t}
	}
	return cols
}

func sqlTypeOf(v any) string {
	switch v.(type) {
	case nil:
		return ""
	case bool:
		return "BOOLEAN"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "INTEGER"
	case float32, float64:
		return "REAL"
	default:
		return "TEXT"
	}
}

func createFeatureTable(db *sql.DB, cols []column) error {
	var b strings.Builder
	b.WriteString(`CREATE TABLE "` + featureTable + `" (fid INTEGER PRIMARY KEY AUTOINCREMENT, geom BLOB`)
	for _, c := range cols {
		fmt.Fprintf(&b, `, %q %s`, c.name, c.sqlType)
	}
	b.WriteString(")")

	if _, err := db.Exec(b.String()); err != nil {
		return fmt.Errorf("create feature table: %w", err)
	}
	return nil
}

func insertFeatures(db *sql.DB, ds *geodata.Dataset, cols []column, srsID int) error {
	colNames := make([]string, 0, len(cols)+1)
	colNames = append(colNames, "geom")
	placeholders := []string{"?"}
	for _, c := range cols {
		colNames = append(colNames, fmt.Sprintf("%q", c.name))
		placeholders = append(placeholders, "?")
	}
	stmt := fmt.Sprintf(`INSERT INTO %q (%s) VALUES (%s)`,
		featureTable, strings.Join(colNames, ", "), strings.Join(placeholders, ", "))

	for i := 0; i < ds.Len(); i++ {
		f := ds.Feature(i)

		args := make([]any, 0, len(cols)+1)
		if f.Geometry == nil {
			args = append(args, nil)
		} else {
			blob, err := gpkgBlob(f.Geometry, srsID)
			if err != nil {
				return fmt.Errorf("encode geometry for feature %d: %w", i, err)
			}
			args = append(args, blob)
		}
		for _, c := range cols {
			v, ok := f.Attrs[c.name]
			if !ok {
				args = append(args, nil)
				continue
			}
			args = append(args, normalizeSQLValue(v))
		}

		if _, err := db.Exec(stmt, args...); err != nil {
			return fmt.Errorf("insert feature %d: %w", i, err)
		}
	}
	return nil
}

func normalizeSQLValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, int, int64, float64:
		return val
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return fmt.Sprint(val)
	}
}

func loadGeoPackage(path string) (*geodata.Dataset, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open geopackage %s: %w", path, err)
	}
	defer db.Close()

	var table, geomCol string
	var srsID int
	err = db.QueryRow(
		`SELECT table_name, column_name, srs_id FROM gpkg_geometry_columns LIMIT 1`,
	).Scan(&table, &geomCol, &srsID)
	if err != nil {
		return nil, fmt.Errorf("%s is not a readable geopackage: %w", path, err)
	}

	rows, err := db.Query(fmt.Sprintf(`SELECT * FROM %q ORDER BY fid`, table))
	if err != nil {
		return nil, fmt.Errorf("read feature table %q: %w", table, err)
	}
	defer rows.Close()

	colNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var features []geodata.Feature
	for rows.Next() {
		values := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		f := geodata.Feature{Attrs: make(map[string]any)}
		for i, name := range colNames {
			switch name {
			case "fid":
				continue
			case geomCol:
				if values[i] == nil {
					continue
				}
				blob, ok := values[i].([]byte)
				if !ok {
					return nil, fmt.Errorf("geometry column %q holds %T, want blob", geomCol, values[i])
				}
				g, err := parseGpkgBlob(blob)
				if err != nil {
					return nil, err
				}
				f.Geometry = g
			default:
				if raw, ok := values[i].([]byte); ok {
					f.Attrs[name] = string(raw)
				} else {
					f.Attrs[name] = values[i]
				}
			}
		}
		features = append(features, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crsCode := ""
	if srsID > 0 {
		crsCode = "EPSG:" + strconv.Itoa(srsID)
	}
	return geodata.New(crsCode, features...), nil
}

// ReadEmbeddedProvenance returns the ledgers stored in a GeoPackage's
// provenance table, oldest first. A GeoPackage without the table yields an
// empty slice.
func ReadEmbeddedProvenance(path string) ([]*provenance.Tracker, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open geopackage %s: %w", path, err)
	}
	defer db.Close()

	var exists int
	err = db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, provenanceTable,
	).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, nil
	}

	rows, err := db.Query(`SELECT provenance_json FROM ` + provenanceTable + ` ORDER BY timestamp`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trackers []*provenance.Tracker
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		t, err := provenance.Parse([]byte(raw), nil)
		if err != nil {
			return nil, err
		}
		trackers = append(trackers, t)
	}
	return trackers, rows.Err()
}

// gpkgBlob encodes a geometry as a GeoPackage geometry blob: the "GP"
// header (little-endian, no envelope) followed by standard WKB.
func gpkgBlob(g orb.Geometry, srsID int) ([]byte, error) {
	wkbData, err := wkb.Marshal(g)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 8)
	header[0] = 'G'
	header[1] = 'P'
	header[2] = 0    // version
	header[3] = 0x01 // little-endian header, no envelope
	binary.LittleEndian.PutUint32(header[4:], uint32(int32(srsID)))
	return append(header, wkbData...), nil
}

// parseGpkgBlob strips the GeoPackage header (including any envelope) and
// decodes the WKB payload.
func parseGpkgBlob(blob []byte) (orb.Geometry, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, fmt.Errorf("geometry blob lacks GeoPackage header")
	}

	flags := blob[3]
	var envelopeSize int
	switch (flags >> 1) & 0x07 {
	case 0:
		envelopeSize = 0
	case 1:
		envelopeSize = 32
	case 2, 3:
		envelopeSize = 48
	case 4:
		envelopeSize = 64
	default:
		return nil, fmt.Errorf("invalid GeoPackage envelope indicator %d", (flags>>1)&0x07)
	}

	offset := 8 + envelopeSize
	if len(blob) < offset {
		return nil, fmt.Errorf("GeoPackage geometry blob truncated")
	}
	return wkb.Unmarshal(blob[offset:])
}

// epsgID extracts the numeric EPSG id from a CRS code, or 0 when absent.
func epsgID(code string) int {
	code = strings.TrimSpace(strings.ToUpper(code))
	code = strings.TrimPrefix(code, "EPSG:")
	id, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return id
}

// datasetBound unions the bounds of every non-null geometry.
func datasetBound(ds *geodata.Dataset) orb.Bound {
	var bound orb.Bound
	first := true
	for _, g := range ds.Geometries() {
		if g == nil {
			continue
		}
		if first {
			bound = g.Bound()
			first = false
		} else {
			bound = bound.Union(g.Bound())
		}
	}
	return bound
}
