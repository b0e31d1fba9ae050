// Package geodata loads the cross-sectional geographic reference files
// (country boundaries, population, area, centroid) into the relational
// store. Each source file is described declaratively by a DataFile spec;
// the loaders themselves are generic over those specs.
package geodata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/laguz/internal/mapping"
	"github.com/starford/laguz/internal/store"
)

// DataFile describes one reference source file: where it lives, how its
// columns map onto target fields, and which persistence action applies it.
type DataFile struct {
	Name      string
	Table     string
	Action    store.Action
	KeyFields []string
	// Columns is the fixed source column order (CSV only).
	Columns []string
	Mapping mapping.Table
	// Fields overrides the persisted field list; when nil it is derived
	// from Mapping in Columns order.
	Fields []string
	// AreaType tags boundary rows (GeoJSON only).
	AreaType string
}

// countryFiles are the four loaders that progressively enrich the country
// table. The first inserts the row; the rest update disjoint column
// subsets by natural key.
var countryFiles = []DataFile{
	{
		Name:      "UIA_World_Countries_Boundaries.csv",
		Table:     "country",
		Action:    store.ActionInsert,
		KeyFields: []string{"name"},
		Columns:   []string{"FID", "COUNTRY", "ISO", "COUNTRYAFF", "AFF_ISO", "Shape__Area", "Shape__Length"},
		Mapping: mapping.Table{
			"FID":           {Coerce: mapping.Skip},
			"COUNTRY":       {Field: "name", Coerce: mapping.Text},
			"ISO":           {Field: "iso", Coerce: mapping.Text},
			"COUNTRYAFF":    {Coerce: mapping.Skip},
			"AFF_ISO":       {Field: "affiliation", Coerce: mapping.Text},
			"Shape__Area":   {Field: "area", Coerce: mapping.Integer},
			"Shape__Length": {Field: "perimeter", Coerce: mapping.Integer},
		},
	},
	{
		Name:      "wikipedia_populations.csv",
		Table:     "country",
		Action:    store.ActionUpsert,
		KeyFields: []string{"name"},
		Columns:   []string{"name", "population"},
		Mapping: mapping.Table{
			"name":       {Field: "name", Coerce: mapping.Text},
			"population": {Field: "population", Coerce: mapping.Integer},
		},
	},
	{
		Name:      "wikipedia_areas.csv",
		Table:     "country",
		Action:    store.ActionUpsert,
		KeyFields: []string{"name"},
		Columns:   []string{"country", "total_area_sqkm", "land_area_sqkm", "water_area_sqkm", "water_pct"},
		Mapping: mapping.Table{
			"country":         {Field: "name", Coerce: mapping.Text},
			"total_area_sqkm": {Field: "area", Coerce: mapping.Integer},
			"land_area_sqkm":  {Field: "land_area", Coerce: mapping.Integer},
			"water_area_sqkm": {Field: "water_area", Coerce: mapping.Integer},
			"water_pct":       {Coerce: mapping.Skip},
		},
	},
	{
		Name:      "google_dataset_publishing_language_center_lat_lng.csv",
		Table:     "country",
		Action:    store.ActionUpsert,
		KeyFields: []string{"name"},
		Columns:   []string{"country", "latitude", "longitude", "name"},
		Mapping: mapping.Table{
			"country":   {Field: "iso", Coerce: mapping.Text},
			"latitude":  {Field: "center_lat", Coerce: mapping.Float},
			"longitude": {Field: "center_lng", Coerce: mapping.Float},
			"name":      {Field: "name", Coerce: mapping.Text},
		},
	},
}

// boundaryFile is insert-only: the table holds hundreds of thousands of
// immutable rows, so re-runs rely on the uniqueness constraint instead of
// updates.
var boundaryFile = DataFile{
	Name:     "country_boundary_points.geojson",
	Table:    "boundary_point",
	Action:   store.ActionInsert,
	AreaType: "country",
	Fields:   []string{"area_name", "area_iso", "area_type", "lat", "lng", "division"},
	Mapping: mapping.Table{
		"ADMIN":  {Field: "area_name", Coerce: mapping.Text},
		"ISO_A2": {Field: "area_iso", Coerce: mapping.Text},
		"ISO_A3": {Coerce: mapping.Skip},
	},
}

// Loader applies DataFile specs from a data directory into the store.
type Loader struct {
	dataDir string
	db      store.Geography
	tf      *mapping.Transformer
	log     *slog.Logger
}

// NewLoader creates a reference-data Loader.
func NewLoader(dataDir string, db store.Geography, tf *mapping.Transformer, logger *slog.Logger) *Loader {
	return &Loader{dataDir: dataDir, db: db, tf: tf, log: logger}
}

// LoadCountryData runs the four country reference loaders in order.
func (l *Loader) LoadCountryData() error {
	for _, df := range countryFiles {
		if err := l.Process(df); err != nil {
			return err
		}
	}
	return nil
}

// LoadBoundaryPoints expands and inserts the boundary polygon source.
func (l *Loader) LoadBoundaryPoints() error {
	return l.Process(boundaryFile)
}

// Process loads one DataFile by extension and applies its persistence
// action as a single batch.
func (l *Loader) Process(df DataFile) error {
	path := filepath.Join(l.dataDir, df.Name)
	ext := strings.TrimPrefix(filepath.Ext(df.Name), ".")
	l.log.Info("geodata: processing file",
		slog.String("file", df.Name),
		slog.String("type", ext),
		slog.String("table", df.Table))

	var rows []store.Row
	var err error
	switch ext {
	case "csv":
		rows, err = l.loadCSV(path, df)
	case "geojson":
		rows, err = l.loadGeoJSON(path, df)
	default:
		return fmt.Errorf("geodata: %s: unsupported file type %q", df.Name, ext)
	}
	if err != nil {
		return fmt.Errorf("geodata: %s: %w", df.Name, err)
	}

	fields := df.Fields
	if fields == nil {
		fields = targetFields(df)
	}
	if err := l.db.Do(df.Action, df.Table, fields, df.KeyFields, rows); err != nil {
		return fmt.Errorf("geodata: %s: %w", df.Name, err)
	}
	l.log.Info("geodata: file loaded",
		slog.String("file", df.Name),
		slog.Int("rows", len(rows)))
	return nil
}

func (l *Loader) loadCSV(path string, df DataFile) ([]store.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []store.Row
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		raw := make(map[string]string, len(record))
		for i, v := range record {
			if i < len(df.Columns) {
				raw[df.Columns[i]] = v
			} else {
				raw[fmt.Sprintf("column %d", i+1)] = v
			}
		}
		rec, err := l.tf.Apply(raw, df.Mapping)
		if err != nil {
			return nil, err
		}
		rows = append(rows, store.Row(rec))
	}
	return rows, nil
}

func (l *Loader) loadGeoJSON(path string, df DataFile) ([]store.Row, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ExpandBoundaries(doc, df.Mapping, df.AreaType, l.tf)
}

// targetFields derives the persisted field list from the mapping, in
// source column order, skipping dropped columns.
func targetFields(df DataFile) []string {
	var out []string
	for _, col := range df.Columns {
		rule, ok := df.Mapping[col]
		if !ok || rule.Coerce == mapping.Skip {
			continue
		}
		out = append(out, rule.Field)
	}
	return out
}
