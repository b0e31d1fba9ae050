package geodata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/laguz/internal/mapping"
	"github.com/starford/laguz/internal/store"
	"github.com/starford/laguz/internal/testutil"
)

func testLoader(t *testing.T) (*Loader, *store.DB, string) {
	t.Helper()
	dir := t.TempDir()
	db := testutil.TestDB(t)
	logger := testutil.DiscardLogger()
	return NewLoader(dir, db, mapping.New(logger), logger), db, dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Mirrors the real enrichment sequence: boundaries insert the row, the
// population loader upserts it, and one row ends up holding both column
// subsets.
func TestLoadCountryData_Enrichment(t *testing.T) {
	l, db, dir := testLoader(t)
	writeFile(t, dir, "UIA_World_Countries_Boundaries.csv",
		"FID,COUNTRY,ISO,COUNTRYAFF,AFF_ISO,Shape__Area,Shape__Length\n"+
			"1,Canada,CA,Canada,CA,998467.2,20403.1\n")
	writeFile(t, dir, "wikipedia_populations.csv",
		"name,population\nCanada,38000000\n")
	writeFile(t, dir, "wikipedia_areas.csv",
		"country,total_area_sqkm,land_area_sqkm,water_area_sqkm,water_pct\n"+
			"Canada,9984670,9093507,891163,8.9\n")
	writeFile(t, dir, "google_dataset_publishing_language_center_lat_lng.csv",
		"country,latitude,longitude,name\nCA,56.130366,-106.346771,Canada\n")

	if err := l.LoadCountryData(); err != nil {
		t.Fatalf("LoadCountryData: %v", err)
	}

	tuple, err := db.SelectOne("country",
		[]string{"iso", "population", "land_area", "center_lat"},
		[]string{"name"}, []any{"Canada"})
	if err != nil {
		t.Fatalf("SelectOne: %v", err)
	}
	if tuple[0] != "CA" {
		t.Errorf("iso = %v, want CA", tuple[0])
	}
	if tuple[1] != int64(38000000) {
		t.Errorf("population = %v, want 38000000", tuple[1])
	}
	if tuple[2] != int64(9093507) {
		t.Errorf("land_area = %v, want 9093507", tuple[2])
	}
	if tuple[3] != 56.130366 {
		t.Errorf("center_lat = %v, want 56.130366", tuple[3])
	}

	rows, err := db.Select("country", []string{"name"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("country rows = %d, want exactly one enriched row", len(rows))
	}
}

func TestLoadBoundaryPoints_InsertOnlyIdempotent(t *testing.T) {
	l, db, dir := testLoader(t)
	writeFile(t, dir, "country_boundary_points.geojson", multiPolygonDoc)

	for run := 0; run < 2; run++ {
		if err := l.LoadBoundaryPoints(); err != nil {
			t.Fatalf("LoadBoundaryPoints run %d: %v", run, err)
		}
	}

	rows, err := db.Select("boundary_point", []string{"area_name", "division"})
	if err != nil {
		t.Fatal(err)
	}
	// The document holds 6 coordinate pairs, one of which repeats the
	// ring's opening vertex and collapses under the uniqueness
	// constraint; re-running must not add more.
	if len(rows) != 5 {
		t.Errorf("boundary rows = %d, want 5 after two runs", len(rows))
	}
}

func TestProcess_UnsupportedFileType(t *testing.T) {
	l, _, dir := testLoader(t)
	writeFile(t, dir, "notes.txt", "hello")
	err := l.Process(DataFile{Name: "notes.txt", Table: "country", Action: store.ActionInsert})
	if err == nil {
		t.Fatal("expected error for unsupported file type")
	}
}

func TestProcess_BlankNumericBecomesNull(t *testing.T) {
	l, db, dir := testLoader(t)
	writeFile(t, dir, "wikipedia_populations.csv",
		"name,population\nNauru,\n")
	if err := l.Process(countryFiles[1]); err != nil {
		t.Fatalf("Process: %v", err)
	}
	tuple, err := db.SelectOne("country", []string{"population"}, []string{"name"}, []any{"Nauru"})
	if err != nil {
		t.Fatalf("SelectOne: %v", err)
	}
	if tuple[0] != nil {
		t.Errorf("population = %v, want NULL", tuple[0])
	}
}
