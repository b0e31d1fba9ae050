// Package snapshot loads the daily per-region report files into an
// in-memory index keyed by canonical location and date.
package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/laguz/internal/canonical"
	"github.com/starford/laguz/internal/mapping"
)

// FileName returns the snapshot file name for one calendar day.
func FileName(day time.Time) string {
	return fmt.Sprintf("csse_daily_%s.csv", day.Format(DateLayout))
}

// fileColumns is the fixed column order of a daily report file. Only the
// first (header) row is skipped; no further header validation is done.
var fileColumns = []string{
	"Province/State",
	"Country/Region",
	"Last Update",
	"Confirmed",
	"Deaths",
	"Recovered",
	"Latitude",
	"Longitude",
}

// fileTable binds the daily report columns to observation fields.
var fileTable = mapping.Table{
	"Province/State": {Field: "subregion", Coerce: mapping.Text},
	"Country/Region": {Field: "country", Coerce: mapping.Text},
	"Last Update":    {Field: "timestamp", Coerce: mapping.Text},
	"Confirmed":      {Field: "confirmed", Coerce: mapping.Integer},
	"Deaths":         {Field: "deaths", Coerce: mapping.Integer},
	"Recovered":      {Field: "recovered", Coerce: mapping.Integer},
	"Latitude":       {Field: "lat", Coerce: mapping.Float},
	"Longitude":      {Field: "lng", Coerce: mapping.Float},
}

// DateRange is an inclusive calendar range.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// RangeUntilToday spans from start through the current day.
func RangeUntilToday(start time.Time) DateRange {
	return DateRange{Start: start, End: time.Now()}
}

// Loader builds a snapshot Index from the daily files in a data directory.
type Loader struct {
	dataDir string
	tf      *mapping.Transformer
	log     *slog.Logger
}

// NewLoader creates a Loader reading from dataDir.
func NewLoader(dataDir string, tf *mapping.Transformer, logger *slog.Logger) *Loader {
	return &Loader{dataDir: dataDir, tf: tf, log: logger}
}

// Load walks every calendar date in r inclusive and indexes each file it
// finds. Missing files are logged and skipped; the corpus is append-only
// and files for recent dates may not exist yet. A mapping/source mismatch
// inside a file is a configuration defect and aborts the load.
//
// The result is deterministic: identical input files produce an identical
// index regardless of the order dates are visited.
func (l *Loader) Load(r DateRange) (Index, error) {
	idx := make(Index)
	for day := r.Start; !day.After(r.End); day = day.AddDate(0, 0, 1) {
		path := filepath.Join(l.dataDir, FileName(day))
		date := day.Format(DateLayout)
		if err := l.loadFile(idx, path, date); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				l.log.Warn("snapshot: file missing, skipping date",
					slog.String("date", date),
					slog.String("path", path))
				continue
			}
			return nil, fmt.Errorf("snapshot: load %s: %w", path, err)
		}
	}
	return idx, nil
}

func (l *Loader) loadFile(idx Index, path, date string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}
		if err := l.indexRow(idx, row, date); err != nil {
			return err
		}
	}
}

func (l *Loader) indexRow(idx Index, row []string, date string) error {
	raw := make(map[string]string, len(row))
	for i, v := range row {
		if i < len(fileColumns) {
			raw[fileColumns[i]] = v
		} else {
			// Extra columns have no mapping entry and fail in Apply,
			// surfacing schema drift instead of dropping data silently.
			raw[fmt.Sprintf("column %d", i+1)] = v
		}
	}

	rec, err := l.tf.Apply(raw, fileTable)
	if err != nil {
		return err
	}

	loc := canonical.Resolve(asString(rec["country"]), asString(rec["subregion"]))
	obs := Observation{
		Location:  loc,
		Date:      date,
		Timestamp: asString(rec["timestamp"]),
		Confirmed: asInt(rec["confirmed"]),
		Deaths:    asInt(rec["deaths"]),
		Recovered: asInt(rec["recovered"]),
		Lat:       asFloat(rec["lat"]),
		Lng:       asFloat(rec["lng"]),
	}

	key := Key{Country: loc.Country, Subregion: loc.Subregion, Date: date}
	if loc.Country == "" {
		// Cannot happen while Resolve substitutes the Unknown sentinel,
		// but a location-less row is still kept for audit under a
		// date-only bucket rather than discarded.
		l.log.Warn("snapshot: row has no location", slog.String("date", date))
		key = Key{Date: date}
	}
	idx[key] = obs
	return nil
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt(v any) *int64 {
	if n, ok := v.(int64); ok {
		return &n
	}
	return nil
}

func asFloat(v any) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}
