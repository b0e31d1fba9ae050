package snapshot

import (
	"sort"
	"time"

	"github.com/starford/laguz/internal/canonical"
)

// DateLayout is the month-day-year format used by snapshot file names and
// by every date string in the index. It does not sort correctly as text,
// so all chronological ordering goes through time.Parse.
const DateLayout = "01-02-2006"

// Observation is one source row after canonicalization and transformation.
// Count fields are nil when the source value was blank or non-numeric;
// callers that need totals apply the zero-fallback via Counts.
type Observation struct {
	Location  canonical.Location
	Date      string
	Timestamp string
	Confirmed *int64
	Deaths    *int64
	Recovered *int64
	Lat       *float64
	Lng       *float64
}

// Counts returns the three count fields with nil coerced to zero.
func (o Observation) Counts() (confirmed, deaths, recovered int64) {
	return orZero(o.Confirmed), orZero(o.Deaths), orZero(o.Recovered)
}

func orZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

// Key identifies at most one observation in the index. Location-less
// anomaly rows use a date-only key (empty country and subregion).
type Key struct {
	Country   string
	Subregion string
	Date      string
}

// Index is the full snapshot corpus keyed by (country, subregion, date).
// Each date is sourced from exactly one file, so the at-most-one-entry
// invariant holds by construction. The index is built once by the Loader
// and read-only afterwards.
type Index map[Key]Observation

// Dates returns the distinct date strings present in the index, sorted
// chronologically.
func (idx Index) Dates() []string {
	seen := make(map[string]struct{})
	var out []string
	for k := range idx {
		if _, ok := seen[k.Date]; !ok {
			seen[k.Date] = struct{}{}
			out = append(out, k.Date)
		}
	}
	SortDates(out)
	return out
}

// Entities returns every canonical (country, subregion) pair in the index,
// excluding date-only fallback entries, sorted by country then subregion.
func (idx Index) Entities() []canonical.Location {
	seen := make(map[canonical.Location]struct{})
	var out []canonical.Location
	for k := range idx {
		if k.Country == "" {
			continue
		}
		loc := canonical.Location{Country: k.Country, Subregion: k.Subregion}
		if _, ok := seen[loc]; !ok {
			seen[loc] = struct{}{}
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].Subregion < out[j].Subregion
	})
	return out
}

// Series returns the observations for one entity in chronological order.
func (idx Index) Series(loc canonical.Location) []Observation {
	var out []Observation
	for k, obs := range idx {
		if k.Country == loc.Country && k.Subregion == loc.Subregion {
			out = append(out, obs)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return dateLess(out[i].Date, out[j].Date)
	})
	return out
}

// SortDates sorts MM-DD-YYYY date strings chronologically in place.
func SortDates(dates []string) {
	sort.Slice(dates, func(i, j int) bool {
		return dateLess(dates[i], dates[j])
	})
}

func dateLess(a, b string) bool {
	ta, errA := time.Parse(DateLayout, a)
	tb, errB := time.Parse(DateLayout, b)
	if errA != nil || errB != nil {
		return a < b
	}
	return ta.Before(tb)
}
