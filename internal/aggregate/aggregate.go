// Package aggregate reduces the snapshot index into global per-date totals
// and running cumulative counters. The reduction is pure summation: source
// regressions are reflected verbatim, never clipped or monotonized.
package aggregate

import "github.com/starford/laguz/internal/snapshot"

// Totals holds the three epidemiological counters.
type Totals struct {
	Confirmed int64
	Deaths    int64
	Recovered int64
}

// Add accumulates other into t.
func (t *Totals) Add(confirmed, deaths, recovered int64) {
	t.Confirmed += confirmed
	t.Deaths += deaths
	t.Recovered += recovered
}

// GlobalSeries is the aggregated output: a chronologically ordered date
// axis, the global total per date, and the cumulative sum over every
// location-day in the index.
//
// Cumulative is a sum over all location-days, which equals the final
// date's global total only when every location reports every date. The
// two quantities answer different questions and are kept separate.
type GlobalSeries struct {
	Dates      []string
	ByDate     map[string]Totals
	Cumulative Totals
}

// Total returns the global total for one date; absent dates are zero.
func (g *GlobalSeries) Total(date string) Totals {
	return g.ByDate[date]
}

// Reduce walks every observation in the index. Blank or non-numeric count
// fields count as zero; epidemiological feeds are known to contain blanks
// and a parse failure must never abort aggregation.
func Reduce(idx snapshot.Index) *GlobalSeries {
	g := &GlobalSeries{ByDate: make(map[string]Totals)}
	for key, obs := range idx {
		confirmed, deaths, recovered := obs.Counts()

		bucket := g.ByDate[key.Date]
		bucket.Add(confirmed, deaths, recovered)
		g.ByDate[key.Date] = bucket

		g.Cumulative.Add(confirmed, deaths, recovered)
	}

	g.Dates = make([]string, 0, len(g.ByDate))
	for date := range g.ByDate {
		g.Dates = append(g.Dates, date)
	}
	snapshot.SortDates(g.Dates)
	return g
}
