// Package render produces the per-date cumulative chart frames and
// assembles them into animations. Rendering is memoized at frame
// granularity through an existence check on the target path, so an
// interrupted run resumes without redoing finished work.
package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/starford/laguz/internal/aggregate"
	"github.com/starford/laguz/internal/canonical"
	"github.com/starford/laguz/internal/snapshot"
)

// WorldEntity is the synthetic whole-world rendering entity, fed from the
// aggregator rather than from any single location's observations.
var WorldEntity = canonical.Location{Country: "World", Subregion: canonical.EntireSubregion}

// DefaultTicksDivisor bounds date-axis tick density: past this many dates
// only every divisor-th date keeps a tick.
const DefaultTicksDivisor = 5

// SeriesPoint is one date of an entity's cumulative-to-date input.
type SeriesPoint struct {
	Date   string
	Totals aggregate.Totals
}

// EntitySeries derives a rendering series from one location's
// observations, chronologically ordered, with blank counts as zero.
// The zero-fallback is applied per entity; a count missing for one
// entity never affects another's frames.
func EntitySeries(idx snapshot.Index, loc canonical.Location) []SeriesPoint {
	obs := idx.Series(loc)
	out := make([]SeriesPoint, len(obs))
	for i, o := range obs {
		confirmed, deaths, recovered := o.Counts()
		out[i] = SeriesPoint{
			Date:   o.Date,
			Totals: aggregate.Totals{Confirmed: confirmed, Deaths: deaths, Recovered: recovered},
		}
	}
	return out
}

// WorldSeries derives the whole-world rendering series from the
// aggregated global totals.
func WorldSeries(g *aggregate.GlobalSeries) []SeriesPoint {
	out := make([]SeriesPoint, len(g.Dates))
	for i, date := range g.Dates {
		out[i] = SeriesPoint{Date: date, Totals: g.Total(date)}
	}
	return out
}

// Renderer writes chart frames and animations under a charts directory.
type Renderer struct {
	chartsDir    string
	ticksDivisor int
	animate      bool
	log          *slog.Logger
}

// NewRenderer creates a Renderer. A ticksDivisor below one falls back to
// the default.
func NewRenderer(chartsDir string, ticksDivisor int, animate bool, logger *slog.Logger) *Renderer {
	if ticksDivisor < 1 {
		ticksDivisor = DefaultTicksDivisor
	}
	return &Renderer{
		chartsDir:    chartsDir,
		ticksDivisor: ticksDivisor,
		animate:      animate,
		log:          logger,
	}
}

// FramePath returns the deterministic frame file path for one
// (entity, date) pair. Determinism is what makes the existence-check
// memoization hold across separate process runs.
func (r *Renderer) FramePath(loc canonical.Location, date string) string {
	return filepath.Join(r.chartsDir, fmt.Sprintf("%s-%s-%s.png", loc.Country, loc.Subregion, date))
}

// AnimationPath returns the animation file path for an entity, keyed by
// the final date of its sequence.
func (r *Renderer) AnimationPath(loc canonical.Location, finalDate string) string {
	return filepath.Join(r.chartsDir, fmt.Sprintf("%s-%s-%s.gif", loc.Country, loc.Subregion, finalDate))
}

// RenderEntity renders one cumulative-to-date frame per date of the
// series and, when animation is enabled, assembles the ordered frames
// into a GIF keyed by the final date. Frames whose file already exists
// are skipped without touching storage; a pre-existing artifact is
// success, not an error. The returned paths cover every date in order,
// rendered or skipped alike.
func (r *Renderer) RenderEntity(loc canonical.Location, series []SeriesPoint) ([]string, error) {
	if len(series) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(r.chartsDir, 0o755); err != nil {
		return nil, fmt.Errorf("render: create charts dir: %w", err)
	}

	paths := make([]string, 0, len(series))
	for i := range series {
		framePath := r.FramePath(loc, series[i].Date)
		paths = append(paths, framePath)

		if _, err := os.Stat(framePath); err == nil {
			r.log.Info("render: frame exists, skipping",
				slog.String("path", framePath))
			continue
		}

		if err := r.renderFrame(loc, series[:i+1], framePath); err != nil {
			return nil, err
		}
		r.log.Info("render: frame written", slog.String("path", framePath))
	}

	if r.animate {
		gifPath := r.AnimationPath(loc, series[len(series)-1].Date)
		if _, err := os.Stat(gifPath); err == nil {
			r.log.Info("render: animation exists, skipping",
				slog.String("path", gifPath))
		} else if err := assembleGIF(paths, gifPath); err != nil {
			return nil, err
		} else {
			r.log.Info("render: animation written", slog.String("path", gifPath))
		}
	}

	return paths, nil
}

// renderFrame draws the three count series over the cumulative-to-date
// axis and writes the image atomically so an existing file always means a
// complete frame.
func (r *Renderer) renderFrame(loc canonical.Location, points []SeriesPoint, path string) error {
	xs, confirmed, deaths, recovered, err := seriesValues(points)
	if err != nil {
		return err
	}

	finalDate := points[len(points)-1].Date
	graph := chart.Chart{
		Title: fmt.Sprintf("%s-%s daily status up to %s", loc.Country, loc.Subregion, finalDate),
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat(snapshot.DateLayout),
			Ticks:          r.dateTicks(xs, points),
		},
		YAxis: chart.YAxis{
			Name:  "Number",
			Range: yRange(confirmed, deaths, recovered),
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Confirmed",
				Style:   chart.Style{StrokeColor: chart.ColorOrange},
				XValues: xs,
				YValues: confirmed,
			},
			chart.TimeSeries{
				Name:    "Deaths",
				Style:   chart.Style{StrokeColor: chart.ColorRed},
				XValues: xs,
				YValues: deaths,
			},
			chart.TimeSeries{
				Name:    "Recovered",
				Style:   chart.Style{StrokeColor: chart.ColorGreen},
				XValues: xs,
				YValues: recovered,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	tmp, err := os.CreateTemp(r.chartsDir, ".laguz-frame-*")
	if err != nil {
		return fmt.Errorf("render: create temp: %w", err)
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := graph.Render(chart.PNG, tmp); err != nil {
		return fmt.Errorf("render: chart for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("render: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("render: rename: %w", err)
	}
	success = true
	return nil
}

// seriesValues converts the points into parallel chart inputs. A single
// observation cannot span a time axis, so it is restated one day earlier
// to give the chart a range.
func seriesValues(points []SeriesPoint) (xs []time.Time, confirmed, deaths, recovered []float64, err error) {
	if len(points) == 1 {
		day, perr := time.Parse(snapshot.DateLayout, points[0].Date)
		if perr != nil {
			return nil, nil, nil, nil, fmt.Errorf("render: parse date %q: %w", points[0].Date, perr)
		}
		pad := SeriesPoint{Date: day.AddDate(0, 0, -1).Format(snapshot.DateLayout), Totals: points[0].Totals}
		points = []SeriesPoint{pad, points[0]}
	}
	for _, p := range points {
		day, perr := time.Parse(snapshot.DateLayout, p.Date)
		if perr != nil {
			return nil, nil, nil, nil, fmt.Errorf("render: parse date %q: %w", p.Date, perr)
		}
		xs = append(xs, day)
		confirmed = append(confirmed, float64(p.Totals.Confirmed))
		deaths = append(deaths, float64(p.Totals.Deaths))
		recovered = append(recovered, float64(p.Totals.Recovered))
	}
	return xs, confirmed, deaths, recovered, nil
}

// dateTicks thins the date axis once it exceeds the divisor: every
// divisor-th date keeps a tick, and the final date always gets one.
func (r *Renderer) dateTicks(xs []time.Time, points []SeriesPoint) []chart.Tick {
	if len(points) <= r.ticksDivisor {
		return nil
	}
	var ticks []chart.Tick
	for i, x := range xs {
		if i%r.ticksDivisor == 0 || i == len(xs)-1 {
			ticks = append(ticks, chart.Tick{
				Value: float64(x.UnixNano()),
				Label: x.Format(snapshot.DateLayout),
			})
		}
	}
	return ticks
}

// yRange widens a flat series so the chart always has a drawable span.
func yRange(seriesList ...[]float64) chart.Range {
	min, max := seriesList[0][0], seriesList[0][0]
	for _, series := range seriesList {
		for _, v := range series {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if min == max {
		max = min + 1
	}
	return &chart.ContinuousRange{Min: min, Max: max}
}
