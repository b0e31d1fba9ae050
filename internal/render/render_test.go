package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/laguz/internal/aggregate"
	"github.com/starford/laguz/internal/canonical"
	"github.com/starford/laguz/internal/testutil"
)

var testEntity = canonical.Location{Country: "South Korea", Subregion: "Entire"}

func testSeries() []SeriesPoint {
	return []SeriesPoint{
		{Date: "03-13-2020", Totals: aggregate.Totals{Confirmed: 7979, Deaths: 66, Recovered: 510}},
		{Date: "03-14-2020", Totals: aggregate.Totals{Confirmed: 8086, Deaths: 72, Recovered: 714}},
		{Date: "03-15-2020", Totals: aggregate.Totals{Confirmed: 8162, Deaths: 75, Recovered: 834}},
	}
}

func TestRenderEntity_WritesFrames(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, 0, false, testutil.DiscardLogger())

	paths, err := r.RenderEntity(testEntity, testSeries())
	if err != nil {
		t.Fatalf("RenderEntity: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %d, want 3", len(paths))
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("frame missing: %s", p)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("frame empty: %s", p)
		}
	}
	want := filepath.Join(dir, "South Korea-Entire-03-13-2020.png")
	if paths[0] != want {
		t.Errorf("paths[0] = %s, want %s", paths[0], want)
	}
}

// Frames 1 and 2 pre-exist; only the third may be rendered, and all three
// paths still come back in date order.
func TestRenderEntity_SkipsExistingFrames(t *testing.T) {
	dir := t.TempDir()
	rec := &testutil.Recorder{}
	r := NewRenderer(dir, 0, true, rec.Logger())
	series := testSeries()

	// Pre-render the first two frames with a separate renderer.
	pre := NewRenderer(dir, 0, false, testutil.DiscardLogger())
	if _, err := pre.RenderEntity(testEntity, series[:2]); err != nil {
		t.Fatal(err)
	}
	preInfo, err := os.Stat(pre.FramePath(testEntity, "03-13-2020"))
	if err != nil {
		t.Fatal(err)
	}

	paths, err := r.RenderEntity(testEntity, series)
	if err != nil {
		t.Fatalf("RenderEntity: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("paths = %v", paths)
	}
	for i, date := range []string{"03-13-2020", "03-14-2020", "03-15-2020"} {
		if !strings.Contains(paths[i], date) {
			t.Errorf("paths[%d] = %s, want date %s", i, paths[i], date)
		}
	}

	var skips, writes int
	for _, msg := range rec.Messages() {
		switch msg {
		case "render: frame exists, skipping":
			skips++
		case "render: frame written":
			writes++
		}
	}
	if skips != 2 {
		t.Errorf("skips = %d, want 2", skips)
	}
	if writes != 1 {
		t.Errorf("writes = %d, want exactly 1 (date 3 only)", writes)
	}

	// Skipped frames are untouched.
	info, err := os.Stat(pre.FramePath(testEntity, "03-13-2020"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(preInfo.ModTime()) {
		t.Error("pre-existing frame was rewritten")
	}

	// Animation keyed by the final date covers all three frames.
	gifPath := r.AnimationPath(testEntity, "03-15-2020")
	if info, err := os.Stat(gifPath); err != nil || info.Size() == 0 {
		t.Errorf("animation missing or empty at %s: %v", gifPath, err)
	}
}

func TestRenderEntity_SecondRunNoWrites(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, 0, false, testutil.DiscardLogger())
	series := testSeries()

	if _, err := r.RenderEntity(testEntity, series); err != nil {
		t.Fatal(err)
	}
	before := map[string]time.Time{}
	for _, p := range mustPaths(t, r, series) {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatal(err)
		}
		before[p] = info.ModTime()
	}

	rec := &testutil.Recorder{}
	r2 := NewRenderer(dir, 0, false, rec.Logger())
	if _, err := r2.RenderEntity(testEntity, series); err != nil {
		t.Fatal(err)
	}
	for _, msg := range rec.Messages() {
		if msg == "render: frame written" {
			t.Error("second run performed a write")
		}
	}
	for p, mt := range before {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatal(err)
		}
		if !info.ModTime().Equal(mt) {
			t.Errorf("frame %s modified on second run", p)
		}
	}
}

// The animation gets the same existence check as the frames: once the
// GIF for the final date is on disk, later runs leave it alone.
func TestRenderEntity_SkipsExistingAnimation(t *testing.T) {
	dir := t.TempDir()
	series := testSeries()

	r := NewRenderer(dir, 0, true, testutil.DiscardLogger())
	if _, err := r.RenderEntity(testEntity, series); err != nil {
		t.Fatal(err)
	}
	gifPath := r.AnimationPath(testEntity, "03-15-2020")
	before, err := os.Stat(gifPath)
	if err != nil {
		t.Fatalf("animation missing after first run: %v", err)
	}

	rec := &testutil.Recorder{}
	r2 := NewRenderer(dir, 0, true, rec.Logger())
	if _, err := r2.RenderEntity(testEntity, series); err != nil {
		t.Fatal(err)
	}

	var skipped bool
	for _, msg := range rec.Messages() {
		switch msg {
		case "render: animation exists, skipping":
			skipped = true
		case "render: animation written":
			t.Error("second run rebuilt the animation")
		}
	}
	if !skipped {
		t.Error("second run did not report the animation skip")
	}

	after, err := os.Stat(gifPath)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("pre-existing animation was rewritten")
	}
}

func TestRenderEntity_SingleDate(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, 0, false, testutil.DiscardLogger())
	paths, err := r.RenderEntity(testEntity, testSeries()[:1])
	if err != nil {
		t.Fatalf("RenderEntity: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("paths = %v", paths)
	}
	if _, err := os.Stat(paths[0]); err != nil {
		t.Errorf("single-date frame missing: %v", err)
	}
}

func TestRenderEntity_FlatSeries(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir, 0, false, testutil.DiscardLogger())
	flat := []SeriesPoint{
		{Date: "01-22-2020"},
		{Date: "01-23-2020"},
	}
	if _, err := r.RenderEntity(canonical.Location{Country: "Unknown", Subregion: "Entire"}, flat); err != nil {
		t.Fatalf("all-zero series must still render: %v", err)
	}
}

func TestWorldSeries(t *testing.T) {
	g := &aggregate.GlobalSeries{
		Dates: []string{"01-22-2020", "01-23-2020"},
		ByDate: map[string]aggregate.Totals{
			"01-22-2020": {Confirmed: 555, Deaths: 17, Recovered: 28},
			"01-23-2020": {Confirmed: 653, Deaths: 18, Recovered: 30},
		},
	}
	series := WorldSeries(g)
	if len(series) != 2 {
		t.Fatalf("series = %v", series)
	}
	if series[0].Date != "01-22-2020" || series[0].Totals.Confirmed != 555 {
		t.Errorf("series[0] = %+v", series[0])
	}
}

func TestDateTicks_Thinning(t *testing.T) {
	r := NewRenderer(t.TempDir(), 5, false, testutil.DiscardLogger())

	long := make([]SeriesPoint, 12)
	day := time.Date(2020, 1, 22, 0, 0, 0, 0, time.UTC)
	xs := make([]time.Time, 12)
	for i := range long {
		long[i] = SeriesPoint{Date: day.Format("01-02-2006")}
		xs[i] = day
		day = day.AddDate(0, 0, 1)
	}

	ticks := r.dateTicks(xs, long)
	// Indexes 0, 5, 10 plus the final date.
	if len(ticks) != 4 {
		t.Errorf("ticks = %d, want 4", len(ticks))
	}

	if got := r.dateTicks(xs[:3], long[:3]); got != nil {
		t.Errorf("short axis should keep default ticks, got %v", got)
	}
}

func mustPaths(t *testing.T, r *Renderer, series []SeriesPoint) []string {
	t.Helper()
	out := make([]string, len(series))
	for i, p := range series {
		out[i] = r.FramePath(testEntity, p.Date)
	}
	return out
}
