// Package watch observes the snapshot data directory and re-triggers the
// batch pipeline when new daily files land. It does not stream rows; a
// trigger runs the same load/aggregate/render pass a manual invocation
// would, and frame memoization keeps re-runs cheap.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce gives a bulk retrieval pass time to settle before one pipeline
// run covers everything it wrote.
const debounce = 2 * time.Second

// Run watches dataDir until ctx is cancelled, invoking trigger after
// snapshot files are created or rewritten. Trigger failures are logged,
// not fatal: the next file arrival tries again.
func Run(ctx context.Context, dataDir string, logger *slog.Logger, trigger func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dataDir); err != nil {
		return err
	}

	logger.Info("watch: started", slog.String("dir", dataDir))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watch: stopped")
			return nil

		case <-fire:
			logger.Info("watch: running pipeline")
			if err := trigger(); err != nil {
				logger.Error("watch: pipeline failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isSnapshotFile(ev.Name) {
				continue
			}
			logger.Debug("watch: snapshot file changed", slog.String("path", ev.Name))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: error", slog.String("error", watchErr.Error()))
		}
	}
}

func isSnapshotFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, "csse_daily_") && strings.HasSuffix(name, ".csv")
}
