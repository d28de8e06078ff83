package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce is how long the watcher waits after the last file event before
// running a reconciliation pass, so bursts of editor writes coalesce.
const debounce = 500 * time.Millisecond

// Callback receives the result of each watcher- or timer-driven run that
// changed something.
type Callback func(Result)

// Watch runs fsnotify-driven and periodic reconciliation until ctx is
// cancelled. File events in the notes directory are debounced; interval
// (when positive) additionally schedules fixed-period runs. cb, if non-nil,
// is invoked after every run that produced changes.
func Watch(ctx context.Context, rec *Reconciler, root string, interval time.Duration, logger *slog.Logger, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	var (
		debounceTimer *time.Timer
		debounceCh    <-chan time.Time
	)
	schedule := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(debounce)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(debounce)
		}
	}

	var tickCh <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tickCh = ticker.C
	}

	run := func() {
		res := rec.Run(Options{})
		if res.Empty() {
			return
		}
		logger.Info("watcher: reconciled",
			slog.Int("created", len(res.CreatedNoteIDs)),
			slog.Int("renamed", len(res.UpdatedPaths)),
			slog.Int("trashed", len(res.MarkedDeletedNoteIDs)))
		if cb != nil {
			cb(res)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			run()

		case <-tickCh:
			run()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
