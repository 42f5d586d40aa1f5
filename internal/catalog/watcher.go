package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"home_dispatch/internal/logger"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reloads a Store whenever its document changes on disk.
type Watcher struct {
	store    *Store
	log      *logger.Logger
	debounce time.Duration

	// OnReload, when set, is called after every reload attempt.
	OnReload func(*Catalog, error)
}

// NewWatcher creates a watcher for store. A zero debounce uses DefaultDebounce.
func NewWatcher(store *Store, debounce time.Duration, log *logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{store: store, log: log, debounce: debounce}
}

// Run watches until ctx is cancelled. The parent directory is watched rather
// than the file so atomic renames by editors (and by Store edits) are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	defer fw.Close()

	target, err := filepath.Abs(w.store.Path())
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("catalog watcher: watch %s: %w", filepath.Dir(target), err)
	}
	w.log.Infow("catalog_watch_started", "path", target)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Infow("catalog_watch_stopped", "path", target)
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev, target) {
				continue
			}
			w.log.Debugw("catalog_file_event", "op", ev.Op.String(), "path", ev.Name)
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnw("catalog_watch_error", "error", err)

		case <-timer.C:
			cat, err := w.store.Reload()
			if w.OnReload != nil {
				w.OnReload(cat, err)
			}
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event, target string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return name == target
}
