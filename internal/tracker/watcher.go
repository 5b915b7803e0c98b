package tracker

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"polygonal-zones/internal/loader"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce groups the burst of events an editor or an atomic rename produces.
const DefaultDebounce = 500 * time.Millisecond

// Reloader reloads a tracker by id.
type Reloader interface {
	Reload(ctx context.Context, trackerID string) error
}

// Watcher reloads trackers when one of their local zone files changes on disk.
type Watcher struct {
	fs       *fsnotify.Watcher
	reloader Reloader
	debounce time.Duration

	// targets maps a cleaned file path to the ids of the trackers reading it.
	targets map[string][]string

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewWatcher watches the local sources of the given trackers. Directories are watched rather than
// files, since atomic writes replace the file.
func NewWatcher(trackers []*Tracker, paths func(source string) string, r Reloader, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		fs:       fw,
		reloader: r,
		debounce: debounce,
		targets:  make(map[string][]string),
		timers:   make(map[string]*time.Timer),
	}

	dirs := make(map[string]bool)
	for _, t := range trackers {
		for _, source := range t.Sources() {
			if loader.IsRemote(source) {
				continue
			}
			path := filepath.Clean(paths(source))
			w.targets[path] = append(w.targets[path], t.ID())
			dirs[filepath.Dir(path)] = true
		}
	}

	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watcher: failed to watch %s: %w", dir, err)
		}
	}
	return w, nil
}

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			for _, id := range w.targets[filepath.Clean(ev.Name)] {
				w.schedule(ctx, id)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("zone file watcher error")
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, trackerID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[trackerID]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[trackerID] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, trackerID)
		w.mu.Unlock()

		log.Info().Str("tracker", trackerID).Msg("zone file changed, reloading")
		if err := w.reloader.Reload(ctx, trackerID); err != nil {
			log.Error().Err(err).Str("tracker", trackerID).Msg("reload after file change failed")
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.timers {
		t.Stop()
		delete(w.timers, id)
	}
}
