// internal/ruleset/watcher.go
package ruleset

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/solatis/linewarden/internal/logger"
)

// DefaultDebounce is the quiet period after the last file event before a reload.
const DefaultDebounce = 100 * time.Millisecond

// Reloader is satisfied by *Registry.
type Reloader interface {
	Reload(dir string) error
}

// Watcher reloads a rules directory into a Reloader when its files change.
// Bursts of events (editors writing temp files, renames) collapse into one
// reload after the debounce interval.
type Watcher struct {
	dir      string
	target   Reloader
	debounce time.Duration
	log      *logger.Logger

	onReload func(err error)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for dir. A non-positive debounce uses DefaultDebounce.
func NewWatcher(dir string, target Reloader, debounce time.Duration, log *logger.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Watcher{
		dir:      dir,
		target:   target,
		debounce: debounce,
		log:      log.Component("watcher"),
	}
}

// OnReload registers fn to receive the outcome of every reload attempt.
// It must be called before Run.
func (w *Watcher) OnReload(fn func(err error)) {
	w.onReload = fn
}

// Run watches until ctx is cancelled. It does not perform an initial load.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.log.Info().Str("dir", w.dir).Dur("debounce", w.debounce).Msg("watching rules directory")

	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !relevant(event) {
				continue
			}
			w.log.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("rule file changed")
			w.schedule(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Error().Err(err).Msg("watcher error")
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		err := w.target.Reload(w.dir)
		if err == nil {
			w.log.Info().Str("dir", w.dir).Msg("rules reloaded")
		}
		if w.onReload != nil {
			w.onReload(err)
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// relevant reports whether an event touches a visible rule set file.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	_, ok := FormatFor(event.Name)
	return ok
}
