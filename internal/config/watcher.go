package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last change
// before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the config file whenever it changes on disk. It watches
// the parent directory so atomic saves (write temp + rename) are seen.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   *log.Logger

	// OnReload receives each freshly loaded, validated config.
	OnReload func(*Config)
	// OnError, if set, receives load and watch errors.
	OnError func(error)
}

// NewWatcher creates a Watcher for path. A zero debounce uses DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, logger *log.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: filepath.Clean(path), debounce: debounce, logger: logger}
}

// Run watches until ctx is cancelled. It returns an error only if the
// watch cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.Printf("config watcher started: %s", w.path)

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.report(err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.report(err)
		return
	}
	w.logger.Printf("config reloaded: %s", w.path)
	if w.OnReload != nil {
		w.OnReload(cfg)
	}
}

func (w *Watcher) report(err error) {
	w.logger.Printf("config watcher: %v", err)
	if w.OnError != nil {
		w.OnError(err)
	}
}
