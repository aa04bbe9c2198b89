package config

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/drblury/busbridge/internal/relay/logging"
)

// Watcher observes a configuration file and flags pending changes so the
// relay driver can re-sync them at a cycle boundary. It satisfies the
// driver's ParamSource contract: Updated is a non-blocking check and Apply
// reloads the file and hands the fresh Config to the supplied callback.
//
// Editors frequently replace files via rename, so the watch is registered on
// the parent directory and filtered down to the configured path.
type Watcher struct {
	path    string
	apply   func(*Config) error
	log     logging.ServiceLogger
	watcher *fsnotify.Watcher
	dirty   atomic.Bool
	done    chan struct{}
}

// NewWatcher starts watching path. The apply callback runs on the caller of
// Apply, never on the watch goroutine.
func NewWatcher(path string, apply func(*Config) error, log logging.ServiceLogger) (*Watcher, error) {
	if apply == nil {
		return nil, fmt.Errorf("config watcher: apply callback is required")
	}
	if log == nil {
		log = logging.Nop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config watcher: %w", err)
	}

	w := &Watcher{
		path:    path,
		apply:   apply,
		log:     log,
		watcher: fsw,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.dirty.Store(true)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("config watch error", err, logging.LogFields{"path": w.path})
		}
	}
}

// Updated reports whether the file changed since the last Apply.
func (w *Watcher) Updated() bool {
	return w.dirty.Load()
}

// Apply clears the pending flag, reloads the file, and invokes the callback.
// A load failure leaves the previous configuration in effect.
func (w *Watcher) Apply() error {
	w.dirty.Store(false)
	conf, err := Load(w.path)
	if err != nil {
		return err
	}
	return w.apply(conf)
}

// Close stops watching. It does not invoke the callback.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
