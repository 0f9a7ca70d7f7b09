// Package configwatcher hot-reloads an evdispatch.Config from a YAML file:
// watch the file with fsnotify, re-parse on write, and hand the new value
// to a callback. It is deliberately small — one file, one watch, one
// callback — since the dispatcher core has exactly one config struct to
// reload.
package configwatcher

import (
	"errors"

	"github.com/fsnotify/fsnotify"

	"github.com/GoCodeAlone/evdispatch"
)

// OnReload is invoked with the newly parsed and validated Config each time
// the watched file changes. A non-nil error means the new file failed to
// parse or validate (or that fsnotify reported an error); cfg is then the
// zero Config. Watcher holds no config of its own, so keeping the last good
// one is up to the callback.
type OnReload func(cfg evdispatch.Config, err error)

// Watcher watches one YAML config file and reports reloads.
type Watcher struct {
	path    string
	fsw     *fsnotify.Watcher
	onEvent OnReload
	done    chan struct{}
}

// New starts watching path, calling onEvent on every write. It performs an
// initial load immediately so the caller always gets a first callback with
// either a parsed config or the error that prevented it.
func New(path string, onEvent OnReload) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, fsw: fsw, onEvent: onEvent, done: make(chan struct{})}
	go w.loop()

	cfg, loadErr := evdispatch.LoadConfig(path)
	onEvent(cfg, loadErr)

	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := evdispatch.LoadConfig(w.path)
			w.onEvent(cfg, err)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.onEvent(evdispatch.Config{}, errors.New("configwatcher: "+err.Error()))
		case <-w.done:
			return
		}
	}
}

// Close stops watching and releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
