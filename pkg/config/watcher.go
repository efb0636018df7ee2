package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchFunc is invoked after each debounced reload attempt.
type WatchFunc func(ReloadResult)

// Watcher debounces filesystem modification events on a single config
// file and reloads it into a Snapshot, leaving the prior Config in
// effect on parse failure (spec §6).
type Watcher struct {
	path     string
	debounce time.Duration
	snapshot *Snapshot
	fsw      *fsnotify.Watcher
	stop     chan struct{}
	onReload WatchFunc
}

// NewWatcher starts watching path's parent directory (fsnotify watches
// directories, not bare files, so atomic renames by editors are
// observed) and debounces reloads by debounce.
func NewWatcher(path string, snapshot *Snapshot, debounce time.Duration, onReload WatchFunc) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	if onReload == nil {
		onReload = func(ReloadResult) {}
	}
	w := &Watcher{
		path:     path,
		debounce: debounce,
		snapshot: snapshot,
		fsw:      fsw,
		stop:     make(chan struct{}),
		onReload: onReload,
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	var timer *time.Timer
	reload := func() {
		cfg, err := Load(w.path)
		result := ReloadResult{At: time.Now()}
		if err != nil {
			result.Err = err
			w.onReload(result)
			return
		}
		w.snapshot.Replace(cfg)
		result.Applied = true
		w.onReload(result)
	}

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, reload)
		case <-w.fsw.Errors:
			// Watcher-level errors are discarded: they don't change the
			// active snapshot and are not reported to onReload.
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.stop)
	return w.fsw.Close()
}

