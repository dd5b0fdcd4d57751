package config

import (
	"errors"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/designerMichael/angle/engine/core"
)

// Watcher reloads the processor config file when it changes on disk and
// re-applies the log level. Structural fields (limits, async flag) are not
// hot-swapped; they only take effect on the next processor construction.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher

	mutex  sync.Mutex
	closed bool
	done   chan struct{}
}

func NewWatcher(path string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	w := &Watcher{
		path:     path,
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}

	if err := fsWatch.Add(path); err != nil {
		fsWatch.Close()
		core.LogError(err.Error())
		return nil, err
	}

	go w.start()

	return w, nil
}

func (w *Watcher) start() {
	for {
		select {
		case e := <-w.fsnotify.Events:
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.reload()
			}

		case e := <-w.fsnotify.Errors:
			core.LogError(e.Error())

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		core.LogWarn("processor config reload failed, keeping previous settings: %s", err.Error())
		return
	}
	if err := cfg.Apply(); err != nil {
		return
	}
	core.LogInfo("processor config reloaded, log level now %q", cfg.LogLevel)
}

func (w *Watcher) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.closed {
		return errors.New("config watcher already closed")
	}
	w.closed = true
	close(w.done)
	return nil
}
