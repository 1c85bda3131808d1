package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/codefionn/auswahl/internal/logger"
)

// Watcher re-reads the config file when it changes on disk and hands the
// result to a callback. Only settings that are safe to flip at runtime (the
// log level, for one) should be applied from the callback; listen address and
// socket settings need a restart.
type Watcher struct {
	path      string
	watcher   *fsnotify.Watcher
	onReload  func(*Config)
	stopWatch chan struct{}
}

// Watch starts watching the config file. The parent directory is watched
// rather than the file itself so editors that replace the file atomically
// still trigger a reload.
func Watch(path string, onReload func(*Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watcher{
		path:      absPath,
		watcher:   watcher,
		onReload:  onReload,
		stopWatch: make(chan struct{}),
	}
	go w.watchConfig()
	return w, nil
}

// Close stops the watcher
func (w *Watcher) Close() error {
	close(w.stopWatch)
	return w.watcher.Close()
}

// watchConfig monitors filesystem events and reloads on changes to the file
func (w *Watcher) watchConfig() {
	for {
		select {
		case <-w.stopWatch:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Global().Error("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		logger.Global().Warn("failed to reload config %s: %v", w.path, err)
		return
	}
	logger.Global().Info("config file changed, reloading")
	w.onReload(cfg)
}
