package terminal

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// dirWatcher watches a directory tree and reports changed paths in batches.
// The first event after a flush opens a window; when it expires every
// distinct path seen in the meantime is handed to onFlush once.
type dirWatcher struct {
	root    string
	window  time.Duration
	logger  Logger
	onFlush func(paths []string)

	watcher   *fsnotify.Watcher
	done      chan struct{}
	closeOnce sync.Once
}

func newDirWatcher(root string, window time.Duration, logger Logger, onFlush func([]string)) (*dirWatcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to watch %s: not a directory", root)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(root); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	w := &dirWatcher{
		root:    root,
		window:  window,
		logger:  logger,
		onFlush: onFlush,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	w.addTree(root, false)

	go w.run()
	return w, nil
}

// addTree registers every sub-directory under dir. When includeSelf is set
// dir itself is added too.
func (w *dirWatcher) addTree(dir string, includeSelf bool) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.Debug("Skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path == dir && !includeSelf {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Debug("Failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func (w *dirWatcher) run() {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerC <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(event.Name, true)
				}
			}
			pending[event.Name] = struct{}{}
			if timerC == nil {
				timer = time.NewTimer(w.window)
				timerC = timer.C
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Filesystem watcher error", "root", w.root, "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			clear(pending)
			sort.Strings(paths)

			select {
			case <-w.done:
				return
			default:
			}
			w.onFlush(paths)
		}
	}
}

// Close stops the watcher. Pending paths are discarded. It does not wait for
// an in-flight flush, so it is safe to call from onFlush.
func (w *dirWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
