package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches rapid successive events (editor save storms)
// into one notification.
const DefaultDebounce = 300 * time.Millisecond

// NotifyFunc receives the debounced batch of changed absolute paths.
type NotifyFunc func(paths []string)

// Watcher watches a project tree recursively and reports changed files in
// debounced batches. Directory creation re-registers watches; errors are
// logged and never fatal.
type Watcher struct {
	root     string
	debounce time.Duration
	notify   NotifyFunc
	fsw      *fsnotify.Watcher
}

// New creates a Watcher over root. debounce <= 0 selects DefaultDebounce.
func New(root string, debounce time.Duration, notify NotifyFunc) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{root: abs, debounce: debounce, notify: notify, fsw: fsw}
	if err := w.addRecursive(abs); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled, dispatching debounced change batches.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		slog.Debug("watcher.flush", "files", len(paths))
		w.notify(paths)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return
			}
			if w.skip(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				// New directories need their own watches.
				if err := w.addRecursive(ev.Name); err != nil {
					slog.Debug("watcher.add_failed", "path", ev.Name, "err", err)
				}
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) ||
				ev.Op.Has(fsnotify.Rename) || ev.Op.Has(fsnotify.Remove) {
				pending[ev.Name] = true
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			}

		case <-fire:
			fire = nil
			flush()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher.error", "err", err)
		}
	}
}

// addRecursive registers path and, when it is a directory, all its
// subdirectories. Non-directories and vanished paths are ignored.
func (w *Watcher) addRecursive(path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // path raced away, skip
		}
		if !d.IsDir() {
			return nil
		}
		if w.skip(p) && p != w.root {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			slog.Debug("watcher.add_failed", "path", p, "err", err)
		}
		return nil
	})
}

// skip filters hidden and build directories out of watching.
func (w *Watcher) skip(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		switch {
		case strings.HasPrefix(part, "."):
			return true
		case part == "node_modules", part == "__pycache__", part == "build", part == "venv":
			return true
		}
	}
	return false
}
