package schedule

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"filesentry/internal/model"
	"filesentry/internal/scan"
)

// Watcher triggers a scan after filesystem activity settles. Events are
// debounced: a burst of writes (an attacker dropping files, a deploy
// unpacking) produces one scan after the configured quiet period.
type Watcher struct {
	root     string
	debounce time.Duration
	runner   ScanRunner
	logger   scan.Logger
}

// NewWatcher creates a watcher over the tree rooted at root.
func NewWatcher(root string, debounce time.Duration, runner ScanRunner, logger scan.Logger) *Watcher {
	return &Watcher{
		root:     root,
		debounce: debounce,
		runner:   runner,
		logger:   logger,
	}
}

// Run watches until ctx is cancelled. Directories created while watching
// are added to the watch set; inotify does not recurse by itself.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watching for changes", "root", w.root, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(fw, event.Name); err != nil {
						w.logger.Warn("watch add failed", "path", event.Name, "error", err)
					}
				}
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			w.logger.Info("filesystem activity settled, scanning")
			if _, err := w.runner.Run(ctx, model.ScanScheduled); err != nil {
				w.logger.Error("watch-triggered scan failed", "error", err)
			}
		}
	}
}

func (w *Watcher) addRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("watching %s: %w", root, err)
			}
			w.logger.Warn("watch subtree skipped", "path", path, "error", err)
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			w.logger.Warn("watch add failed", "path", path, "error", err)
		}
		return nil
	})
}
