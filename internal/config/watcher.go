package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store when its backing file changes on disk and then
// calls onReload. Changes are debounced so editors that truncate and
// rewrite trigger a single reload. The returned stop function cancels the
// watch and closes the fsnotify watcher.
//
// The store's own flushes also land here; callers that only care about
// external edits should compare state in onReload.
func (s *Store) Watch(debounce time.Duration, onReload func()) (stop func(), err error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory, not the file: rename-based replacement swaps
	// the inode and a file watch would go stale after the first flush.
	if err := fw.Add(filepath.Dir(s.path)); err != nil {
		fw.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go s.watchLoop(ctx, fw, debounce, onReload)

	s.logger.Info("Settings watcher started", "path", s.path, "debounce", debounce)
	return func() {
		cancel()
		fw.Close()
	}, nil
}

func (s *Store) watchLoop(ctx context.Context, fw *fsnotify.Watcher, debounce time.Duration, onReload func()) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Debug("Settings watcher stopped")
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug("Settings file change detected", "op", event.Op.String())
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if err := s.Reload(); err != nil {
				s.logger.Warn("Failed to reload settings", "error", err)
				continue
			}
			if onReload != nil {
				onReload()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Settings watcher error", "error", err)
		}
	}
}
