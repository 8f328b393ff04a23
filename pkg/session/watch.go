package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow collapses the burst of write events most tools emit when
// rewriting a snapshot file.
const debounceWindow = 250 * time.Millisecond

// Watch reloads the session whenever its snapshot file changes on disk.
// It blocks until ctx is cancelled. Watching the parent directory rather
// than the file itself survives editors that replace the file via rename.
func (s *Session) Watch(ctx context.Context) error {
	path := s.Source().Path()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating snapshot watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching snapshot dir: %w", err)
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(debounceWindow)
			}
		case <-fire:
			timer = nil
			fire = nil
			if err := s.Reload(); err != nil {
				s.logger.Warn("snapshot reload failed", zap.Error(err))
			}
		case err := <-watcher.Errors:
			return fmt.Errorf("snapshot watcher error: %w", err)
		}
	}
}
