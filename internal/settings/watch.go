package settings

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the settings whenever the file is written by another process
// (a settings window, an editor) and calls fn with the new values if they
// changed. It blocks until ctx is done.
//
// The directory is watched rather than the file so that atomic
// rename-over-replace writes are seen.
func (s *Settings) Watch(ctx context.Context, fn func(Values)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("settings watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			v, changed, err := s.Reload()
			if err != nil {
				slog.Warn("settings reload failed, keeping previous values", "err", err)
				continue
			}
			if changed {
				slog.Info("settings changed on disk", "capacity", v.Capacity, "autostart", v.Autostart)
				fn(v)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("settings watcher error", "err", err)
		}
	}
}
