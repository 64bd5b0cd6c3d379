package persist

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to tmp in the same directory as path, syncs it
// and renames it over path. The directory is created if absent. On any error
// the temporary file is removed and path is left untouched.
func WriteFileAtomic(path, tmp string, data []byte, perm os.FileMode) error {
	if filepath.Dir(tmp) != filepath.Dir(path) {
		return fmt.Errorf("temp file %q must share a directory with %q", tmp, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	var success bool
	defer func() {
		if success {
			return
		}
		if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temporary file", "path", tmp, "err", err)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := renameHook(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	success = true
	return nil
}

// renameHook is swapped in tests to simulate a failing rename.
var renameHook = os.Rename
