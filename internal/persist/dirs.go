package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user data directory.
const AppName = "keepclip"

// DefaultDir returns the per-user application data directory:
//
//   - macOS:   ~/Library/Application Support/keepclip
//   - Windows: %AppData%\keepclip
//   - others:  $XDG_DATA_HOME/keepclip, or ~/.local/share/keepclip
func DefaultDir() (string, error) {
	switch runtime.GOOS {
	case "darwin", "windows":
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("locate data directory: %w", err)
		}
		return filepath.Join(base, AppName), nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate data directory: %w", err)
	}
	if home == "" {
		return "", errors.New("locate data directory: empty home directory")
	}
	return filepath.Join(home, ".local", "share", AppName), nil
}
