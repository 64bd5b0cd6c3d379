//go:build !windows

package ipc

import (
	"net"
	"os"
	"path/filepath"
	"time"
)

func socketPath() string {
	// Linux: prefer XDG_RUNTIME_DIR
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "keepclip.sock")
	}
	// macOS / fallback
	return filepath.Join(os.TempDir(), "keepclip.sock")
}

func listenIPC(path string) (net.Listener, error) {
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	// Owner-only: the socket grants full control over the history.
	_ = os.Chmod(path, 0o600)
	return ln, nil
}

func dialIPC(path string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", path, timeout)
}

func removeStale(path string) { _ = os.Remove(path) }
