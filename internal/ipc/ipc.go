// Package ipc provides the local socket used by the CLI (and any other local
// UI) to talk to a running keepclip daemon.
//
// On Linux and macOS this is a Unix domain socket; on Windows a named pipe.
// The socket carries both the newline-delimited JSON control protocol and a
// small HTTP API; see package service.
package ipc

import (
	"errors"
	"net"
	"os"
	"time"
)

// dialTimeout bounds IsRunning probes.
const dialTimeout = time.Second

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux:   $XDG_RUNTIME_DIR/keepclip.sock, else $TMPDIR/keepclip.sock
//   - macOS:   $TMPDIR/keepclip.sock
//   - Windows: \\.\pipe\keepclip
//
// $KEEPCLIP_SOCKET overrides all of these.
func SocketPath() string {
	if s := os.Getenv("KEEPCLIP_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a keepclip daemon appears to be listening on the
// IPC socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	c, err := dialIPC(SocketPath(), dialTimeout)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// ErrInUse is returned by Listen when a live daemon already owns the socket.
var ErrInUse = errors.New("ipc socket already in use")

// Listen creates a listener on the IPC socket, removing a stale socket file
// left by a crashed daemon.
func Listen() (net.Listener, error) {
	path := SocketPath()
	if IsRunning() {
		return nil, ErrInUse
	}
	removeStale(path)
	return listenIPC(path)
}

// Dial connects to the running daemon.
func Dial() (net.Conn, error) {
	return dialIPC(SocketPath(), dialTimeout)
}
