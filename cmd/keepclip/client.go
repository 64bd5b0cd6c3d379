package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.klb.dev/keepclip/internal/ipc"
	"go.klb.dev/keepclip/internal/message"
	"go.klb.dev/keepclip/internal/wire"
)

const requestTimeout = 10 * time.Second

// errNoDaemon is returned when nothing is listening on the IPC socket.
var errNoDaemon = errors.New(`keepclip daemon is not running (start it with "keepclip daemon")`)

// dialDaemon connects to the running daemon.
func dialDaemon() (*wire.Conn, error) {
	conn, err := ipc.Dial()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errNoDaemon, ipc.SocketPath(), err)
	}
	return wire.New(conn), nil
}

// request sends req to the daemon and returns its single response. ERROR
// responses come back as errors.
func request(req *message.Message) (*message.Message, error) {
	wc, err := dialDaemon()
	if err != nil {
		return nil, err
	}
	defer wc.Close()
	wc.SetReadDeadline(requestTimeout)
	return wc.Request(req)
}

// findEntry resolves ref against a listed history the same way the daemon
// does: a 1-based position, else an entry ID.
func findEntry(entries []message.Entry, ref string) (message.Entry, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(entries) {
			return message.Entry{}, fmt.Errorf("no entry at position %d (history has %d)", n, len(entries))
		}
		return entries[n-1], nil
	}
	for _, e := range entries {
		if e.ID == ref {
			return e, nil
		}
	}
	return message.Entry{}, fmt.Errorf("no entry with id %q", ref)
}
