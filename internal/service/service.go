// Package service serves the keepclip control surface on the daemon's local
// socket. A single listener carries two protocols, split by cmux on the first
// bytes of each connection: a small JSON HTTP API and the newline-delimited
// message protocol used by the CLI.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/soheilhy/cmux"
	"golang.org/x/sync/errgroup"

	"go.klb.dev/keepclip/internal/entry"
	"go.klb.dev/keepclip/internal/hub"
	"go.klb.dev/keepclip/internal/message"
	"go.klb.dev/keepclip/internal/settings"
	"go.klb.dev/keepclip/internal/wire"
)

const (
	requestTimeout  = 5 * time.Second
	shutdownTimeout = 2 * time.Second
)

// Service exposes a hub to local clients.
type Service struct {
	h       *hub.Hub
	version string
}

// New returns a Service backed by h. version is reported by STATUS.
func New(h *hub.Hub, version string) *Service {
	return &Service{h: h, version: version}
}

// Serve accepts connections on ln until ctx is done. ln is closed on return.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	m := cmux.New(ln)
	httpL := m.Match(cmux.HTTP1Fast())
	lineL := m.Match(cmux.Any())

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: requestTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return quiet(gctx, srv.Serve(httpL)) })
	g.Go(func() error { return s.serveLines(gctx, lineL) })
	g.Go(func() error { return quiet(gctx, m.Serve()) })
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
		_ = ln.Close()
		return nil
	})
	return g.Wait()
}

// quiet drops the errors listeners return once shutdown has begun.
func quiet(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil ||
		errors.Is(err, http.ErrServerClosed) ||
		errors.Is(err, cmux.ErrListenerClosed) ||
		errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Service) serveLines(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return quiet(ctx, err)
		}
		go s.handleConn(ctx, conn)
	}
}

// handleConn serves one request. WATCH keeps the connection open and streams
// HISTORY messages until either side goes away.
func (s *Service) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	wc := wire.New(conn)

	wc.SetReadDeadline(requestTimeout)
	req, err := wc.ReadMsg()
	if err != nil {
		slog.Debug("ipc: bad request", "err", err)
		return
	}
	wc.SetReadDeadline(0)

	if req.Type == message.TypeWatch {
		s.watch(ctx, wc)
		return
	}
	if err := wc.WriteMsg(s.Dispatch(ctx, req)); err != nil {
		slog.Debug("ipc: write response failed", "type", req.Type, "err", err)
	}
}

// Dispatch executes a single request and builds its response. WATCH is not
// a single-response request and is rejected here.
func (s *Service) Dispatch(ctx context.Context, req *message.Message) *message.Message {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	switch req.Type {
	case message.TypeList:
		return s.history()

	case message.TypeSelect:
		e, err := s.h.Select(ctx, req.Ref)
		if err != nil {
			return message.Errorf("select %s: %v", req.Ref, err)
		}
		return &message.Message{Type: message.TypeOK, Entries: []message.Entry{message.FromEntry(e, s.position(e))}}

	case message.TypeDelete:
		e, err := s.h.Remove(ctx, req.Ref)
		if err != nil {
			return message.Errorf("delete %s: %v", req.Ref, err)
		}
		return &message.Message{Type: message.TypeOK, Entries: []message.Entry{message.FromEntry(e, 0)}}

	case message.TypeClear:
		if err := s.h.Clear(ctx); err != nil {
			return message.Errorf("clear: %v", err)
		}
		return &message.Message{Type: message.TypeOK}

	case message.TypeSettings:
		return s.settings()

	case message.TypeSetCapacity:
		n, err := settings.ParseCapacity(req.Capacity)
		if err != nil {
			return message.Errorf("%v", err)
		}
		if _, err := s.h.SetCapacity(ctx, n); err != nil {
			return message.Errorf("set capacity: %v", err)
		}
		return s.settings()

	case message.TypeSetAutostart:
		if req.Autostart == nil {
			return message.Errorf("autostart: missing value")
		}
		if err := s.h.SetAutostart(ctx, *req.Autostart); err != nil {
			return message.Errorf("set autostart: %v", err)
		}
		return s.settings()

	case message.TypeStatus:
		st, err := s.status(ctx)
		if err != nil {
			return message.Errorf("status: %v", err)
		}
		return &message.Message{Type: message.TypeStatus, Status: st}

	default:
		return message.Errorf("unsupported request type %q", req.Type)
	}
}

// watch sends the current history, then a fresh copy after every change.
func (s *Service) watch(ctx context.Context, wc *wire.Conn) {
	ch, unsubscribe := s.h.Subscribe()
	defer unsubscribe()

	// The client sends nothing after WATCH; a read returning means it hung up.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_, _ = wc.ReadMsg()
	}()

	slog.Debug("ipc: watch started")
	defer slog.Debug("ipc: watch ended")
	for {
		if err := wc.WriteMsg(s.history()); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-gone:
			return
		case <-ch:
		}
	}
}

func (s *Service) history() *message.Message {
	return &message.Message{Type: message.TypeHistory, Entries: message.FromEntries(s.h.Snapshot())}
}

func (s *Service) settings() *message.Message {
	v := s.h.Settings()
	return &message.Message{
		Type:     message.TypeSettings,
		Settings: &message.Settings{Capacity: v.Capacity, Autostart: v.Autostart},
	}
}

func (s *Service) status(ctx context.Context) (*message.Status, error) {
	st, err := s.h.Status(ctx)
	if err != nil {
		return nil, err
	}
	return &message.Status{
		Backend:       st.Backend,
		Entries:       st.Entries,
		Capacity:      st.Capacity,
		Autostart:     st.Autostart,
		LastChange:    st.LastChange,
		LastSaveError: st.LastSaveError,
		DataDir:       st.DataDir,
		StartedAt:     st.StartedAt,
		Version:       s.version,
	}, nil
}

// position returns the 1-based position of e in the current history, or 0.
func (s *Service) position(e entry.Entry) int {
	for i, cur := range s.h.Snapshot() {
		if cur.ID == e.ID {
			return i + 1
		}
	}
	return 0
}
