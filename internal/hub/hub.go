// Package hub runs the single logical actor that owns the clipboard history.
//
// Every mutation, whether from a poll tick, the CLI, the HTTP API or a
// settings change, is executed on the goroutine running Hub.Run, so no two
// mutations ever interleave. Readers on other goroutines get the last
// published copy of the history, which is replaced wholesale after each
// change.
package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"go.klb.dev/keepclip/internal/clip"
	"go.klb.dev/keepclip/internal/entry"
	"go.klb.dev/keepclip/internal/history"
	"go.klb.dev/keepclip/internal/persist"
	"go.klb.dev/keepclip/internal/settings"
	"go.klb.dev/keepclip/internal/watcher"
)

var (
	// ErrNotFound is returned when a reference matches no history entry.
	ErrNotFound = errors.New("no such history entry")
	// ErrStopped is returned for operations submitted after Run returned.
	ErrStopped = errors.New("hub stopped")
)

// Status describes the running hub.
type Status struct {
	Backend       string
	Entries       int
	Capacity      int
	Autostart     bool
	LastChange    int64
	LastSaveError string
	DataDir       string
	StartedAt     time.Time
}

// Hub owns the history store and the pasteboard watcher.
type Hub struct {
	store    *history.Store
	watch    *watcher.Watcher
	settings *settings.Settings
	interval time.Duration
	dataDir  string

	ops     chan func()
	stopped chan struct{}
	started time.Time
	snap    atomic.Pointer[[]entry.Entry]

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithInterval sets the poll period. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithDataDir records the data directory reported by Status.
func WithDataDir(dir string) Option {
	return func(h *Hub) { h.dataDir = dir }
}

// New returns a hub around an already loaded store.
func New(store *history.Store, w *watcher.Watcher, s *settings.Settings, opts ...Option) *Hub {
	h := &Hub{
		store:    store,
		watch:    w,
		settings: s,
		interval: watcher.DefaultInterval,
		ops:      make(chan func()),
		stopped:  make(chan struct{}),
		started:  time.Now(),
		subs:     make(map[chan struct{}]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	h.publish()
	return h
}

// Open loads settings and history from dir and returns a hub polling backend.
// Unreadable settings fall back to the defaults; a corrupt history file is
// quarantined by the persistence layer and the hub starts empty.
func Open(dir string, backend clip.Backend, opts ...Option) *Hub {
	s, err := settings.Load(dir)
	if err != nil {
		slog.Warn("settings unreadable, using defaults", "err", err)
		s = settings.Defaults(dir)
	}

	file := persist.New(dir)
	entries, err := file.Load()
	if err != nil {
		slog.Error("history unreadable, starting empty", "path", file.Path(), "err", err)
		entries = nil
	}

	store := history.New(s.Capacity(), file)
	store.Replace(entries)
	slog.Info("history loaded", "path", file.Path(), "entries", store.Len(), "capacity", store.Capacity())

	opts = append([]Option{WithDataDir(dir)}, opts...)
	return New(store, watcher.New(backend), s, opts...)
}

// Run processes ticks and operations until ctx is done. It must be called
// exactly once.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.stopped)

	t := time.NewTicker(h.interval)
	defer t.Stop()

	slog.Info("clipboard watcher started", "backend", h.watch.Backend().Name(), "interval", h.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("clipboard watcher stopped")
			return nil
		case <-t.C:
			h.tick()
		case op := <-h.ops:
			op()
		}
	}
}

func (h *Hub) tick() {
	e, ok := h.watch.Poll()
	if !ok {
		return
	}
	if !h.store.Insert(e) {
		slog.Debug("duplicate clipboard content dropped", "kind", e.Kind)
		return
	}
	LogEntry("clipboard captured", e)
	h.publish()
}

// do runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn()
	}
	select {
	case h.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.stopped:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the history, newest first. It never blocks on the hub
// goroutine.
func (h *Hub) Snapshot() []entry.Entry {
	return slices.Clone(*h.snap.Load())
}

// Select copies the referenced entry back onto the pasteboard.
func (h *Hub) Select(ctx context.Context, ref string) (entry.Entry, error) {
	var (
		e   entry.Entry
		err error
	)
	if derr := h.do(ctx, func() {
		if e, err = h.resolve(ref); err != nil {
			return
		}
		if err = h.watch.Restore(e); err != nil {
			err = fmt.Errorf("write pasteboard: %w", err)
		}
	}); derr != nil {
		return entry.Entry{}, derr
	}
	if err == nil {
		slog.Info("history entry selected", "id", e.ID, "kind", e.Kind)
	}
	return e, err
}

// Remove deletes the referenced entry.
func (h *Hub) Remove(ctx context.Context, ref string) (entry.Entry, error) {
	var (
		e   entry.Entry
		err error
	)
	if derr := h.do(ctx, func() {
		if e, err = h.resolve(ref); err != nil {
			return
		}
		if h.store.Remove(e.ID) {
			h.publish()
		}
	}); derr != nil {
		return entry.Entry{}, derr
	}
	if err == nil {
		slog.Info("history entry deleted", "id", e.ID, "kind", e.Kind)
	}
	return e, err
}

// Clear empties the history.
func (h *Hub) Clear(ctx context.Context) error {
	err := h.do(ctx, func() {
		h.store.Clear()
		h.publish()
	})
	if err == nil {
		slog.Info("history cleared")
	}
	return err
}

// SetCapacity stores the new capacity in the settings and applies it to the
// history. It returns the clamped value actually applied. A settings write
// failure is logged; the in-memory capacity still changes.
func (h *Hub) SetCapacity(ctx context.Context, n int) (int, error) {
	var applied int
	err := h.do(ctx, func() {
		stored, err := h.settings.SetCapacity(n)
		if err != nil {
			slog.Error("capacity not persisted", "err", err)
		}
		applied = h.applyCapacity(stored)
	})
	return applied, err
}

// ApplySettings applies values that changed on disk. Nothing is written back
// to the settings file.
func (h *Hub) ApplySettings(ctx context.Context, v settings.Values) error {
	return h.do(ctx, func() { h.applyCapacity(v.Capacity) })
}

// WatchSettings applies edits made to the settings file by other programs
// until ctx is done.
func (h *Hub) WatchSettings(ctx context.Context) error {
	return h.settings.Watch(ctx, func(v settings.Values) {
		if err := h.ApplySettings(ctx, v); err != nil && ctx.Err() == nil {
			slog.Warn("settings change not applied", "err", err)
		}
	})
}

func (h *Hub) applyCapacity(n int) int {
	before := h.store.Len()
	applied := h.store.SetCapacity(n)
	if h.store.Len() != before {
		h.publish()
	}
	slog.Info("capacity set", "capacity", applied, "evicted", before-h.store.Len())
	return applied
}

// SetAutostart records the autostart preference. Registering the login item
// with the OS is left to the caller.
func (h *Hub) SetAutostart(ctx context.Context, on bool) error {
	var err error
	if derr := h.do(ctx, func() { err = h.settings.SetAutostart(on) }); derr != nil {
		return derr
	}
	if err == nil {
		slog.Info("autostart preference changed", "autostart", on)
	}
	return err
}

// Settings returns the current settings.
func (h *Hub) Settings() settings.Values { return h.settings.Values() }

// Status reports the hub state.
func (h *Hub) Status(ctx context.Context) (Status, error) {
	var st Status
	err := h.do(ctx, func() {
		st = Status{
			Backend:    h.watch.Backend().Name(),
			Entries:    h.store.Len(),
			Capacity:   h.store.Capacity(),
			Autostart:  h.settings.Autostart(),
			LastChange: h.watch.LastChange(),
			DataDir:    h.dataDir,
			StartedAt:  h.started,
		}
		if err := h.store.LastSaveError(); err != nil {
			st.LastSaveError = err.Error()
		}
	})
	return st, err
}

// Subscribe returns a channel that receives a signal after every accepted
// history change, and a function that cancels the subscription. Signals are
// coalesced: a slow reader sees at least one signal after the latest change.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.subMu.Lock()
	h.subs[ch] = struct{}{}
	h.subMu.Unlock()
	return ch, func() {
		h.subMu.Lock()
		delete(h.subs, ch)
		h.subMu.Unlock()
	}
}

// publish replaces the readable snapshot and notifies subscribers.
func (h *Hub) publish() {
	snap := h.store.Snapshot()
	h.snap.Store(&snap)

	h.subMu.Lock()
	defer h.subMu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// resolve finds the entry named by ref: a 1-based position in the history
// (as shown in menus) or an entry ID.
func (h *Hub) resolve(ref string) (entry.Entry, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if e, ok := h.store.At(n - 1); ok {
			return e, nil
		}
		return entry.Entry{}, fmt.Errorf("%w: position %d", ErrNotFound, n)
	}
	id, err := ulid.ParseStrict(ref)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("%w: %q is neither a position nor an entry id", ErrNotFound, ref)
	}
	if e, ok := h.store.Get(id); ok {
		return e, nil
	}
	return entry.Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}
