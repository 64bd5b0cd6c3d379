// Package watcher samples the pasteboard change counter and turns each
// observed change into a candidate history entry.
package watcher

import (
	"errors"
	"log/slog"
	"time"

	"go.klb.dev/keepclip/internal/classify"
	"go.klb.dev/keepclip/internal/clip"
	"go.klb.dev/keepclip/internal/entry"
)

// DefaultInterval is the poll period.
const DefaultInterval = 500 * time.Millisecond

// State is the watcher's position in its two-state cycle.
type State int

const (
	Idle State = iota
	Sampling
)

func (s State) String() string {
	if s == Sampling {
		return "sampling"
	}
	return "idle"
}

// Watcher polls one backend. It keeps no entry state, only the last change
// counter it observed. Poll must not be called concurrently.
type Watcher struct {
	backend clip.Backend
	now     func() time.Time
	last    int64
	state   State
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithClock replaces time.Now as the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// New returns a watcher for backend. The last observed counter starts at 0,
// so whatever is on the pasteboard at start is captured on the first poll.
func New(backend clip.Backend, opts ...Option) *Watcher {
	w := &Watcher{backend: backend, now: time.Now}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Backend returns the polled backend.
func (w *Watcher) Backend() clip.Backend { return w.backend }

// State returns the current state. Outside Poll it is always Idle.
func (w *Watcher) State() State { return w.state }

// LastChange returns the last change counter observed.
func (w *Watcher) LastChange() int64 { return w.last }

// Poll runs one tick. If the change counter moved since the previous tick
// the current contents are read and classified; changes between ticks
// collapse into the latest contents. A failed read yields no entry and is not
// retried.
func (w *Watcher) Poll() (entry.Entry, bool) {
	n, err := w.backend.ChangeCount()
	if err != nil {
		slog.Debug("pasteboard change counter unavailable", "err", err)
		return entry.Entry{}, false
	}
	if n == w.last {
		return entry.Entry{}, false
	}

	w.state = Sampling
	defer func() { w.state = Idle }()
	w.last = n

	snap, err := w.backend.Read()
	if err != nil {
		slog.Debug("pasteboard read failed", "err", err, "change", n)
		return entry.Entry{}, false
	}
	e, ok := classify.Classify(snap, w.now())
	if !ok {
		slog.Debug("pasteboard change without usable content", "change", n, "formats", snap.Formats())
	}
	return e, ok
}

// Restore puts e back on the pasteboard so it can be pasted again. The
// resulting change is picked up by the next Poll and dropped as a duplicate.
func (w *Watcher) Restore(e entry.Entry) error {
	var s clip.Snapshot
	switch e.Kind {
	case entry.KindText:
		s.Text = e.Text
	case entry.KindFiles:
		s.Files = e.Files
	case entry.KindImage:
		s.Image = e.Image
	default:
		return errors.New("unknown entry kind")
	}
	return w.backend.Write(s)
}
