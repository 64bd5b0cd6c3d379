// Package history holds the bounded, deduplicated, newest-first clipboard
// history.
//
// A Store is not safe for concurrent use. The hub confines it to a single
// goroutine; readers on other goroutines get copies from the hub.
package history

import (
	"log/slog"
	"slices"

	"github.com/oklog/ulid/v2"

	"go.klb.dev/keepclip/internal/entry"
)

const (
	MinCapacity     = 1
	MaxCapacity     = 100
	DefaultCapacity = 10
)

// Persister writes the history to durable storage.
type Persister interface {
	Save(entries []entry.Entry) error
}

// ClampCapacity limits n to [MinCapacity, MaxCapacity].
func ClampCapacity(n int) int {
	return max(MinCapacity, min(MaxCapacity, n))
}

// Store is the in-memory history. Every mutating method leaves the capacity
// bound and the no-duplicate property intact before it returns.
type Store struct {
	entries  []entry.Entry
	capacity int
	persist  Persister
	saveErr  error
}

// New returns an empty store. p may be nil to disable persistence.
func New(capacity int, p Persister) *Store {
	return &Store{capacity: ClampCapacity(capacity), persist: p}
}

// Capacity returns the current bound.
func (s *Store) Capacity() int { return s.capacity }

// Len returns the number of stored entries.
func (s *Store) Len() int { return len(s.entries) }

// Snapshot returns a copy of the history, newest first.
func (s *Store) Snapshot() []entry.Entry { return slices.Clone(s.entries) }

// LastSaveError returns the error from the most recent save, or nil.
func (s *Store) LastSaveError() error { return s.saveErr }

// Replace loads entries (newest first) as the whole history without saving.
// Later duplicates and anything beyond capacity are dropped.
func (s *Store) Replace(entries []entry.Entry) {
	out := make([]entry.Entry, 0, min(len(entries), s.capacity))
	for _, e := range entries {
		if len(out) == s.capacity {
			break
		}
		if e.Empty() || IsDuplicate(e, out) {
			continue
		}
		out = append(out, e)
	}
	s.entries = out
}

// Insert prepends e unless it duplicates an existing entry, then evicts the
// oldest entries beyond capacity. It reports whether e was accepted.
func (s *Store) Insert(e entry.Entry) bool {
	if e.Empty() || IsDuplicate(e, s.entries) {
		return false
	}
	s.entries = slices.Insert(s.entries, 0, e)
	s.evict()
	s.save()
	return true
}

// Remove deletes the entry with the given identity. It reports whether an
// entry was removed; nothing is saved when id is absent.
func (s *Store) Remove(id ulid.ULID) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	s.save()
	return true
}

// Clear empties the history and saves.
func (s *Store) Clear() {
	s.entries = nil
	s.save()
}

// SetCapacity clamps n, evicts the oldest entries that no longer fit and
// saves if any were evicted. It returns the applied capacity.
func (s *Store) SetCapacity(n int) int {
	s.capacity = ClampCapacity(n)
	if s.evict() > 0 {
		s.save()
	}
	return s.capacity
}

// Get returns the entry with the given identity.
func (s *Store) Get(id ulid.ULID) (entry.Entry, bool) {
	i := s.index(id)
	if i < 0 {
		return entry.Entry{}, false
	}
	return s.entries[i], true
}

// At returns the entry at the 0-based position, newest first.
func (s *Store) At(i int) (entry.Entry, bool) {
	if i < 0 || i >= len(s.entries) {
		return entry.Entry{}, false
	}
	return s.entries[i], true
}

func (s *Store) index(id ulid.ULID) int {
	return slices.IndexFunc(s.entries, func(e entry.Entry) bool { return e.ID == id })
}

func (s *Store) evict() int {
	n := len(s.entries) - s.capacity
	if n <= 0 {
		return 0
	}
	for i := s.capacity; i < len(s.entries); i++ {
		slog.Debug("history entry evicted", "kind", s.entries[i].Kind, "id", s.entries[i].ID)
	}
	s.entries = slices.Delete(s.entries, s.capacity, len(s.entries))
	return n
}

func (s *Store) save() {
	if s.persist == nil {
		return
	}
	s.saveErr = s.persist.Save(s.entries)
	if s.saveErr != nil {
		slog.Error("history save failed", "err", s.saveErr, "entries", len(s.entries))
	}
}
