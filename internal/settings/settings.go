// Package settings persists the user-editable preferences: the history
// capacity and the autostart flag. They live in settings.toml next to the
// history file but are stored independently of it.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"go.klb.dev/keepclip/internal/history"
	"go.klb.dev/keepclip/internal/persist"
)

// FileName is the settings file inside the data directory.
const FileName = "settings.toml"

// ErrInvalidCapacity is returned by ParseCapacity for non-numeric input.
var ErrInvalidCapacity = errors.New("capacity must be a whole number")

// Values is the on-disk settings document.
type Values struct {
	Capacity  int  `toml:"capacity"`
	Autostart bool `toml:"autostart"`
}

// normalize applies the default for an unset capacity and clamps the rest.
func (v Values) normalize() Values {
	if v.Capacity <= 0 {
		v.Capacity = history.DefaultCapacity
	} else {
		v.Capacity = history.ClampCapacity(v.Capacity)
	}
	return v
}

// Settings is safe for concurrent use.
type Settings struct {
	path string

	mu sync.RWMutex
	v  Values
}

// Load reads dir/settings.toml. A missing file yields the defaults.
func Load(dir string) (*Settings, error) {
	s := &Settings{path: filepath.Join(dir, FileName)}
	v, err := s.read()
	if err != nil {
		return nil, err
	}
	s.v = v
	return s, nil
}

// Defaults returns settings for dir holding the default values, without
// reading the file. The next change overwrites whatever is on disk.
func Defaults(dir string) *Settings {
	return &Settings{path: filepath.Join(dir, FileName), v: Values{}.normalize()}
}

// Path returns the settings file path.
func (s *Settings) Path() string { return s.path }

// Values returns the current settings.
func (s *Settings) Values() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v
}

// Capacity returns the history capacity.
func (s *Settings) Capacity() int { return s.Values().Capacity }

// Autostart returns the autostart flag.
func (s *Settings) Autostart() bool { return s.Values().Autostart }

// SetCapacity clamps n to the valid range, persists it and returns the stored
// value.
func (s *Settings) SetCapacity(n int) (int, error) {
	n = history.ClampCapacity(n)
	return n, s.update(func(v *Values) { v.Capacity = n })
}

// SetAutostart persists the autostart flag.
func (s *Settings) SetAutostart(on bool) error {
	return s.update(func(v *Values) { v.Autostart = on })
}

// Reload re-reads the file and reports whether anything changed.
func (s *Settings) Reload() (Values, bool, error) {
	v, err := s.read()
	if err != nil {
		return s.Values(), false, err
	}
	s.mu.Lock()
	changed := v != s.v
	s.v = v
	s.mu.Unlock()
	return v, changed, nil
}

func (s *Settings) update(fn func(*Values)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.v
	fn(&next)
	if err := s.write(next); err != nil {
		return err
	}
	s.v = next
	return nil
}

func (s *Settings) read() (Values, error) {
	var v Values
	if _, err := toml.DecodeFile(s.path, &v); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Values{}.normalize(), nil
		}
		return Values{}.normalize(), fmt.Errorf("read settings: %w", err)
	}
	return v.normalize(), nil
}

func (s *Settings) write(v Values) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := persist.WriteFileAtomic(s.path, s.path+".tmp", buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// ParseCapacity parses user input for the capacity field. Non-numeric input
// is rejected; numeric input is clamped to the valid range.
func ParseCapacity(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCapacity, s)
	}
	return history.ClampCapacity(n), nil
}
