// Package entry defines the captured clipboard entry shared by every keepclip
// component. Entries are immutable values: once constructed they are only
// ever stored, copied or discarded.
package entry

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Kind identifies the payload carried by an Entry.
type Kind string

const (
	KindText  Kind = "text"
	KindFiles Kind = "file"
	KindImage Kind = "image"
)

// PreviewLen is the number of runes shown for text entries in menus.
const PreviewLen = 30

// Entry is one captured clipboard snapshot.
type Entry struct {
	ID          ulid.ULID
	Kind        Kind
	Text        string
	Files       []string
	Image       []byte
	Fingerprint string
	Timestamp   float64 // seconds since the Unix epoch
	DisplayName string
}

// NewText returns a text entry. text must already be trimmed and non-empty.
func NewText(text string, ts float64) Entry {
	return Entry{
		ID:          newID(ts),
		Kind:        KindText,
		Text:        text,
		Timestamp:   ts,
		DisplayName: preview(text, PreviewLen),
	}
}

// NewFiles returns a file-list entry. files must be non-empty; the slice is
// copied.
func NewFiles(files []string, ts float64) Entry {
	return NewFilesNamed(files, filepath.Base(files[0]), ts)
}

// NewFilesNamed is NewFiles with an explicit display name, as restored from
// disk. An empty name is re-derived from the first path.
func NewFilesNamed(files []string, name string, ts float64) Entry {
	if name == "" {
		name = filepath.Base(files[0])
	}
	return Entry{
		ID:          newID(ts),
		Kind:        KindFiles,
		Files:       slices.Clone(files),
		Timestamp:   ts,
		DisplayName: name,
	}
}

// NewImage returns an image entry owning a copy of data, fingerprinted with
// Fingerprint.
func NewImage(data []byte, ts float64) Entry {
	e := Entry{
		ID:          newID(ts),
		Kind:        KindImage,
		Image:       slices.Clone(data),
		Fingerprint: Fingerprint(data),
		Timestamp:   ts,
	}
	if w, h, ok := Dimensions(data); ok {
		e.DisplayName = fmt.Sprintf("image %dx%d", w, h)
	} else {
		e.DisplayName = "image"
	}
	return e
}

// Time returns the capture time.
func (e Entry) Time() time.Time {
	sec := int64(e.Timestamp)
	nsec := int64((e.Timestamp - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}

// Empty reports whether the entry carries no payload for its kind.
func (e Entry) Empty() bool {
	switch e.Kind {
	case KindText:
		return e.Text == ""
	case KindFiles:
		return len(e.Files) == 0
	case KindImage:
		return len(e.Image) == 0
	default:
		return true
	}
}

// Size returns the payload size in bytes.
func (e Entry) Size() int {
	switch e.Kind {
	case KindText:
		return len(e.Text)
	case KindImage:
		return len(e.Image)
	case KindFiles:
		n := 0
		for _, f := range e.Files {
			n += len(f)
		}
		return n
	}
	return 0
}

// Title is the one-line label a menu shows for the entry.
func (e Entry) Title() string {
	switch e.Kind {
	case KindText:
		return preview(e.Text, PreviewLen)
	case KindFiles:
		if len(e.Files) > 1 {
			return fmt.Sprintf("file: %s (+%d)", e.DisplayName, len(e.Files)-1)
		}
		return "file: " + e.DisplayName
	default:
		return fmt.Sprintf("%s (%s)", e.DisplayName, e.Time().Format("15:04"))
	}
}

// SameContent reports whether a and b hold equal content. Equality is scoped
// to the kind: entries of different kinds are never equal.
func SameContent(a, b Entry) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindText:
		return a.Text == b.Text
	case KindFiles:
		return slices.Equal(a.Files, b.Files)
	case KindImage:
		return a.Fingerprint == b.Fingerprint
	}
	return false
}

// Preview truncates s to n runes, appending "..." when cut.
func Preview(s string, n int) string { return preview(s, n) }

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func newID(ts float64) ulid.ULID {
	ms := uint64(ts * 1000)
	if ms == 0 {
		ms = ulid.Now()
	}
	id, err := ulid.New(ms, ulid.DefaultEntropy())
	if err != nil {
		return ulid.Make()
	}
	return id
}
