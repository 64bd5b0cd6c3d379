// Package clip provides a unified interface to the system pasteboard across
// platforms. Build constraints select the appropriate implementation:
//
//	clip_darwin.go  macOS via golang.design/x/clipboard + cgo changeCount and file URLs
//	clip_windows.go Windows via golang.design/x/clipboard + GetClipboardSequenceNumber
//	clip_linux.go   Linux via golang.design/x/clipboard, synthesised change counter
//	clip_other.go   everything else falls back to the in-memory pasteboard
//
// The Memory backend doubles as the headless fallback and as the fake
// pasteboard in tests.
package clip

import (
	"slices"
)

// Format tags a representation available on the pasteboard.
type Format string

const (
	FormatFiles Format = "files"
	FormatImage Format = "image"
	FormatText  Format = "text"
)

// Snapshot is an owned copy of the pasteboard contents at one instant. It
// never references OS-owned buffers.
type Snapshot struct {
	Files []string
	Image []byte // encoded image, PNG on most platforms
	Text  string
}

// Formats returns the tags for the representations present in s, in
// classification priority order.
func (s Snapshot) Formats() []Format {
	var out []Format
	if len(s.Files) > 0 {
		out = append(out, FormatFiles)
	}
	if len(s.Image) > 0 {
		out = append(out, FormatImage)
	}
	if s.Text != "" {
		out = append(out, FormatText)
	}
	return out
}

// Has reports whether format f is present.
func (s Snapshot) Has(f Format) bool { return slices.Contains(s.Formats(), f) }

// Empty reports whether the snapshot holds nothing.
func (s Snapshot) Empty() bool { return len(s.Formats()) == 0 }

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Files: slices.Clone(s.Files),
		Image: slices.Clone(s.Image),
		Text:  s.Text,
	}
}

// Backend is the interface that all platform pasteboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// ChangeCount returns the pasteboard's monotonically increasing change
	// counter. Platforms without a native counter synthesise one.
	ChangeCount() (int64, error)

	// Read returns the current pasteboard contents.
	Read() (Snapshot, error)

	// Write replaces the pasteboard contents with s.
	Write(s Snapshot) error

	// Close releases any resources held by the backend.
	Close()
}
