//go:build linux

package clip

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"

	"golang.design/x/clipboard"
)

// linuxBackend has no native change counter. ChangeCount reads the current
// contents and bumps a synthetic counter whenever they differ from the last
// observation; Read returns that observation.
type linuxBackend struct {
	mu       sync.Mutex
	count    int64
	lastText []byte
	lastImg  []byte
}

// New returns the Linux clipboard backend, or the headless in-memory backend
// if the display environment is unavailable (e.g. a headless server without
// X11 or Wayland).
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return NewHeadless()
	}
	return &linuxBackend{}
}

func (b *linuxBackend) Name() string { return "Linux clipboard (poll)" }

func (b *linuxBackend) ChangeCount() (int64, error) {
	text := clipboard.Read(clipboard.FmtText)
	img := clipboard.Read(clipboard.FmtImage)

	b.mu.Lock()
	defer b.mu.Unlock()
	if !bytes.Equal(text, b.lastText) || !bytes.Equal(img, b.lastImg) {
		b.lastText = text
		b.lastImg = img
		b.count++
	}
	return b.count, nil
}

func (b *linuxBackend) Read() (Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		Image: bytes.Clone(b.lastImg),
		Text:  string(b.lastText),
	}, nil
}

func (b *linuxBackend) Write(s Snapshot) error {
	switch {
	case len(s.Files) > 0:
		return errors.New("file lists are not supported by the Linux clipboard backend")
	case len(s.Image) > 0:
		clipboard.Write(clipboard.FmtImage, s.Image)
	case s.Text != "":
		clipboard.Write(clipboard.FmtText, []byte(s.Text))
	default:
		return errors.New("nothing to write")
	}
	return nil
}

func (b *linuxBackend) Close() {}
