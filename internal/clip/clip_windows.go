//go:build windows

package clip

import (
	"errors"
	"log/slog"

	"golang.design/x/clipboard"
	"golang.org/x/sys/windows"
)

var (
	user32                         = windows.NewLazySystemDLL("user32.dll")
	procGetClipboardSequenceNumber = user32.NewProc("GetClipboardSequenceNumber")
)

type windowsBackend struct{}

// New returns the Windows clipboard backend. The change counter comes from
// GetClipboardSequenceNumber, which the system increments on every change.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard init failed", "err", err)
	}
	return &windowsBackend{}
}

func (b *windowsBackend) Name() string { return "Windows Clipboard" }

func (b *windowsBackend) ChangeCount() (int64, error) {
	if err := procGetClipboardSequenceNumber.Find(); err != nil {
		return 0, err
	}
	n, _, _ := procGetClipboardSequenceNumber.Call()
	return int64(uint32(n)), nil
}

func (b *windowsBackend) Read() (Snapshot, error) {
	var s Snapshot
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		s.Image = img
	}
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		s.Text = string(text)
	}
	return s, nil
}

func (b *windowsBackend) Write(s Snapshot) error {
	switch {
	case len(s.Files) > 0:
		return errors.New("file lists are not supported by the Windows clipboard backend")
	case len(s.Image) > 0:
		clipboard.Write(clipboard.FmtImage, s.Image)
	case s.Text != "":
		clipboard.Write(clipboard.FmtText, []byte(s.Text))
	default:
		return errors.New("nothing to write")
	}
	return nil
}

func (b *windowsBackend) Close() {}
