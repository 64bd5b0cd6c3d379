package hub

import (
	"context"
	"log/slog"

	"go.klb.dev/keepclip/internal/entry"
)

// LogEntry logs a history event at INFO (id, kind, size) and DEBUG (text
// preview up to 120 chars, or the file list).
func LogEntry(event string, e entry.Entry) {
	slog.Info(event, "id", e.ID, "kind", e.Kind, "size_bytes", e.Size())

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	switch e.Kind {
	case entry.KindText:
		slog.Debug("clipboard text", "preview", entry.Preview(e.Text, 120))
	case entry.KindFiles:
		slog.Debug("clipboard files", "files", e.Files)
	case entry.KindImage:
		slog.Debug("clipboard image", "name", e.DisplayName, "fingerprint", e.Fingerprint)
	}
}
