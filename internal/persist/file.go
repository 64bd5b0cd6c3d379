// Package persist stores the clipboard history on disk.
//
// The file is a JSON array in history order (newest first):
//
//	[
//	  { "type": "text", "timestamp": 1700000000.5, "data": "hello" },
//	  { "type": "file", "timestamp": 1700000000.1, "data": ["/a/b.pdf"], "display_name": "b.pdf" }
//	]
//
// Only text and file entries are written; images are kept in memory only.
// Writes go to history.json.tmp and are renamed over history.json. A file that
// cannot be parsed is moved aside to history.json.bak on load.
package persist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"go.klb.dev/keepclip/internal/entry"
)

const (
	FileName  = "history.json"
	tmpSuffix = ".tmp"
	bakSuffix = ".bak"
	filePerm  = 0o600

	typeText  = "text"
	typeFiles = "file"

	typeField = "type"
	dataField = "data"
	tsField   = "timestamp"
	nameField = "display_name"
)

// record is the on-disk form of a text or file entry.
type record struct {
	Type        string  `json:"type"`
	Timestamp   float64 `json:"timestamp"`
	Data        any     `json:"data"`
	DisplayName string  `json:"display_name,omitempty"`
}

// File persists history to Dir/history.json.
type File struct {
	Dir string
}

// New returns a File rooted at dir.
func New(dir string) *File { return &File{Dir: dir} }

// Path returns the history file path.
func (f *File) Path() string { return filepath.Join(f.Dir, FileName) }

// TempPath returns the path written before the atomic rename.
func (f *File) TempPath() string { return f.Path() + tmpSuffix }

// BackupPath returns where a corrupt history file is moved.
func (f *File) BackupPath() string { return f.Path() + bakSuffix }

// Save writes the text and file entries of entries. Image entries are skipped.
func (f *File) Save(entries []entry.Entry) error {
	records := make([]record, 0, len(entries))
	for _, e := range entries {
		switch e.Kind {
		case entry.KindText:
			records = append(records, record{Type: typeText, Timestamp: e.Timestamp, Data: e.Text})
		case entry.KindFiles:
			records = append(records, record{
				Type:        typeFiles,
				Timestamp:   e.Timestamp,
				Data:        e.Files,
				DisplayName: e.DisplayName,
			})
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := WriteFileAtomic(f.Path(), f.TempPath(), buf.Bytes(), filePerm); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Load reads the history. A missing file yields an empty history and no
// error. A file that does not parse as a JSON array is renamed to the backup
// path (best effort) and an empty history is returned. Individual records
// that fail validation are skipped.
func (f *File) Load() ([]entry.Entry, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}

	var raw []json.RawMessage
	err = json.Unmarshal(data, &raw)
	if err == nil && raw == nil {
		err = errors.New("top-level value is not an array")
	}
	if err != nil {
		slog.Warn("history file corrupt, moving aside", "path", f.Path(), "err", err)
		if err := os.Rename(f.Path(), f.BackupPath()); err != nil {
			slog.Debug("backup rename failed", "err", err)
		}
		return nil, nil
	}

	out := make([]entry.Entry, 0, len(raw))
	for i, r := range raw {
		e, ok := decodeRecord(r)
		if !ok {
			slog.Debug("skipping invalid history record", "index", i)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// decodeRecord validates one record field by field.
func decodeRecord(r json.RawMessage) (entry.Entry, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(r, &fields); err != nil || fields == nil {
		return entry.Entry{}, false
	}
	rawType, hasType := fields[typeField]
	rawData, hasData := fields[dataField]
	if !hasType || !hasData {
		return entry.Entry{}, false
	}
	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return entry.Entry{}, false
	}

	var ts float64
	if rawTS, ok := fields[tsField]; ok {
		if err := json.Unmarshal(rawTS, &ts); err != nil {
			ts = 0
		}
	}

	switch typ {
	case typeText:
		var text string
		if !strictUnmarshal(rawData, &text) {
			return entry.Entry{}, false
		}
		// Trimmed like captured text.
		if text = strings.TrimSpace(text); text == "" {
			return entry.Entry{}, false
		}
		return entry.NewText(text, ts), true

	case typeFiles:
		var files []string
		if !strictUnmarshal(rawData, &files) || len(files) == 0 {
			return entry.Entry{}, false
		}
		for _, p := range files {
			if p == "" {
				return entry.Entry{}, false
			}
		}
		var name string
		if rawName, ok := fields[nameField]; ok {
			_ = json.Unmarshal(rawName, &name)
		}
		return entry.NewFilesNamed(files, name, ts), true
	}
	return entry.Entry{}, false
}

// strictUnmarshal rejects JSON null, which encoding/json would otherwise
// accept as a zero value.
func strictUnmarshal(data json.RawMessage, v any) bool {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return false
	}
	return json.Unmarshal(data, v) == nil
}
