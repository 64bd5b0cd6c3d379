// Package message defines the keepclip local control protocol.
//
// All messages are newline-delimited JSON, one message per line. A client
// sends one request and reads one response, except for WATCH, after which the
// daemon keeps sending HISTORY messages until the connection closes.
package message

import (
	"encoding/json"
	"fmt"
	"time"

	"go.klb.dev/keepclip/internal/entry"
)

// Type identifies the kind of message.
type Type string

// Requests.
const (
	TypeList         Type = "LIST"
	TypeSelect       Type = "SELECT"
	TypeDelete       Type = "DELETE"
	TypeClear        Type = "CLEAR"
	TypeSettings     Type = "SETTINGS"
	TypeSetCapacity  Type = "SET_CAPACITY"
	TypeSetAutostart Type = "SET_AUTOSTART"
	TypeWatch        Type = "WATCH"
	TypeStatus       Type = "STATUS"
)

// Responses. SETTINGS and STATUS are also used as response types.
const (
	TypeHistory Type = "HISTORY"
	TypeOK      Type = "OK"
	TypeError   Type = "ERROR"
)

// Entry is the wire form of a history entry. Image bytes are never sent.
type Entry struct {
	Position    int        `json:"position,omitempty"`
	ID          string     `json:"id"`
	Kind        entry.Kind `json:"kind"`
	Timestamp   float64    `json:"timestamp"`
	DisplayName string     `json:"display_name,omitempty"`
	Title       string     `json:"title"`
	Text        string     `json:"text,omitempty"`
	Files       []string   `json:"files,omitempty"`
	ImageSize   int        `json:"image_size,omitempty"`
	Fingerprint string     `json:"fingerprint,omitempty"`
}

// FromEntry converts e, at 1-based position pos, to its wire form.
func FromEntry(e entry.Entry, pos int) Entry {
	out := Entry{
		Position:    pos,
		ID:          e.ID.String(),
		Kind:        e.Kind,
		Timestamp:   e.Timestamp,
		DisplayName: e.DisplayName,
		Title:       e.Title(),
		Text:        e.Text,
		Files:       e.Files,
		Fingerprint: e.Fingerprint,
	}
	if e.Kind == entry.KindImage {
		out.ImageSize = len(e.Image)
	}
	return out
}

// FromEntries converts a newest-first history.
func FromEntries(entries []entry.Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = FromEntry(e, i+1)
	}
	return out
}

// Time returns the capture time.
func (e Entry) Time() time.Time {
	sec := int64(e.Timestamp)
	return time.Unix(sec, int64((e.Timestamp-float64(sec))*1e9))
}

// Settings carries the user preferences.
type Settings struct {
	Capacity  int  `json:"capacity"`
	Autostart bool `json:"autostart"`
}

// Status describes the running daemon.
type Status struct {
	Backend       string    `json:"backend"`
	Entries       int       `json:"entries"`
	Capacity      int       `json:"capacity"`
	Autostart     bool      `json:"autostart"`
	LastChange    int64     `json:"last_change"`
	LastSaveError string    `json:"last_save_error,omitempty"`
	DataDir       string    `json:"data_dir"`
	StartedAt     time.Time `json:"started_at"`
	Version       string    `json:"version,omitempty"`
}

// Message is the top-level wire envelope.
type Message struct {
	Type Type `json:"type"`

	// SELECT, DELETE: a 1-based position or an entry id.
	Ref string `json:"ref,omitempty"`

	// SET_CAPACITY carries the raw user input so the daemon validates it.
	Capacity string `json:"capacity,omitempty"`

	// SET_AUTOSTART
	Autostart *bool `json:"autostart,omitempty"`

	// HISTORY, and OK after SELECT/DELETE
	Entries []Entry `json:"entries,omitempty"`

	// SETTINGS response
	Settings *Settings `json:"settings,omitempty"`

	// STATUS response
	Status *Status `json:"status,omitempty"`

	// ERROR
	Error string `json:"error,omitempty"`
}

// Encode serialises the message to JSON without a trailing newline.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode deserialises a message from raw JSON bytes.
func Decode(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("message decode: %w", err)
	}
	if m.Type == "" {
		return nil, fmt.Errorf("message decode: missing type")
	}
	return &m, nil
}

// Errorf builds an ERROR response.
func Errorf(format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: fmt.Sprintf(format, args...)}
}

// Err returns the error carried by an ERROR message, or nil.
func (m *Message) Err() error {
	if m.Type != TypeError {
		return nil
	}
	return fmt.Errorf("keepclip: %s", m.Error)
}
