// Package classify turns a pasteboard snapshot into a typed clipboard entry.
package classify

import (
	"strings"
	"time"

	"go.klb.dev/keepclip/internal/clip"
	"go.klb.dev/keepclip/internal/entry"
)

// priority is the fixed order in which formats are considered.
var priority = []clip.Format{clip.FormatFiles, clip.FormatImage, clip.FormatText}

// Classify returns the entry for the highest-priority format in s that holds
// non-empty data, or false when nothing usable is present. It has no side
// effects.
func Classify(s clip.Snapshot, now time.Time) (entry.Entry, bool) {
	ts := float64(now.UnixNano()) / 1e9
	for _, f := range priority {
		switch f {
		case clip.FormatFiles:
			if files := nonEmpty(s.Files); len(files) > 0 {
				return entry.NewFiles(files, ts), true
			}
		case clip.FormatImage:
			if len(s.Image) > 0 {
				return entry.NewImage(s.Image, ts), true
			}
		case clip.FormatText:
			if text := strings.TrimSpace(s.Text); text != "" {
				return entry.NewText(text, ts), true
			}
		}
	}
	return entry.Entry{}, false
}

func nonEmpty(paths []string) []string {
	var out []string
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
