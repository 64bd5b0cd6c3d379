package history

import "go.klb.dev/keepclip/internal/entry"

// IsDuplicate reports whether candidate repeats the content of an entry
// already in hist. Only entries of the same kind are compared.
func IsDuplicate(candidate entry.Entry, hist []entry.Entry) bool {
	for _, e := range hist {
		if entry.SameContent(candidate, e) {
			return true
		}
	}
	return false
}
