//go:build !darwin && !windows && !linux

package clip

// New returns the in-memory pasteboard; there is no native backend for this
// platform.
func New() Backend { return NewHeadless() }
