package clip

import (
	"sync"
)

// Memory is an in-process pasteboard. It is used when no display server is
// available and as the pasteboard in tests.
type Memory struct {
	mu      sync.Mutex
	count   int64
	snap    Snapshot
	readErr error
	name    string
}

// NewMemory returns an empty in-memory pasteboard with change counter 0.
func NewMemory() *Memory { return &Memory{name: "memory"} }

// NewHeadless returns an in-memory pasteboard labelled as the headless
// fallback. Nothing outside the process ever changes it.
func NewHeadless() *Memory { return &Memory{name: "headless (in-memory)"} }

func (m *Memory) Name() string { return m.name }

func (m *Memory) ChangeCount() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count, nil
}

func (m *Memory) Read() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return Snapshot{}, m.readErr
	}
	return m.snap.Clone(), nil
}

// Write replaces the contents and bumps the counter, like a copy action in
// another application would.
func (m *Memory) Write(s Snapshot) error {
	m.Set(s)
	return nil
}

func (m *Memory) Close() {}

// Set replaces the contents and bumps the change counter.
func (m *Memory) Set(s Snapshot) {
	m.mu.Lock()
	m.snap = s.Clone()
	m.count++
	m.mu.Unlock()
}

// SetText is Set with a text-only snapshot.
func (m *Memory) SetText(text string) { m.Set(Snapshot{Text: text}) }

// Fail makes subsequent Read calls return err. A nil err clears the failure.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

var _ Backend = (*Memory)(nil)
