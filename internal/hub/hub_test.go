package hub

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/keepclip/internal/clip"
	"go.klb.dev/keepclip/internal/entry"
	"go.klb.dev/keepclip/internal/persist"
	"go.klb.dev/keepclip/internal/settings"
)

const (
	waitFor = 2 * time.Second
	pollFor = 5 * time.Millisecond
)

// startHub runs a hub on a memory pasteboard in dir and returns it with the
// pasteboard. The hub stops when the test ends.
func startHub(t *testing.T, dir string) (*Hub, *clip.Memory) {
	t.Helper()
	mem := clip.NewMemory()
	h := Open(dir, mem, WithInterval(2*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return h, mem
}

func texts(entries []entry.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Text
	}
	return out
}

// copyText puts text on the pasteboard and waits until the hub has seen that
// change.
func copyText(t *testing.T, h *Hub, mem *clip.Memory, text string) {
	t.Helper()
	mem.SetText(text)
	want, _ := mem.ChangeCount()
	require.Eventually(t, func() bool {
		st, err := h.Status(context.Background())
		return err == nil && st.LastChange == want
	}, waitFor, pollFor)
}

func TestCaptureAndEvict(t *testing.T) {
	dir := t.TempDir()
	h, mem := startHub(t, dir)

	_, err := h.SetCapacity(context.Background(), 3)
	require.NoError(t, err)

	for _, v := range []string{"x", "y", "z", "w"} {
		copyText(t, h, mem, v)
	}
	assert.Equal(t, []string{"w", "z", "y"}, texts(h.Snapshot()))

	out, err := persist.New(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"w", "z", "y"}, texts(out))
}

func TestDuplicateNotPromoted(t *testing.T) {
	h, mem := startHub(t, t.TempDir())

	copyText(t, h, mem, "a")
	first := h.Snapshot()[0]
	copyText(t, h, mem, "b")
	copyText(t, h, mem, "  a  ")

	snap := h.Snapshot()
	assert.Equal(t, []string{"b", "a"}, texts(snap))
	assert.Equal(t, first.ID, snap[1].ID)
	assert.Equal(t, first.Timestamp, snap[1].Timestamp)
}

func TestSetCapacityEvictsAndSaves(t *testing.T) {
	dir := t.TempDir()
	h, mem := startHub(t, dir)
	ctx := context.Background()

	_, err := h.SetCapacity(ctx, 3)
	require.NoError(t, err)
	for _, v := range []string{"b", "c", "d"} {
		copyText(t, h, mem, v)
	}

	n, err := h.SetCapacity(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"d", "c"}, texts(h.Snapshot()))

	out, err := persist.New(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "c"}, texts(out))

	s, err := settings.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Capacity())

	n, err = h.SetCapacity(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRemoveAndClear(t *testing.T) {
	h, mem := startHub(t, t.TempDir())
	ctx := context.Background()

	for _, v := range []string{"a", "b", "c"} {
		copyText(t, h, mem, v)
	}

	removed, err := h.Remove(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "b", removed.Text)
	assert.Equal(t, []string{"c", "a"}, texts(h.Snapshot()))

	id := h.Snapshot()[1].ID.String()
	removed, err = h.Remove(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a", removed.Text)

	_, err = h.Remove(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.Remove(ctx, "7")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = h.Remove(ctx, "nonsense")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, h.Clear(ctx))
	assert.Empty(t, h.Snapshot())
}

func TestSelectRestoresWithoutDuplicating(t *testing.T) {
	h, mem := startHub(t, t.TempDir())
	ctx := context.Background()

	copyText(t, h, mem, "one")
	copyText(t, h, mem, "two")

	e, err := h.Select(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "one", e.Text)

	s, err := mem.Read()
	require.NoError(t, err)
	assert.Equal(t, "one", s.Text)

	want, _ := mem.ChangeCount()
	require.Eventually(t, func() bool {
		st, err := h.Status(ctx)
		return err == nil && st.LastChange == want
	}, waitFor, pollFor)
	assert.Equal(t, []string{"two", "one"}, texts(h.Snapshot()))
}

func TestSubscribeNotifiesOnChange(t *testing.T) {
	h, mem := startHub(t, t.TempDir())
	ch, cancel := h.Subscribe()
	defer cancel()

	mem.SetText("hello")
	select {
	case <-ch:
	case <-time.After(waitFor):
		t.Fatal("no change notification")
	}
	assert.Equal(t, []string{"hello"}, texts(h.Snapshot()))
}

func TestLoadsExistingHistory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, persist.FileName),
		[]byte(`[{"type":"text","timestamp":2,"data":"kept"},{"type":"text","timestamp":1,"data":123}]`), 0o600))

	h, _ := startHub(t, dir)
	assert.Equal(t, []string{"kept"}, texts(h.Snapshot()))
}

func TestCorruptHistoryStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, persist.FileName), []byte(`{{{`), 0o600))

	h, _ := startHub(t, dir)
	assert.Empty(t, h.Snapshot())
	_, err := os.Stat(filepath.Join(dir, persist.FileName+".bak"))
	assert.NoError(t, err)
}

func TestApplySettings(t *testing.T) {
	h, mem := startHub(t, t.TempDir())
	for _, v := range []string{"a", "b", "c"} {
		copyText(t, h, mem, v)
	}
	require.NoError(t, h.ApplySettings(context.Background(), settings.Values{Capacity: 1}))
	assert.Equal(t, []string{"c"}, texts(h.Snapshot()))
}

func TestAutostartAndStatus(t *testing.T) {
	dir := t.TempDir()
	h, _ := startHub(t, dir)
	ctx := context.Background()

	require.NoError(t, h.SetAutostart(ctx, true))
	assert.True(t, h.Settings().Autostart)

	st, err := h.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "memory", st.Backend)
	assert.Equal(t, 10, st.Capacity)
	assert.True(t, st.Autostart)
	assert.Equal(t, dir, st.DataDir)
	assert.Empty(t, st.LastSaveError)
}

func TestOperationsAfterStop(t *testing.T) {
	h := Open(t.TempDir(), clip.NewMemory())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)

	assert.ErrorIs(t, h.Clear(context.Background()), ErrStopped)
}

func TestOperationRespectsContext(t *testing.T) {
	h := Open(t.TempDir(), clip.NewMemory())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.Clear(ctx), context.DeadlineExceeded, "nothing runs the hub")
}

func TestWatchSettingsAppliesExternalEdits(t *testing.T) {
	dir := t.TempDir()
	h, mem := startHub(t, dir)
	for _, v := range []string{"a", "b", "c"} {
		copyText(t, h, mem, v)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.WatchSettings(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	path := filepath.Join(dir, settings.FileName)
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("capacity = 1\nautostart = false\n"), 0o600)
		return len(h.Snapshot()) == 1
	}, waitFor, 20*time.Millisecond)
	assert.Equal(t, []string{"c"}, texts(h.Snapshot()))
}
