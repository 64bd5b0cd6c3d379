package service

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.klb.dev/keepclip/internal/clip"
	"go.klb.dev/keepclip/internal/hub"
	"go.klb.dev/keepclip/internal/message"
	"go.klb.dev/keepclip/internal/wire"
)

const (
	waitFor = 2 * time.Second
	pollFor = 5 * time.Millisecond
)

func startService(t *testing.T) (*Service, *hub.Hub, *clip.Memory) {
	t.Helper()
	mem := clip.NewMemory()
	h := hub.Open(t.TempDir(), mem, hub.WithInterval(2*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return New(h, "test"), h, mem
}

func copyText(t *testing.T, h *hub.Hub, mem *clip.Memory, text string) {
	t.Helper()
	mem.SetText(text)
	require.Eventually(t, func() bool {
		snap := h.Snapshot()
		return len(snap) > 0 && snap[0].Text == text
	}, waitFor, pollFor)
}

func TestDispatch(t *testing.T) {
	s, h, mem := startService(t)
	ctx := context.Background()
	for _, v := range []string{"a", "b", "c"} {
		copyText(t, h, mem, v)
	}

	resp := s.Dispatch(ctx, &message.Message{Type: message.TypeList})
	require.Equal(t, message.TypeHistory, resp.Type)
	require.Len(t, resp.Entries, 3)
	assert.Equal(t, 1, resp.Entries[0].Position)
	assert.Equal(t, "c", resp.Entries[0].Text)

	resp = s.Dispatch(ctx, &message.Message{Type: message.TypeDelete, Ref: "2"})
	require.Equal(t, message.TypeOK, resp.Type, resp.Error)
	assert.Equal(t, "b", resp.Entries[0].Text)

	resp = s.Dispatch(ctx, &message.Message{Type: message.TypeDelete, Ref: "9"})
	assert.Equal(t, message.TypeError, resp.Type)

	resp = s.Dispatch(ctx, &message.Message{Type: message.TypeSelect, Ref: "2"})
	require.Equal(t, message.TypeOK, resp.Type, resp.Error)
	assert.Equal(t, "a", resp.Entries[0].Text)
	assert.Equal(t, 2, resp.Entries[0].Position)
	got, err := mem.Read()
	require.NoError(t, err)
	assert.Equal(t, "a", got.Text)

	resp = s.Dispatch(ctx, &message.Message{Type: message.TypeClear})
	require.Equal(t, message.TypeOK, resp.Type)
	assert.Empty(t, h.Snapshot())
}

func TestDispatchSettings(t *testing.T) {
	s, h, mem := startService(t)
	ctx := context.Background()
	for _, v := range []string{"a", "b", "c"} {
		copyText(t, h, mem, v)
	}

	resp := s.Dispatch(ctx, &message.Message{Type: message.TypeSetCapacity, Capacity: "abc"})
	assert.Equal(t, message.TypeError, resp.Type)
	assert.Equal(t, 10, h.Settings().Capacity, "invalid input changes nothing")
	assert.Len(t, h.Snapshot(), 3)

	resp = s.Dispatch(ctx, &message.Message{Type: message.TypeSetCapacity, Capacity: "2"})
	require.Equal(t, message.TypeSettings, resp.Type, resp.Error)
	assert.Equal(t, 2, resp.Settings.Capacity)
	assert.Len(t, h.Snapshot(), 2)

	resp = s.Dispatch(ctx, &message.Message{Type: message.TypeSetCapacity, Capacity: "500"})
	require.Equal(t, message.TypeSettings, resp.Type)
	assert.Equal(t, 100, resp.Settings.Capacity)

	resp = s.Dispatch(ctx, &message.Message{Type: message.TypeSetAutostart})
	assert.Equal(t, message.TypeError, resp.Type)

	on := true
	resp = s.Dispatch(ctx, &message.Message{Type: message.TypeSetAutostart, Autostart: &on})
	require.Equal(t, message.TypeSettings, resp.Type)
	assert.True(t, resp.Settings.Autostart)

	resp = s.Dispatch(ctx, &message.Message{Type: message.TypeStatus})
	require.Equal(t, message.TypeStatus, resp.Type)
	assert.Equal(t, "memory", resp.Status.Backend)
	assert.Equal(t, "test", resp.Status.Version)
	assert.Equal(t, 2, resp.Status.Entries)

	resp = s.Dispatch(ctx, &message.Message{Type: "BOGUS"})
	assert.Equal(t, message.TypeError, resp.Type)
}

func TestServeLinesAndHTTP(t *testing.T) {
	s, h, mem := startService(t)
	sock := filepath.Join(t.TempDir(), "k.sock")
	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	copyText(t, h, mem, "hello")

	// Line protocol.
	conn, err := net.Dial("unix", sock)
	require.NoError(t, err)
	wc := wire.New(conn)
	resp, err := wc.Request(&message.Message{Type: message.TypeList})
	require.NoError(t, err)
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "hello", resp.Entries[0].Text)
	_ = wc.Close()

	// HTTP on the same socket.
	client := &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", sock)
		},
	}}
	res, err := client.Get("http://keepclip/v1/history")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	var entries []message.Entry
	require.NoError(t, json.NewDecoder(res.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "hello", entries[0].Text)
	client.CloseIdleConnections()
}

func TestWatchStreamsHistory(t *testing.T) {
	s, h, mem := startService(t)
	a, b := net.Pipe()
	client := wire.New(a)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.handleConn(ctx, b)

	require.NoError(t, client.WriteMsg(&message.Message{Type: message.TypeWatch}))
	first, err := client.ReadMsg()
	require.NoError(t, err)
	assert.Equal(t, message.TypeHistory, first.Type)
	assert.Empty(t, first.Entries)

	copyText(t, h, mem, "streamed")
	client.SetReadDeadline(waitFor)
	for {
		msg, err := client.ReadMsg()
		require.NoError(t, err)
		if len(msg.Entries) == 1 {
			assert.Equal(t, "streamed", msg.Entries[0].Text)
			return
		}
	}
}

func TestHTTPHandler(t *testing.T) {
	s, h, mem := startService(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, v := range []string{"a", "b", "c"} {
		copyText(t, h, mem, v)
	}

	do := func(method, path, body string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		require.NoError(t, err)
		res, err := srv.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = res.Body.Close() })
		return res
	}

	res := do(http.MethodPost, "/v1/history/3/select", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var e message.Entry
	require.NoError(t, json.NewDecoder(res.Body).Decode(&e))
	assert.Equal(t, "a", e.Text)

	res = do(http.MethodDelete, "/v1/history/42", "")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res = do(http.MethodDelete, "/v1/history/1", "")
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = do(http.MethodPut, "/v1/settings", `{"capacity":"x"}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = do(http.MethodPut, "/v1/settings", `{"capacity":2.5,"autostart":true}`)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.False(t, h.Settings().Autostart, "rejected request changes nothing")

	res = do(http.MethodPut, "/v1/settings", `{"capacity":1,"autostart":true}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var set message.Settings
	require.NoError(t, json.NewDecoder(res.Body).Decode(&set))
	assert.Equal(t, message.Settings{Capacity: 1, Autostart: true}, set)
	assert.Len(t, h.Snapshot(), 1)

	res = do(http.MethodGet, "/v1/status", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var st message.Status
	require.NoError(t, json.NewDecoder(res.Body).Decode(&st))
	assert.Equal(t, 1, st.Entries)

	res = do(http.MethodDelete, "/v1/history", "")
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
	assert.Empty(t, h.Snapshot())
}
