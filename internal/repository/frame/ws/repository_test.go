package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/playerbridge/internal/bridge"
	"github.com/sharetube/playerbridge/internal/repository/frame"
	"github.com/sharetube/playerbridge/pkg/playerproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relay struct {
	conn     *websocket.Conn
	messages chan playerproto.Message
	done     chan error
}

func newRepo() *repo {
	return NewRepo(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// connect serves the repo behind a websocket endpoint and dials it as a relay.
func connect(t *testing.T, r *repo, embedID string) *relay {
	t.Helper()

	rl := &relay{
		messages: make(chan playerproto.Message, 16),
		done:     make(chan error, 1),
	}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		rl.done <- r.Attach(context.Background(), embedID, conn, func(_ context.Context, msg playerproto.Message) error {
			rl.messages <- msg
			return nil
		})
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	rl.conn = conn

	return rl
}

func (rl *relay) read(t *testing.T) map[string]string {
	t.Helper()

	rl.conn.SetReadDeadline(time.Now().Add(time.Second))
	var out map[string]string
	require.NoError(t, rl.conn.ReadJSON(&out))
	return out
}

func TestAttachNavigatesAndLoads(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	f, err := r.Embed(ctx, bridge.FrameRequest{EmbedID: "e1", Src: "https://players.example/a"})
	require.NoError(t, err)
	assert.NotEmpty(t, f.Window())
	assert.True(t, r.Exists("e1"))

	rl := connect(t, r, "e1")
	assert.Equal(t, map[string]string{"type": "navigate", "src": "https://players.example/a"}, rl.read(t))

	var wg sync.WaitGroup
	wg.Add(1)
	var loadErr error
	go func() {
		defer wg.Done()
		loadCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		loadErr = f.Load(loadCtx)
	}()

	require.NoError(t, rl.conn.WriteJSON(map[string]string{"type": "load"}))
	wg.Wait()
	require.NoError(t, loadErr)

	require.NoError(t, f.PostMessage([]byte(`{"command":"play"}`), "*"))
	assert.Equal(t, map[string]string{
		"type":          "post",
		"target_origin": "*",
		"data":          `{"command":"play"}`,
	}, rl.read(t))

	require.NoError(t, f.Navigate("https://players.example/b"))
	assert.Equal(t, map[string]string{"type": "navigate", "src": "https://players.example/b"}, rl.read(t))
}

func TestNavigateBeforeAttach(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	f, err := r.Embed(ctx, bridge.FrameRequest{EmbedID: "e1", Src: "https://players.example/a"})
	require.NoError(t, err)
	require.NoError(t, f.Navigate("https://players.example/b"))

	rl := connect(t, r, "e1")
	assert.Equal(t, map[string]string{"type": "navigate", "src": "https://players.example/b"}, rl.read(t))
}

func TestInboundMessagesCarryWindow(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	f, err := r.Embed(ctx, bridge.FrameRequest{EmbedID: "e1", Src: "src"})
	require.NoError(t, err)

	rl := connect(t, r, "e1")
	rl.read(t)

	require.NoError(t, rl.conn.WriteJSON(map[string]any{
		"type":   "message",
		"origin": "https://players.example",
		"data":   `{"event":"ready"}`,
	}))
	require.NoError(t, rl.conn.WriteJSON(map[string]any{
		"type":   "message",
		"origin": "https://players.example",
		"data":   map[string]any{"event": "play", "playing": true},
	}))

	first := <-rl.messages
	assert.Equal(t, playerproto.Message{Origin: "https://players.example", Source: f.Window(), Data: `{"event":"ready"}`}, first)

	second := <-rl.messages
	assert.Equal(t, f.Window(), second.Source)
	assert.Equal(t, map[string]any{"event": "play", "playing": true}, second.Data)
}

func TestAttachErrors(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	err := r.Attach(ctx, "missing", nil, nil)
	assert.ErrorIs(t, err, frame.ErrFrameNotFound)

	f, err := r.Embed(ctx, bridge.FrameRequest{EmbedID: "e1", Src: "src"})
	require.NoError(t, err)
	assert.ErrorIs(t, f.PostMessage([]byte("pause"), "*"), frame.ErrFrameNotAttached)

	rl := connect(t, r, "e1")
	rl.read(t)

	second := connect(t, r, "e1")
	select {
	case err := <-second.done:
		assert.ErrorIs(t, err, frame.ErrFrameAlreadyAttached)
	case <-time.After(time.Second):
		t.Fatal("second relay was not rejected")
	}
}

func TestCloseEndsRelay(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	f, err := r.Embed(ctx, bridge.FrameRequest{EmbedID: "e1", Src: "src"})
	require.NoError(t, err)

	rl := connect(t, r, "e1")
	rl.read(t)

	require.NoError(t, f.Close())
	assert.False(t, r.Exists("e1"))

	select {
	case err := <-rl.done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay was not released")
	}

	assert.ErrorIs(t, f.Load(ctx), frame.ErrFrameClosed)
}

func TestEmbedReplacesFrame(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	first, err := r.Embed(ctx, bridge.FrameRequest{EmbedID: "e1", Src: "a"})
	require.NoError(t, err)
	second, err := r.Embed(ctx, bridge.FrameRequest{EmbedID: "e1", Src: "b"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Window(), second.Window())
	assert.ErrorIs(t, first.Load(ctx), frame.ErrFrameClosed)
	assert.True(t, r.Exists("e1"))
}

func TestDecodeData(t *testing.T) {
	assert.Nil(t, decodeData(nil))
	assert.Equal(t, "pause", decodeData(json.RawMessage(`"pause"`)))
	assert.Equal(t, map[string]any{"event": "ready"}, decodeData(json.RawMessage(`{"event":"ready"}`)))
}
