package embed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/playerbridge/internal/bridge"
	listenerInmemory "github.com/sharetube/playerbridge/internal/repository/listener/inmemory"
	registryRedis "github.com/sharetube/playerbridge/internal/repository/registry/redis"
	subscriberInmemory "github.com/sharetube/playerbridge/internal/repository/subscriber/inmemory"
	"github.com/sharetube/playerbridge/pkg/embedurl"
	"github.com/sharetube/playerbridge/pkg/playerproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const playerOrigin = "https://players.brightcove.net"

type fakeFrame struct {
	window string

	mu     sync.Mutex
	posts  []string
	closed bool
}

func (f *fakeFrame) Window() string             { return f.window }
func (f *fakeFrame) Load(context.Context) error { return nil }
func (f *fakeFrame) Navigate(string) error      { return nil }

func (f *fakeFrame) PostMessage(data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, string(data))
	return nil
}

func (f *fakeFrame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeFrame) Posts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.posts...)
}

type fakeFrameRepo struct {
	mu     sync.Mutex
	frames map[string]*fakeFrame
}

func (r *fakeFrameRepo) Embed(_ context.Context, req bridge.FrameRequest) (bridge.Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := &fakeFrame{window: "window-" + req.EmbedID}
	r.frames[req.EmbedID] = f
	return f, nil
}

func (r *fakeFrameRepo) Attach(context.Context, string, *websocket.Conn, func(context.Context, playerproto.Message) error) error {
	return nil
}

func (r *fakeFrameRepo) Exists(embedID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.frames[embedID]
	return ok
}

func (r *fakeFrameRepo) frame(embedID string) *fakeFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[embedID]
}

type fixture struct {
	service   *service
	frames    *fakeFrameRepo
	listeners interface {
		Dispatch(context.Context, playerproto.Message) error
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	frames := &fakeFrameRepo{frames: make(map[string]*fakeFrame)}
	listeners := listenerInmemory.NewRepo(logger)
	svc := NewService(
		frames,
		listeners,
		registryRedis.NewRepo(rc, "test", logger),
		subscriberInmemory.NewRepo(logger),
		&Config{PlayerOrigin: playerOrigin, LayoutTimeout: time.Second},
		logger,
	)

	return &fixture{service: svc, frames: frames, listeners: listeners}
}

func (f *fixture) send(t *testing.T, embedID, data string) {
	t.Helper()
	require.NoError(t, f.listeners.Dispatch(context.Background(), playerproto.Message{
		Origin: playerOrigin,
		Source: f.frames.frame(embedID).window,
		Data:   data,
	}))
}

func (f *fixture) create(t *testing.T) string {
	t.Helper()
	resp, err := f.service.CreateEmbed(context.Background(), &CreateEmbedParams{
		Element: "player",
		Target:  embedurl.Target{AccountID: "A", VideoID: "v1"},
	})
	require.NoError(t, err)
	return resp.EmbedID
}

func TestCreateEmbed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.CreateEmbed(ctx, &CreateEmbedParams{
		Element: "player",
		Target:  embedurl.Target{AccountID: "A", PlayerID: "p", VideoID: "v1", PlaylistID: "pl"},
		Params:  map[string]string{"language": "de"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.EmbedID)
	assert.Equal(t, "https://players.brightcove.net/A/p_default/index.html?playlistId=pl&language=de&playsinline=true", resp.Src)

	snapshot, err := f.service.GetEmbed(ctx, resp.EmbedID)
	require.NoError(t, err)
	assert.Equal(t, bridge.StateBuilt.String(), snapshot.State)
	assert.Equal(t, resp.Src, snapshot.Src)
}

func TestCreateEmbedConfigErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateEmbed(ctx, &CreateEmbedParams{Element: "player", Target: embedurl.Target{VideoID: "v1"}})
	assert.ErrorIs(t, err, embedurl.ErrMissingAccount)

	_, err = f.service.CreateEmbed(ctx, &CreateEmbedParams{
		Element: "player",
		Target:  embedurl.Target{AccountID: "A"},
		Params:  map[string]string{"Autoplay": "1"},
	})
	assert.ErrorIs(t, err, embedurl.ErrAutoplayParam)
	var configErr *embedurl.ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, "player", configErr.Element)

	assert.Empty(t, f.service.ListEmbeds(ctx))
}

func TestCreateEmbedsFromMarkup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	markup := `<body>
		<amp-brightcove id="first" data-account="A" data-video-id="v1" data-param-language="en"></amp-brightcove>
		<amp-brightcove data-account="A" data-player="p" data-playlist-id="ref:list"></amp-brightcove>
	</body>`
	resp, err := f.service.CreateEmbedsFromMarkup(ctx, &CreateEmbedsFromMarkupParams{Markup: strings.NewReader(markup)})
	require.NoError(t, err)
	require.Len(t, resp.Embeds, 2)
	assert.Equal(t, "https://players.brightcove.net/A/default_default/index.html?videoId=v1&language=en&playsinline=true", resp.Embeds[0].Src)
	assert.Equal(t, `<amp-brightcove id="first">`, resp.Embeds[0].Element)
	assert.Equal(t, "https://players.brightcove.net/A/p_default/index.html?playlistId=ref:list&playsinline=true", resp.Embeds[1].Src)
	assert.Len(t, f.service.ListEmbeds(ctx), 2)
}

func TestCreateEmbedsFromMarkupIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	markup := `<amp-brightcove data-account="A" data-video-id="v1"></amp-brightcove>
		<amp-brightcove id="broken" data-video-id="v2"></amp-brightcove>`
	_, err := f.service.CreateEmbedsFromMarkup(ctx, &CreateEmbedsFromMarkupParams{Markup: strings.NewReader(markup)})
	require.Error(t, err)
	assert.ErrorIs(t, err, embedurl.ErrMissingAccount)
	assert.Contains(t, err.Error(), `id="broken"`)
	assert.Empty(t, f.service.ListEmbeds(ctx))
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	embedID := f.create(t)

	require.NoError(t, f.service.Control(ctx, &ControlParams{EmbedID: embedID, Command: CommandMute}))
	require.NoError(t, f.service.LayoutEmbed(ctx, embedID))

	frame := f.frames.frame(embedID)
	assert.Equal(t, []string{`{"command":"muted","args":true}`}, frame.Posts())

	hasFrame, err := f.service.HasFrame(ctx, embedID)
	require.NoError(t, err)
	assert.True(t, hasFrame)

	f.send(t, embedID, `{"event":"ready"}`)
	registered, err := f.service.ListRegistered(ctx)
	require.NoError(t, err)
	require.Len(t, registered, 1)
	assert.Equal(t, embedID, registered[0].EmbedID)

	f.send(t, embedID, `{"event":"play","playing":true}`)
	require.NoError(t, f.service.PauseEmbed(ctx, embedID))
	assert.Equal(t, `{"command":"pause","args":""}`, frame.Posts()[1])

	unlayout, err := f.service.UnlayoutEmbed(ctx, embedID)
	require.NoError(t, err)
	assert.False(t, unlayout.Destroyed)

	require.NoError(t, f.service.RemoveEmbed(ctx, embedID))
	assert.True(t, frame.closed)

	registered, err = f.service.ListRegistered(ctx)
	require.NoError(t, err)
	assert.Empty(t, registered)

	_, err = f.service.GetEmbed(ctx, embedID)
	assert.ErrorIs(t, err, ErrEmbedNotFound)
	assert.ErrorIs(t, f.service.RemoveEmbed(ctx, embedID), ErrEmbedNotFound)
}

func TestLegacyUnlayout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	embedID := f.create(t)

	require.NoError(t, f.service.LayoutEmbed(ctx, embedID))
	require.NoError(t, f.service.PauseEmbed(ctx, embedID))
	frame := f.frames.frame(embedID)
	assert.Equal(t, []string{playerproto.LegacyPause}, frame.Posts())

	unlayout, err := f.service.UnlayoutEmbed(ctx, embedID)
	require.NoError(t, err)
	assert.True(t, unlayout.Destroyed)
	assert.True(t, frame.closed)

	snapshot, err := f.service.GetEmbed(ctx, embedID)
	require.NoError(t, err)
	assert.Equal(t, bridge.StateUnlaid.String(), snapshot.State)
}

func TestControlUnknownCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	embedID := f.create(t)

	assert.ErrorIs(t, f.service.Control(ctx, &ControlParams{EmbedID: embedID, Command: "rewind"}), ErrUnknownCommand)
	assert.ErrorIs(t, f.service.Control(ctx, &ControlParams{EmbedID: "missing", Command: CommandPlay}), ErrEmbedNotFound)
}

func TestRetargetEmbed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	embedID := f.create(t)

	resp, err := f.service.RetargetEmbed(ctx, &RetargetEmbedParams{
		EmbedID: embedID,
		Target:  embedurl.Target{AccountID: "B", VideoID: "v2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://players.brightcove.net/B/default_default/index.html?videoId=v2&playsinline=true", resp.Src)

	_, err = f.service.RetargetEmbed(ctx, &RetargetEmbedParams{
		EmbedID: embedID,
		Target:  embedurl.Target{AccountID: "B"},
		Params:  map[string]string{"autoplay": "true"},
	})
	assert.ErrorIs(t, err, embedurl.ErrAutoplayParam)
}

func TestMissingEmbed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.service.LayoutEmbed(ctx, "missing"), ErrEmbedNotFound)
	assert.ErrorIs(t, f.service.PauseEmbed(ctx, "missing"), ErrEmbedNotFound)
	assert.ErrorIs(t, f.service.AttachFrame(ctx, "missing", nil), ErrEmbedNotFound)
	assert.ErrorIs(t, f.service.Subscribe(ctx, "missing", nil), ErrEmbedNotFound)
	_, err := f.service.UnlayoutEmbed(ctx, "missing")
	assert.ErrorIs(t, err, ErrEmbedNotFound)
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t)
	f.create(t)

	require.NoError(t, f.service.Close(ctx))
	assert.Empty(t, f.service.ListEmbeds(ctx))
}
