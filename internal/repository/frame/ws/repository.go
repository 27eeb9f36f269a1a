package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/playerbridge/internal/bridge"
	"github.com/sharetube/playerbridge/internal/repository/frame"
	"github.com/sharetube/playerbridge/pkg/playerproto"
)

type input struct {
	Type   string          `json:"type"`
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

// repo holds the current frame of every embed until its relay connects.
type repo struct {
	frames map[string]*wsFrame
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		frames: make(map[string]*wsFrame),
		logger: logger,
	}
}

// Embed creates a frame for the embed, replacing any previous one.
func (r *repo) Embed(ctx context.Context, req bridge.FrameRequest) (bridge.Frame, error) {
	funcName := "frame.ws.Embed"
	r.logger.DebugContext(ctx, funcName, "embed_id", req.EmbedID, "src", req.Src)

	f := newFrame(uuid.NewString(), req.EmbedID, req.Src, nil)
	f.onClose = func() { r.remove(f) }

	r.mu.Lock()
	previous := r.frames[req.EmbedID]
	r.frames[req.EmbedID] = f
	r.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	r.logger.DebugContext(ctx, funcName, "window", f.window)
	return f, nil
}

func (r *repo) Exists(embedID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.frames[embedID]
	return ok
}

// Attach binds conn as the relay of the current frame of the embed and
// serves it until the connection fails or the frame is destroyed. Inbound
// messages are stamped with the frame window before dispatch.
func (r *repo) Attach(ctx context.Context, embedID string, conn *websocket.Conn, dispatch func(context.Context, playerproto.Message) error) error {
	funcName := "frame.ws.Attach"
	r.mu.RLock()
	f, ok := r.frames[embedID]
	r.mu.RUnlock()

	if !ok {
		r.logger.InfoContext(ctx, funcName, "embed_id", embedID, "error", frame.ErrFrameNotFound)
		return frame.ErrFrameNotFound
	}

	if err := f.attach(conn); err != nil {
		r.logger.InfoContext(ctx, funcName, "embed_id", embedID, "error", err)
		return err
	}
	defer f.detach(conn)

	r.logger.InfoContext(ctx, "frame relay attached", "embed_id", embedID, "window", f.window)

	for {
		var in input
		if err := conn.ReadJSON(&in); err != nil {
			select {
			case <-f.closed:
				return nil
			default:
				return err
			}
		}

		switch in.Type {
		case "load":
			f.markLoaded()
		case "message":
			msg := playerproto.Message{
				Origin: in.Origin,
				Source: f.window,
				Data:   decodeData(in.Data),
			}
			if err := dispatch(ctx, msg); err != nil {
				r.logger.DebugContext(ctx, funcName, "window", f.window, "error", err)
			}
		default:
			r.logger.DebugContext(ctx, funcName, "unknown_type", in.Type)
		}
	}
}

func (r *repo) remove(f *wsFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frames[f.embedID] == f {
		delete(r.frames, f.embedID)
	}
}

// decodeData keeps string payloads as text and structured payloads as
// decoded objects, mirroring what a postMessage listener receives.
func decodeData(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	return v
}
