package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/playerbridge/internal/repository/frame"
)

const (
	writeWait = 10 * time.Second
	closeWait = time.Second
)

type navigateOutput struct {
	Type string `json:"type"`
	Src  string `json:"src"`
}

type postOutput struct {
	Type         string `json:"type"`
	TargetOrigin string `json:"target_origin"`
	Data         string `json:"data"`
}

// wsFrame is a player frame rendered by a relay page on the other end of a
// websocket. The relay reports load and forwards cross-frame messages.
type wsFrame struct {
	window  string
	embedID string

	loaded    chan struct{}
	loadOnce  sync.Once
	closed    chan struct{}
	closeOnce sync.Once
	onClose   func()

	mu   sync.Mutex
	src  string
	conn *websocket.Conn
}

func newFrame(window, embedID, src string, onClose func()) *wsFrame {
	return &wsFrame{
		window:  window,
		embedID: embedID,
		src:     src,
		loaded:  make(chan struct{}),
		closed:  make(chan struct{}),
		onClose: onClose,
	}
}

func (f *wsFrame) Window() string {
	return f.window
}

// Load blocks until the relay reports the frame loaded.
func (f *wsFrame) Load(ctx context.Context) error {
	select {
	case <-f.loaded:
		return nil
	case <-f.closed:
		return frame.ErrFrameClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *wsFrame) PostMessage(data []byte, targetOrigin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.writeLocked(&postOutput{
		Type:         "post",
		TargetOrigin: targetOrigin,
		Data:         string(data),
	})
}

// Navigate points the frame at src. A relay attached later picks src up.
func (f *wsFrame) Navigate(src string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.src = src
	if f.conn == nil {
		return nil
	}
	return f.writeLocked(&navigateOutput{Type: "navigate", Src: src})
}

func (f *wsFrame) Close() error {
	var err error
	f.closeOnce.Do(func() {
		close(f.closed)
		if f.onClose != nil {
			f.onClose()
		}

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.conn != nil {
			f.conn.SetWriteDeadline(time.Now().Add(closeWait))
			f.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "frame destroyed"))
			err = f.conn.Close()
			f.conn = nil
		}
	})

	return err
}

func (f *wsFrame) attach(conn *websocket.Conn) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.closed:
		return frame.ErrFrameClosed
	default:
	}
	if f.conn != nil {
		return frame.ErrFrameAlreadyAttached
	}

	f.conn = conn
	return f.writeLocked(&navigateOutput{Type: "navigate", Src: f.src})
}

func (f *wsFrame) detach(conn *websocket.Conn) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == conn {
		f.conn = nil
	}
}

func (f *wsFrame) markLoaded() {
	f.loadOnce.Do(func() {
		close(f.loaded)
	})
}

func (f *wsFrame) writeLocked(v any) error {
	if f.conn == nil {
		return frame.ErrFrameNotAttached
	}

	f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return f.conn.WriteJSON(v)
}
