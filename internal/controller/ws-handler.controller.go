package controller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/playerbridge/internal/repository/frame"
	"github.com/sharetube/playerbridge/internal/service/embed"
	"github.com/sharetube/playerbridge/pkg/ctxlogger"
	"github.com/sharetube/playerbridge/pkg/wsrouter"
)

func isClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, net.ErrClosed)
}

// attachFrame serves the relay page that renders the player frame.
func (c controller) attachFrame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	embedID := c.getEmbedIDFromCtx(ctx)

	hasFrame, err := c.embedService.HasFrame(ctx, embedID)
	if err != nil {
		c.writeError(w, r, "attachFrame", err)
		return
	}
	if !hasFrame {
		c.writeError(w, r, "attachFrame", frame.ErrFrameNotFound)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx = context.WithoutCancel(ctx)
	if err := c.embedService.AttachFrame(ctx, embedID, conn); err != nil && !isClosed(err) {
		c.logger.InfoContext(ctx, "frame relay ended", "error", err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()))
		return
	}

	c.logger.InfoContext(ctx, "frame relay disconnected")
}

// subscribeHost streams notifications to a hosting document and accepts its
// control messages.
func (c controller) subscribeHost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	embedID := c.getEmbedIDFromCtx(ctx)

	if _, err := c.embedService.GetEmbed(ctx, embedID); err != nil {
		c.writeError(w, r, "subscribeHost", err)
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(ctx, "failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	ctx = context.WithoutCancel(ctx)
	if err := c.embedService.Subscribe(ctx, embedID, conn); err != nil {
		c.logger.InfoContext(ctx, "failed to subscribe host", "error", err)
		c.embedService.Unsubscribe(ctx, conn)
		return
	}
	defer func() {
		if err := c.embedService.Unsubscribe(ctx, conn); err != nil {
			c.logger.DebugContext(ctx, "failed to unsubscribe host", "error", err)
		}
	}()

	c.logger.InfoContext(ctx, "host subscribed")

	if err := c.getWSRouter().ServeConn(ctx, conn, c.handleWSError); err != nil && !isClosed(err) {
		c.logger.InfoContext(ctx, "host connection ended", "error", err)
	}
}

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Handle("PLAY", c.handleCommand(embed.CommandPlay))
	mux.Handle("PAUSE", c.handleCommand(embed.CommandPause))
	mux.Handle("MUTE", c.handleCommand(embed.CommandMute))
	mux.Handle("UNMUTE", c.handleCommand(embed.CommandUnmute))
	mux.Handle("SHOW_CONTROLS", c.handleCommand(embed.CommandShowControls))
	mux.Handle("HIDE_CONTROLS", c.handleCommand(embed.CommandHideControls))

	return mux
}

func (c controller) handleCommand(command embed.Command) wsrouter.HandlerFunc {
	return func(ctx context.Context, _ json.RawMessage) error {
		ctx = ctxlogger.AppendCtx(ctx, slog.String("ws_request_id", uuid.NewString()))
		ctx = ctxlogger.AppendCtx(ctx, slog.String("message_type", wsrouter.GetMessageTypeFromCtx(ctx)))
		c.logger.InfoContext(ctx, "websocket message received")

		return c.embedService.Control(ctx, &embed.ControlParams{
			EmbedID: c.getEmbedIDFromCtx(ctx),
			Command: command,
		})
	}
}

// handleWSError keeps the host connection open on bad messages.
func (c controller) handleWSError(ctx context.Context, err error) error {
	if errors.Is(err, embed.ErrEmbedNotFound) {
		return err
	}

	c.logger.InfoContext(ctx, "failed to handle websocket message",
		"message_type", wsrouter.GetMessageTypeFromCtx(ctx),
		"error", err,
	)
	return nil
}
