package inmemory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/playerbridge/internal/repository/subscriber"
)

const writeWait = 10 * time.Second

type conn struct {
	ws      *websocket.Conn
	embedID string
	mu      sync.Mutex
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

// repo tracks host sockets subscribed to the notifications of an embed.
type repo struct {
	conns   map[*websocket.Conn]*conn
	byEmbed map[string][]*conn
	mu      sync.RWMutex
	logger  *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		conns:   make(map[*websocket.Conn]*conn),
		byEmbed: make(map[string][]*conn),
		logger:  logger,
	}
}

func (r *repo) Add(ws *websocket.Conn, embedID string) error {
	funcName := "subscriber.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "embed_id", embedID)
	if _, ok := r.conns[ws]; ok {
		r.logger.Info(funcName, "error", subscriber.ErrSubscriberAlreadyExists)
		return subscriber.ErrSubscriberAlreadyExists
	}

	c := &conn{ws: ws, embedID: embedID}
	r.conns[ws] = c
	r.byEmbed[embedID] = append(r.byEmbed[embedID], c)

	r.logger.Debug(funcName, "result", "OK")
	return nil
}

func (r *repo) Remove(ws *websocket.Conn) error {
	funcName := "subscriber.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName)
	c, ok := r.conns[ws]
	if !ok {
		r.logger.Info(funcName, "error", subscriber.ErrSubscriberNotFound)
		return subscriber.ErrSubscriberNotFound
	}

	delete(r.conns, ws)
	subs := r.byEmbed[c.embedID]
	for i, s := range subs {
		if s == c {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(r.byEmbed, c.embedID)
	} else {
		r.byEmbed[c.embedID] = subs
	}

	r.logger.Debug(funcName, "result", c.embedID)
	return nil
}

// RemoveByEmbedID drops and closes every subscriber of the embed.
func (r *repo) RemoveByEmbedID(embedID string) int {
	funcName := "subscriber.inmemory.RemoveByEmbedID"
	r.mu.Lock()
	subs := r.byEmbed[embedID]
	delete(r.byEmbed, embedID)
	for _, c := range subs {
		delete(r.conns, c.ws)
	}
	r.mu.Unlock()

	for _, c := range subs {
		c.ws.Close()
	}

	r.logger.Debug(funcName, "embed_id", embedID, "removed", len(subs))
	return len(subs)
}

// Send writes v to a single subscriber.
func (r *repo) Send(ws *websocket.Conn, v any) error {
	r.mu.RLock()
	c, ok := r.conns[ws]
	r.mu.RUnlock()

	if !ok {
		return subscriber.ErrSubscriberNotFound
	}

	return c.writeJSON(v)
}

// Broadcast writes v to every subscriber of the embed. A failed write does
// not stop delivery to the others.
func (r *repo) Broadcast(ctx context.Context, embedID string, v any) error {
	funcName := "subscriber.inmemory.Broadcast"
	r.mu.RLock()
	subs := append([]*conn(nil), r.byEmbed[embedID]...)
	r.mu.RUnlock()

	var errs []error
	for _, c := range subs {
		if err := c.writeJSON(v); err != nil {
			errs = append(errs, err)
		}
	}

	r.logger.DebugContext(ctx, funcName, "embed_id", embedID, "subscribers", len(subs), "failed", len(errs))
	return errors.Join(errs...)
}
