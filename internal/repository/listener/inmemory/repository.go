package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sharetube/playerbridge/internal/repository/listener"
	"github.com/sharetube/playerbridge/pkg/playerproto"
)

// repo routes frame messages to the handler bound to the sending window.
type repo struct {
	handlers map[string]playerproto.HandlerFunc
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		handlers: make(map[string]playerproto.HandlerFunc),
		logger:   logger,
	}
}

func (r *repo) Add(window string, handler playerproto.HandlerFunc) error {
	funcName := "listener.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "window", window)
	if _, ok := r.handlers[window]; ok {
		r.logger.Info(funcName, "error", listener.ErrListenerAlreadyExists)
		return listener.ErrListenerAlreadyExists
	}

	r.handlers[window] = handler

	r.logger.Debug(funcName, "result", "OK")
	return nil
}

func (r *repo) Remove(window string) error {
	funcName := "listener.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "window", window)
	if _, ok := r.handlers[window]; !ok {
		r.logger.Info(funcName, "error", listener.ErrListenerNotFound)
		return listener.ErrListenerNotFound
	}

	delete(r.handlers, window)

	r.logger.Debug(funcName, "result", "OK")
	return nil
}

// Dispatch hands msg to the handler of its source window. The handler runs
// outside the table lock so it may add or remove listeners.
func (r *repo) Dispatch(ctx context.Context, msg playerproto.Message) error {
	funcName := "listener.inmemory.Dispatch"
	r.mu.RLock()
	handler, ok := r.handlers[msg.Source]
	r.mu.RUnlock()

	if !ok {
		r.logger.DebugContext(ctx, funcName, "source", msg.Source, "error", listener.ErrListenerNotFound)
		return listener.ErrListenerNotFound
	}

	handler(ctx, msg)
	return nil
}
