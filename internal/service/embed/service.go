package embed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/playerbridge/internal/bridge"
	"github.com/sharetube/playerbridge/internal/repository/registry"
	"github.com/sharetube/playerbridge/pkg/playerproto"
)

const outputState = "STATE"

var (
	ErrEmbedNotFound  = errors.New("embed not found")
	ErrUnknownCommand = errors.New("unknown command")
)

type iFrameRepo interface {
	Embed(context.Context, bridge.FrameRequest) (bridge.Frame, error)
	Exists(embedID string) bool
	Attach(ctx context.Context, embedID string, conn *websocket.Conn, dispatch func(context.Context, playerproto.Message) error) error
}

type iListenerRepo interface {
	Add(window string, handler playerproto.HandlerFunc) error
	Remove(window string) error
	Dispatch(context.Context, playerproto.Message) error
}

type iRegistryRepo interface {
	Register(ctx context.Context, embedID string) error
	Unregister(ctx context.Context, embedID string) error
	List(context.Context) ([]registry.Entry, error)
}

type iSubscriberRepo interface {
	Add(conn *websocket.Conn, embedID string) error
	Remove(conn *websocket.Conn) error
	RemoveByEmbedID(embedID string) int
	Send(conn *websocket.Conn, v any) error
	Broadcast(ctx context.Context, embedID string, v any) error
}

type Config struct {
	PlayerOrigin  string
	ReadyTimeout  time.Duration
	LayoutTimeout time.Duration
}

type embed struct {
	bridge *bridge.Bridge
	player *bridge.Player
}

type service struct {
	frameRepo      iFrameRepo
	listenerRepo   iListenerRepo
	registryRepo   iRegistryRepo
	subscriberRepo iSubscriberRepo
	cfg            *Config
	embeds         map[string]*embed
	mu             sync.RWMutex
	logger         *slog.Logger
}

func NewService(
	frameRepo iFrameRepo,
	listenerRepo iListenerRepo,
	registryRepo iRegistryRepo,
	subscriberRepo iSubscriberRepo,
	cfg *Config,
	logger *slog.Logger,
) *service {
	return &service{
		frameRepo:      frameRepo,
		listenerRepo:   listenerRepo,
		registryRepo:   registryRepo,
		subscriberRepo: subscriberRepo,
		cfg:            cfg,
		embeds:         make(map[string]*embed),
		logger:         logger,
	}
}

func (s *service) getEmbed(embedID string) (*embed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.embeds[embedID]
	if !ok {
		return nil, ErrEmbedNotFound
	}

	return e, nil
}

// Notify forwards a bridge notification to the host sockets of the embed.
func (s *service) Notify(ctx context.Context, embedID string, n bridge.Notification) {
	out := &Output{Type: string(n.Type)}
	if n.Type == bridge.NotificationVisibility {
		out.Payload = VisibilityPayload{Visible: n.Visible}
	}

	if err := s.subscriberRepo.Broadcast(ctx, embedID, out); err != nil {
		s.logger.WarnContext(ctx, "failed to notify host", "embed_id", embedID, "type", n.Type, "error", err)
	}
}

// Close tears down every live embed.
func (s *service) Close(ctx context.Context) error {
	s.mu.Lock()
	embeds := s.embeds
	s.embeds = make(map[string]*embed)
	s.mu.Unlock()

	var errs []error
	for id, e := range embeds {
		if err := e.bridge.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		s.subscriberRepo.RemoveByEmbedID(id)
	}

	return errors.Join(errs...)
}
