package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/playerbridge/internal/bridge"
	"github.com/sharetube/playerbridge/internal/repository/registry"
	"github.com/sharetube/playerbridge/internal/service/embed"
	"github.com/sharetube/playerbridge/pkg/validator"
)

type iEmbedService interface {
	CreateEmbed(context.Context, *embed.CreateEmbedParams) (embed.CreateEmbedResponse, error)
	CreateEmbedsFromMarkup(context.Context, *embed.CreateEmbedsFromMarkupParams) (embed.CreateEmbedsFromMarkupResponse, error)
	GetEmbed(ctx context.Context, embedID string) (bridge.Snapshot, error)
	ListEmbeds(context.Context) []bridge.Snapshot
	RemoveEmbed(ctx context.Context, embedID string) error
	LayoutEmbed(ctx context.Context, embedID string) error
	UnlayoutEmbed(ctx context.Context, embedID string) (embed.UnlayoutEmbedResponse, error)
	PauseEmbed(ctx context.Context, embedID string) error
	Control(context.Context, *embed.ControlParams) error
	RetargetEmbed(context.Context, *embed.RetargetEmbedParams) (embed.RetargetEmbedResponse, error)
	HasFrame(ctx context.Context, embedID string) (bool, error)
	AttachFrame(ctx context.Context, embedID string, conn *websocket.Conn) error
	Subscribe(ctx context.Context, embedID string, conn *websocket.Conn) error
	Unsubscribe(ctx context.Context, conn *websocket.Conn) error
	ListRegistered(context.Context) ([]registry.Entry, error)
}

type controller struct {
	embedService iEmbedService
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	logger       *slog.Logger
}

func NewController(embedService iEmbedService, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		embedService: embedService,
		validate:     validator.NewValidator(),
		logger:       logger,
	}
}
