package embed

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/sharetube/playerbridge/internal/bridge"
	"github.com/sharetube/playerbridge/pkg/embedurl"
	"github.com/sharetube/playerbridge/pkg/hostmarkup"
)

// CreateEmbed checks the configuration, builds a bridge and returns the
// source its frame will load.
func (s *service) CreateEmbed(ctx context.Context, params *CreateEmbedParams) (CreateEmbedResponse, error) {
	src, err := embedurl.Src(s.cfg.PlayerOrigin, params.Element, params.Target, params.Params)
	if err != nil {
		return CreateEmbedResponse{}, err
	}

	embedID := uuid.NewString()
	b := bridge.New(&bridge.Params{
		ID:      embedID,
		Element: params.Element,
		Target:  params.Target,
		Params:  params.Params,
	}, bridge.Config{
		PlayerOrigin: s.cfg.PlayerOrigin,
		ReadyTimeout: s.cfg.ReadyTimeout,
	}, s.frameRepo, s.registryRepo, s, s.listenerRepo, s.logger)

	s.mu.Lock()
	s.embeds[embedID] = &embed{bridge: b, player: bridge.NewPlayer(b)}
	s.mu.Unlock()

	if err := b.Build(ctx); err != nil {
		s.mu.Lock()
		delete(s.embeds, embedID)
		s.mu.Unlock()
		return CreateEmbedResponse{}, fmt.Errorf("failed to build embed: %w", err)
	}

	s.logger.InfoContext(ctx, "embed created", "embed_id", embedID, "src", src)
	return CreateEmbedResponse{
		EmbedID: embedID,
		Element: params.Element,
		Src:     src,
	}, nil
}

// CreateEmbedsFromMarkup creates one embed per host element. Nothing is
// created when any element is misconfigured.
func (s *service) CreateEmbedsFromMarkup(ctx context.Context, params *CreateEmbedsFromMarkupParams) (CreateEmbedsFromMarkupResponse, error) {
	tag := params.Tag
	if tag == "" {
		tag = hostmarkup.DefaultTag
	}

	elements, err := hostmarkup.Parse(params.Markup, tag)
	if err != nil {
		return CreateEmbedsFromMarkupResponse{}, err
	}

	createParams := make([]*CreateEmbedParams, 0, len(elements))
	for _, el := range elements {
		p := &CreateEmbedParams{
			Element: el.Name(tag),
			Target: embedurl.Target{
				AccountID:  el.AccountID,
				PlayerID:   el.PlayerID,
				EmbedID:    el.EmbedID,
				VideoID:    el.VideoID,
				PlaylistID: el.PlaylistID,
			},
			Params: el.Params,
		}
		if _, err := embedurl.Src(s.cfg.PlayerOrigin, p.Element, p.Target, p.Params); err != nil {
			return CreateEmbedsFromMarkupResponse{}, err
		}
		createParams = append(createParams, p)
	}

	resp := CreateEmbedsFromMarkupResponse{Embeds: make([]CreateEmbedResponse, 0, len(createParams))}
	for _, p := range createParams {
		created, err := s.CreateEmbed(ctx, p)
		if err != nil {
			return CreateEmbedsFromMarkupResponse{}, err
		}
		resp.Embeds = append(resp.Embeds, created)
	}

	return resp, nil
}

func (s *service) GetEmbed(_ context.Context, embedID string) (bridge.Snapshot, error) {
	e, err := s.getEmbed(embedID)
	if err != nil {
		return bridge.Snapshot{}, err
	}

	return e.bridge.Snapshot(), nil
}

// ListEmbeds returns snapshots of every live embed ordered by id.
func (s *service) ListEmbeds(_ context.Context) []bridge.Snapshot {
	s.mu.RLock()
	snapshots := make([]bridge.Snapshot, 0, len(s.embeds))
	for _, e := range s.embeds {
		snapshots = append(snapshots, e.bridge.Snapshot())
	}
	s.mu.RUnlock()

	slices.SortFunc(snapshots, func(a, b bridge.Snapshot) int {
		return strings.Compare(a.ID, b.ID)
	})

	return snapshots
}

func (s *service) RetargetEmbed(ctx context.Context, params *RetargetEmbedParams) (RetargetEmbedResponse, error) {
	e, err := s.getEmbed(params.EmbedID)
	if err != nil {
		return RetargetEmbedResponse{}, err
	}

	src, err := e.bridge.Retarget(ctx, params.Target, params.Params)
	if err != nil {
		return RetargetEmbedResponse{}, err
	}

	return RetargetEmbedResponse{Src: src}, nil
}

// RemoveEmbed is the terminal teardown: the frame, its listener, the
// registry entry and the host sockets all go away.
func (s *service) RemoveEmbed(ctx context.Context, embedID string) error {
	s.mu.Lock()
	e, ok := s.embeds[embedID]
	delete(s.embeds, embedID)
	s.mu.Unlock()

	if !ok {
		return ErrEmbedNotFound
	}

	err := e.bridge.Close(ctx)
	removed := s.subscriberRepo.RemoveByEmbedID(embedID)
	s.logger.InfoContext(ctx, "embed removed", "embed_id", embedID, "subscribers", removed)

	if err != nil {
		return fmt.Errorf("failed to close embed: %w", err)
	}

	return nil
}
