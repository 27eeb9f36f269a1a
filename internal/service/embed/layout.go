package embed

import (
	"context"
	"fmt"
)

// LayoutEmbed creates the frame and waits for its relay to load it.
func (s *service) LayoutEmbed(ctx context.Context, embedID string) error {
	e, err := s.getEmbed(embedID)
	if err != nil {
		return err
	}

	if s.cfg.LayoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LayoutTimeout)
		defer cancel()
	}

	if err := e.bridge.Layout(ctx); err != nil {
		return fmt.Errorf("failed to lay out embed: %w", err)
	}

	return nil
}

func (s *service) UnlayoutEmbed(ctx context.Context, embedID string) (UnlayoutEmbedResponse, error) {
	e, err := s.getEmbed(embedID)
	if err != nil {
		return UnlayoutEmbedResponse{}, err
	}

	return UnlayoutEmbedResponse{Destroyed: e.bridge.Unlayout(ctx)}, nil
}

func (s *service) PauseEmbed(ctx context.Context, embedID string) error {
	e, err := s.getEmbed(embedID)
	if err != nil {
		return err
	}

	e.bridge.RequestPause(ctx)
	return nil
}
