package embed

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sharetube/playerbridge/internal/repository/registry"
)

// HasFrame reports whether the embed has a frame waiting for or bound to a
// relay.
func (s *service) HasFrame(_ context.Context, embedID string) (bool, error) {
	if _, err := s.getEmbed(embedID); err != nil {
		return false, err
	}

	return s.frameRepo.Exists(embedID), nil
}

// AttachFrame serves a frame relay connection until it closes.
func (s *service) AttachFrame(ctx context.Context, embedID string, conn *websocket.Conn) error {
	if _, err := s.getEmbed(embedID); err != nil {
		return err
	}

	return s.frameRepo.Attach(ctx, embedID, conn, s.listenerRepo.Dispatch)
}

// Subscribe registers a host socket and greets it with the current snapshot.
func (s *service) Subscribe(_ context.Context, embedID string, conn *websocket.Conn) error {
	e, err := s.getEmbed(embedID)
	if err != nil {
		return err
	}

	if err := s.subscriberRepo.Add(conn, embedID); err != nil {
		return err
	}

	if err := s.subscriberRepo.Send(conn, &Output{Type: outputState, Payload: e.bridge.Snapshot()}); err != nil {
		return fmt.Errorf("failed to send state: %w", err)
	}

	return nil
}

func (s *service) Unsubscribe(_ context.Context, conn *websocket.Conn) error {
	return s.subscriberRepo.Remove(conn)
}

func (s *service) ListRegistered(ctx context.Context) ([]registry.Entry, error) {
	return s.registryRepo.List(ctx)
}
