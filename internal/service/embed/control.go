package embed

import (
	"context"
	"fmt"
)

type Command string

const (
	CommandPlay         Command = "play"
	CommandPause        Command = "pause"
	CommandMute         Command = "mute"
	CommandUnmute       Command = "unmute"
	CommandShowControls Command = "show-controls"
	CommandHideControls Command = "hide-controls"
)

// Control issues a facade command. Commands never block on the player.
func (s *service) Control(ctx context.Context, params *ControlParams) error {
	e, err := s.getEmbed(params.EmbedID)
	if err != nil {
		return err
	}

	switch params.Command {
	case CommandPlay:
		e.player.Play(ctx)
	case CommandPause:
		e.player.Pause(ctx)
	case CommandMute:
		e.player.Mute(ctx)
	case CommandUnmute:
		e.player.Unmute(ctx)
	case CommandShowControls:
		e.player.ShowControls(ctx)
	case CommandHideControls:
		e.player.HideControls(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, params.Command)
	}

	return nil
}
