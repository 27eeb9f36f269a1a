package bridge

import (
	"context"

	"github.com/sharetube/playerbridge/pkg/playerproto"
)

// Player is the playback control surface of an embed. Every control except
// HideControls is queued behind the bridge ready signal; calls never block.
type Player struct {
	bridge *Bridge
}

func NewPlayer(b *Bridge) *Player {
	return &Player{bridge: b}
}

func (p *Player) SupportsPlatform() bool {
	return true
}

func (p *Player) IsInteractive() bool {
	return true
}

func (p *Player) Play(ctx context.Context) {
	p.whenReady(ctx, playerproto.CommandPlay, nil)
}

func (p *Player) Pause(ctx context.Context) {
	p.whenReady(ctx, playerproto.CommandPause, nil)
}

func (p *Player) Mute(ctx context.Context) {
	p.whenReady(ctx, playerproto.CommandMuted, true)
}

func (p *Player) Unmute(ctx context.Context) {
	p.whenReady(ctx, playerproto.CommandMuted, false)
}

func (p *Player) ShowControls(ctx context.Context) {
	p.whenReady(ctx, playerproto.CommandShowControls, nil)
}

// HideControls is accepted by players before the handshake.
func (p *Player) HideControls(ctx context.Context) {
	p.bridge.sendCommand(ctx, playerproto.CommandHideControls, nil)
}

func (p *Player) whenReady(ctx context.Context, command string, args any) {
	ctx = context.WithoutCancel(ctx)
	p.bridge.ready.Then(func(struct{}) {
		p.bridge.sendCommand(ctx, command, args)
	})
}
