// Package bridge drives an embedded third-party player through its
// cross-frame message protocol. A Bridge owns the frame, the ready
// handshake and the last known playback and mute flags of one embed.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sharetube/playerbridge/pkg/embedurl"
	"github.com/sharetube/playerbridge/pkg/omitnil"
	"github.com/sharetube/playerbridge/pkg/oneshot"
	"github.com/sharetube/playerbridge/pkg/playerproto"
)

var ErrInvalidState = errors.New("invalid bridge state")

type State int

const (
	StateUnbuilt State = iota
	StateBuilt
	StateAwaitingReady
	StateBound
	StateUnlaid
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateBuilt:
		return "built"
	case StateAwaitingReady:
		return "awaiting_ready"
	case StateBound:
		return "bound"
	case StateUnlaid:
		return "unlaid"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Frame is an embedded player frame. Window identifies its message target
// and is the Source of every message the frame sends.
type Frame interface {
	Window() string
	Load(ctx context.Context) error
	PostMessage(data []byte, targetOrigin string) error
	Navigate(src string) error
	Close() error
}

type FrameRequest struct {
	EmbedID string
	Src     string
}

type iEmbedder interface {
	Embed(ctx context.Context, req FrameRequest) (Frame, error)
}

type iRegistry interface {
	Register(ctx context.Context, embedID string) error
	Unregister(ctx context.Context, embedID string) error
}

type iNotifier interface {
	Notify(ctx context.Context, embedID string, n Notification)
}

type iDispatcher interface {
	Add(window string, handler playerproto.HandlerFunc) error
	Remove(window string) error
}

type Config struct {
	PlayerOrigin string
	ReadyTimeout time.Duration
}

type Params struct {
	ID      string
	Element string
	Target  embedurl.Target
	Params  map[string]string
}

type Snapshot struct {
	ID         string          `json:"id"`
	State      string          `json:"state"`
	AMPSupport bool            `json:"amp_support"`
	Playing    bool            `json:"playing"`
	Muted      bool            `json:"muted"`
	Target     embedurl.Target `json:"target"`
	Src        string          `json:"src"`
}

type Bridge struct {
	id         string
	element    string
	cfg        Config
	embedder   iEmbedder
	registry   iRegistry
	notifier   iNotifier
	dispatcher iDispatcher
	logger     *slog.Logger
	ready      *oneshot.Signal[struct{}]

	mu         sync.Mutex
	state      State
	target     embedurl.Target
	params     map[string]string
	frame      Frame
	loaded     bool
	outbox     [][]byte
	readyTimer *time.Timer
	readyGen   uint64
	flags      flags
	closed     bool
}

func New(
	params *Params,
	cfg Config,
	embedder iEmbedder,
	registry iRegistry,
	notifier iNotifier,
	dispatcher iDispatcher,
	logger *slog.Logger,
) *Bridge {
	return &Bridge{
		id:         params.ID,
		element:    params.Element,
		cfg:        cfg,
		embedder:   embedder,
		registry:   registry,
		notifier:   notifier,
		dispatcher: dispatcher,
		logger:     logger.With("embed_id", params.ID),
		ready:      oneshot.New[struct{}](),
		state:      StateUnbuilt,
		target:     params.Target,
		params:     params.Params,
	}
}

func (b *Bridge) ID() string {
	return b.id
}

// Src returns the frame source for the current target.
func (b *Bridge) Src() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.srcLocked()
}

func (b *Bridge) srcLocked() (string, error) {
	return embedurl.Src(b.cfg.PlayerOrigin, b.element, b.target, b.params)
}

func (b *Bridge) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, _ := b.srcLocked()
	return Snapshot{
		ID:         b.id,
		State:      b.state.String(),
		AMPSupport: b.flags.AMPSupport,
		Playing:    b.flags.Playing,
		Muted:      b.flags.Muted,
		Target:     b.target.WithDefaults(),
		Src:        src,
	}
}

// Build arms the ready diagnostic and resolves the ready signal, releasing
// every command queued behind it.
func (b *Bridge) Build(ctx context.Context) error {
	b.mu.Lock()
	if b.state != StateUnbuilt {
		b.mu.Unlock()
		return fmt.Errorf("%w: cannot build in state %s", ErrInvalidState, b.state)
	}
	b.state = StateBuilt
	b.armReadyTimerLocked(ctx)
	b.mu.Unlock()

	b.ready.Resolve(struct{}{})
	return nil
}

// Layout creates the frame, binds it to the dispatch table and waits for it
// to load. Configuration errors abort before any frame exists.
func (b *Bridge) Layout(ctx context.Context) error {
	b.mu.Lock()
	if b.closed || (b.state != StateBuilt && b.state != StateUnlaid) {
		state := b.state
		b.mu.Unlock()
		return fmt.Errorf("%w: cannot lay out in state %s", ErrInvalidState, state)
	}
	src, err := b.srcLocked()
	if err != nil {
		b.mu.Unlock()
		return err
	}
	previous := b.state
	b.mu.Unlock()

	frame, err := b.embedder.Embed(ctx, FrameRequest{EmbedID: b.id, Src: src})
	if err != nil {
		return fmt.Errorf("failed to embed frame: %w", err)
	}

	b.mu.Lock()
	if b.closed || b.state != previous {
		b.mu.Unlock()
		frame.Close()
		return fmt.Errorf("%w: bridge changed during layout", ErrInvalidState)
	}
	if err := b.dispatcher.Add(frame.Window(), b.HandleMessage); err != nil {
		b.mu.Unlock()
		frame.Close()
		return fmt.Errorf("failed to add message listener: %w", err)
	}
	b.frame = frame
	b.state = StateAwaitingReady
	if previous == StateUnlaid {
		b.armReadyTimerLocked(ctx)
	}
	b.mu.Unlock()

	b.logger.DebugContext(ctx, "frame created", "window", frame.Window(), "src", src)

	if err := frame.Load(ctx); err != nil {
		b.mu.Lock()
		var dropped Frame
		if b.frame == frame {
			if previous == StateUnlaid {
				b.stopReadyTimerLocked()
			}
			dropped = b.detachFrameLocked(ctx)
			b.state = previous
		}
		b.mu.Unlock()
		b.closeFrame(ctx, dropped)
		return fmt.Errorf("failed to load frame: %w", err)
	}

	b.mu.Lock()
	if b.frame != frame {
		b.mu.Unlock()
		return fmt.Errorf("%w: frame destroyed while loading", ErrInvalidState)
	}
	b.loaded = true
	pending := b.outbox
	b.outbox = nil
	for _, data := range pending {
		b.postLocked(ctx, data, playerproto.AnyOrigin)
	}
	b.mu.Unlock()

	b.logger.InfoContext(ctx, "frame loaded", "flushed_commands", len(pending))
	b.notify(ctx, visibility(true))

	return nil
}

// HandleMessage consumes a cross-frame message. Anything that is not a
// protocol event from the current frame is ignored.
func (b *Bridge) HandleMessage(ctx context.Context, msg playerproto.Message) {
	b.mu.Lock()
	if b.frame == nil {
		b.mu.Unlock()
		return
	}
	ev, ok := playerproto.Decode(msg, b.cfg.PlayerOrigin, b.frame.Window())
	if !ok {
		b.mu.Unlock()
		b.logger.DebugContext(ctx, "ignoring message", "origin", msg.Origin, "source", msg.Source)
		return
	}

	out := transition(b.flags, ev)
	b.flags = out.flags
	if out.handshake {
		b.stopReadyTimerLocked()
		b.state = StateBound
	}
	b.mu.Unlock()

	b.logger.DebugContext(ctx, "player event", omitnil.Args(map[string]any{
		"event":               ev.Name,
		"kind":                ev.Kind.String(),
		"playing":             ev.Playing,
		"muted":               ev.Muted,
		"bc_version":          ev.BCVersion,
		"amp_support_version": ev.AMPSupportVersion,
	})...)

	if out.handshake {
		if err := b.registry.Register(ctx, b.id); err != nil {
			b.logger.WarnContext(ctx, "failed to register video", "error", err)
		}
	}

	for _, n := range out.notifications {
		b.notify(ctx, n)
	}
}

// RequestPause stops playback on behalf of the host. Players without the
// handshake get the bare legacy message; a stale bridge does nothing.
func (b *Bridge) RequestPause(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.flags.AMPSupport {
		if !b.flags.Playing {
			return
		}
		data, err := playerproto.EncodeCommand(playerproto.CommandPause, nil)
		if err != nil {
			b.logger.ErrorContext(ctx, "failed to encode command", "error", err)
			return
		}
		b.enqueueLocked(ctx, data)
		return
	}

	if b.frame == nil {
		return
	}
	b.postLocked(ctx, []byte(playerproto.LegacyPause), b.cfg.PlayerOrigin)
}

// Unlayout destroys the frame of a player without protocol support and
// reports whether it did. Protocol capable frames stay alive.
func (b *Bridge) Unlayout(ctx context.Context) bool {
	b.mu.Lock()
	if b.flags.AMPSupport {
		b.mu.Unlock()
		return false
	}

	b.stopReadyTimerLocked()
	dropped := b.detachFrameLocked(ctx)
	b.outbox = nil
	if b.state == StateAwaitingReady {
		b.state = StateUnlaid
	}
	b.mu.Unlock()

	if dropped != nil {
		b.closeFrame(ctx, dropped)
		b.notify(ctx, visibility(false))
	}

	return true
}

// Retarget points the embed at another player or content and navigates the
// current frame to the new source, loaded or not.
func (b *Bridge) Retarget(ctx context.Context, target embedurl.Target, params map[string]string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, err := embedurl.Src(b.cfg.PlayerOrigin, b.element, target, params)
	if err != nil {
		return "", err
	}
	b.target = target
	b.params = params

	if b.frame != nil {
		if err := b.frame.Navigate(src); err != nil {
			return "", fmt.Errorf("failed to navigate frame: %w", err)
		}
		// the new player starts paused; protocol support holds for the
		// layout cycle
		if b.loaded {
			b.flags.Playing = false
		}
		b.logger.InfoContext(ctx, "frame retargeted", "src", src)
	}

	return src, nil
}

// Close is the terminal teardown of the embed.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.stopReadyTimerLocked()
	registered := b.flags.AMPSupport
	dropped := b.detachFrameLocked(ctx)
	b.outbox = nil
	b.state = StateUnlaid
	b.mu.Unlock()

	b.closeFrame(ctx, dropped)

	if registered {
		if err := b.registry.Unregister(ctx, b.id); err != nil {
			return fmt.Errorf("failed to unregister video: %w", err)
		}
	}

	return nil
}

func (b *Bridge) sendCommand(ctx context.Context, name string, args any) {
	data, err := playerproto.EncodeCommand(name, args)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to encode command", "command", name, "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.enqueueLocked(ctx, data)
}

// enqueueLocked posts to a loaded frame, holds commands until the first
// frame loads and drops them once the frame was destroyed.
func (b *Bridge) enqueueLocked(ctx context.Context, data []byte) {
	switch {
	case b.frame != nil && b.loaded:
		b.postLocked(ctx, data, playerproto.AnyOrigin)
	case b.closed || b.state == StateUnlaid:
		b.logger.DebugContext(ctx, "dropping command, frame destroyed", "data", string(data))
	default:
		b.outbox = append(b.outbox, data)
	}
}

func (b *Bridge) postLocked(ctx context.Context, data []byte, targetOrigin string) {
	if err := b.frame.PostMessage(data, targetOrigin); err != nil {
		b.logger.WarnContext(ctx, "failed to post message", "error", err)
	}
}

// detachFrameLocked unbinds the current frame and hands it back for
// closing once b.mu is released.
func (b *Bridge) detachFrameLocked(ctx context.Context) Frame {
	frame := b.frame
	if frame == nil {
		return nil
	}

	if err := b.dispatcher.Remove(frame.Window()); err != nil {
		b.logger.DebugContext(ctx, "failed to remove message listener", "error", err)
	}
	b.frame = nil
	b.loaded = false

	return frame
}

func (b *Bridge) closeFrame(ctx context.Context, frame Frame) {
	if frame == nil {
		return
	}

	if err := frame.Close(); err != nil {
		b.logger.DebugContext(ctx, "failed to close frame", "error", err)
	}
}

func (b *Bridge) armReadyTimerLocked(ctx context.Context) {
	if b.cfg.ReadyTimeout <= 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	b.readyGen++
	gen := b.readyGen
	b.readyTimer = time.AfterFunc(b.cfg.ReadyTimeout, func() {
		b.warnNotReady(ctx, gen)
	})
}

func (b *Bridge) stopReadyTimerLocked() {
	if b.readyTimer == nil {
		return
	}

	b.readyTimer.Stop()
	b.readyTimer = nil
	b.readyGen++
}

func (b *Bridge) warnNotReady(ctx context.Context, gen uint64) {
	b.mu.Lock()
	// the timer may fire concurrently with its cancellation or a re-arm
	if b.readyGen != gen || b.flags.AMPSupport || b.closed {
		b.mu.Unlock()
		return
	}
	playerID := b.target.WithDefaults().PlayerID
	b.mu.Unlock()

	b.logger.WarnContext(ctx, "did not receive ready callback from player, ensure it has the videojs-amp-support plugin",
		"player_id", playerID,
	)
}

func (b *Bridge) notify(ctx context.Context, n Notification) {
	b.notifier.Notify(ctx, b.id, n)
}
