// Package playerproto implements the cross-frame message protocol spoken by
// embedded players: inbound event validation and decoding, outbound command
// serialization.
package playerproto

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"
)

// LegacyPause is the bare pause message understood by players that predate
// the command protocol.
const LegacyPause = "pause"

// AnyOrigin is the target origin for protocol commands.
const AnyOrigin = "*"

const (
	CommandPlay         = "play"
	CommandPause        = "pause"
	CommandMuted        = "muted"
	CommandShowControls = "showControls"
	CommandHideControls = "hideControls"
)

// Message is a cross-frame message as delivered to the host. Source is the
// identity of the sending frame's message target. Data is either a string
// or an already structured value.
type Message struct {
	Origin string
	Source string
	Data   any
}

// HandlerFunc consumes inbound messages.
type HandlerFunc func(ctx context.Context, msg Message)

type EventKind int

const (
	EventUnrecognized EventKind = iota
	EventReady
	EventPlayback
	EventVolume
)

func (k EventKind) String() string {
	switch k {
	case EventReady:
		return "ready"
	case EventPlayback:
		return "playback"
	case EventVolume:
		return "volume"
	default:
		return "unrecognized"
	}
}

// Event is a decoded inbound event. Playing and Muted are nil when the
// player did not send them.
type Event struct {
	Kind              EventKind
	Name              string
	BCVersion         string
	AMPSupportVersion string
	Playing           *bool
	Muted             *bool
}

type wireEvent struct {
	Event             *string `json:"event"`
	BCVersion         string  `json:"bcVersion"`
	AMPSupportVersion string  `json:"ampSupportVersion"`
	Playing           *bool   `json:"playing"`
	Muted             *bool   `json:"muted"`
}

// Decode validates msg against the expected player origin and frame source.
// It reports false for anything that is not a protocol event from that
// frame; such messages are unrelated traffic, not errors.
func Decode(msg Message, origin, source string) (Event, bool) {
	if msg.Origin != origin {
		return Event{}, false
	}
	if source == "" || msg.Source != source {
		return Event{}, false
	}

	raw, ok := payload(msg.Data)
	if !ok {
		return Event{}, false
	}

	var w wireEvent
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, false
	}
	if w.Event == nil {
		return Event{}, false
	}

	return Event{
		Kind:              kindOf(*w.Event),
		Name:              *w.Event,
		BCVersion:         w.BCVersion,
		AMPSupportVersion: w.AMPSupportVersion,
		Playing:           w.Playing,
		Muted:             w.Muted,
	}, true
}

func payload(data any) ([]byte, bool) {
	switch d := data.(type) {
	case string:
		if !looksLikeObject(d) {
			return nil, false
		}
		return []byte(d), true
	case []byte:
		if !looksLikeObject(string(d)) {
			return nil, false
		}
		return d, true
	case json.RawMessage:
		if !looksLikeObject(string(d)) {
			return nil, false
		}
		return d, true
	case map[string]any:
		b, err := json.Marshal(d)
		if err != nil {
			return nil, false
		}
		return b, true
	default:
		return nil, false
	}
}

func looksLikeObject(s string) bool {
	return strings.HasPrefix(strings.TrimLeftFunc(s, unicode.IsSpace), "{")
}

// "play" and "pause" carry the same boolean and are one kind.
func kindOf(name string) EventKind {
	switch name {
	case "ready":
		return EventReady
	case "play", "pause":
		return EventPlayback
	case "volumechange":
		return EventVolume
	default:
		return EventUnrecognized
	}
}

type command struct {
	Command string `json:"command"`
	Args    any    `json:"args"`
}

// EncodeCommand serializes a protocol command. A nil args is sent as "".
func EncodeCommand(name string, args any) ([]byte, error) {
	if args == nil {
		args = ""
	}

	return json.Marshal(command{Command: name, Args: args})
}
