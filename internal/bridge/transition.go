package bridge

import "github.com/sharetube/playerbridge/pkg/playerproto"

// flags is the remote player state known to the bridge.
type flags struct {
	AMPSupport bool
	Playing    bool
	Muted      bool
}

type outcome struct {
	flags         flags
	notifications []Notification
	handshake     bool
}

// transition applies a validated event. It is pure: the caller performs
// registration, timer cancellation and notification delivery.
func transition(f flags, ev playerproto.Event) outcome {
	out := outcome{flags: f}

	switch ev.Kind {
	case playerproto.EventReady:
		if f.AMPSupport {
			return out
		}
		out.flags.AMPSupport = true
		out.handshake = true
		out.notifications = append(out.notifications, Notification{Type: NotificationLoad})
	case playerproto.EventPlayback:
		if ev.Playing == nil {
			return out
		}
		out.flags.Playing = *ev.Playing
		if *ev.Playing {
			out.notifications = append(out.notifications, Notification{Type: NotificationPlay})
		} else {
			out.notifications = append(out.notifications, Notification{Type: NotificationPause})
		}
	case playerproto.EventVolume:
		if ev.Muted == nil {
			return out
		}
		out.flags.Muted = *ev.Muted
		if *ev.Muted {
			out.notifications = append(out.notifications, Notification{Type: NotificationMuted})
		} else {
			out.notifications = append(out.notifications, Notification{Type: NotificationUnmuted})
		}
	}

	return out
}
