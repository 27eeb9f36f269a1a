package bridge

type NotificationType string

const (
	NotificationVisibility NotificationType = "VISIBILITY"
	NotificationLoad       NotificationType = "LOAD"
	NotificationPlay       NotificationType = "PLAY"
	NotificationPause      NotificationType = "PAUSE"
	NotificationMuted      NotificationType = "MUTED"
	NotificationUnmuted    NotificationType = "UNMUTED"
)

// Notification is a fire-and-forget signal to the host. Only visibility
// notifications carry a value.
type Notification struct {
	Type    NotificationType
	Visible bool
}

func visibility(visible bool) Notification {
	return Notification{Type: NotificationVisibility, Visible: visible}
}
