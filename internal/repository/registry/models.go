package registry

import "time"

// Entry is a video registered with the shared video manager.
type Entry struct {
	EmbedID      string    `json:"embed_id"`
	RegisteredAt time.Time `json:"registered_at"`
}
