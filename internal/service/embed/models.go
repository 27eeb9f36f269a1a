package embed

import (
	"io"

	"github.com/sharetube/playerbridge/pkg/embedurl"
)

// Output is the envelope written to host sockets.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type VisibilityPayload struct {
	Visible bool `json:"visible"`
}

type CreateEmbedParams struct {
	Element string
	Target  embedurl.Target
	Params  map[string]string
}

type CreateEmbedResponse struct {
	EmbedID string `json:"embed_id"`
	Element string `json:"element,omitempty"`
	Src     string `json:"src"`
}

type CreateEmbedsFromMarkupParams struct {
	Markup io.Reader
	Tag    string
}

type CreateEmbedsFromMarkupResponse struct {
	Embeds []CreateEmbedResponse `json:"embeds"`
}

type UnlayoutEmbedResponse struct {
	Destroyed bool `json:"destroyed"`
}

type ControlParams struct {
	EmbedID string
	Command Command
}

type RetargetEmbedParams struct {
	EmbedID string
	Target  embedurl.Target
	Params  map[string]string
}

type RetargetEmbedResponse struct {
	Src string `json:"src"`
}
