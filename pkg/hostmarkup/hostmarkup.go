// Package hostmarkup reads embed configuration from host element attributes.
package hostmarkup

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

const (
	DefaultTag = "amp-brightcove"

	paramPrefix = "data-param-"
)

// Element is the configuration carried by one host element.
type Element struct {
	ID         string
	AccountID  string
	PlayerID   string
	EmbedID    string
	VideoID    string
	PlaylistID string
	Params     map[string]string
}

// Name identifies the element in error messages.
func (e Element) Name(tag string) string {
	if e.ID != "" {
		return fmt.Sprintf("<%s id=%q>", tag, e.ID)
	}

	return "<" + tag + ">"
}

// Parse returns every element named tag in document order.
func Parse(r io.Reader, tag string) ([]Element, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	var elements []Element
	collect(doc, strings.ToLower(tag), &elements)

	return elements, nil
}

func collect(n *html.Node, tag string, elements *[]Element) {
	if n.Type == html.ElementNode && n.Data == tag {
		*elements = append(*elements, fromAttrs(n.Attr))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collect(c, tag, elements)
	}
}

func fromAttrs(attrs []html.Attribute) Element {
	e := Element{Params: make(map[string]string)}
	for _, attr := range attrs {
		switch attr.Key {
		case "id":
			e.ID = attr.Val
		case "data-account":
			e.AccountID = attr.Val
		case "data-player":
			e.PlayerID = attr.Val
		case "data-embed":
			e.EmbedID = attr.Val
		case "data-video-id":
			e.VideoID = attr.Val
		case "data-playlist-id":
			e.PlaylistID = attr.Val
		default:
			if name, ok := strings.CutPrefix(attr.Key, paramPrefix); ok && name != "" {
				e.Params[dashToCamel(name)] = attr.Val
			}
		}
	}

	return e
}

// data-param-ad-config-id becomes adConfigId.
func dashToCamel(name string) string {
	parts := strings.Split(name, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}

	return strings.Join(parts, "")
}
