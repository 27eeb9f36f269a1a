package embedurl

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/exp/maps"
)

const (
	DefaultPlayerID = "default"
	DefaultEmbedID  = "default"

	refPrefix = "ref:"

	autoplayParam    = "autoplay"
	playsInlineParam = "playsinline"
)

var (
	ErrMissingAccount = errors.New("account id is required")
	ErrAutoplayParam  = errors.New("autoplay pass-through parameter is not allowed, use the autoplay attribute instead")
)

// ConfigError is a setup failure attributed to a host element.
type ConfigError struct {
	Element string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Element == "" {
		return e.Err.Error()
	}

	return fmt.Sprintf("%s: %s", e.Element, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Target identifies a remote player instance. PlaylistID wins over VideoID
// when both are set.
type Target struct {
	AccountID  string `json:"account_id"`
	PlayerID   string `json:"player_id"`
	EmbedID    string `json:"embed_id"`
	VideoID    string `json:"video_id,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
}

func (t Target) WithDefaults() Target {
	if t.PlayerID == "" {
		t.PlayerID = DefaultPlayerID
	}
	if t.EmbedID == "" {
		t.EmbedID = DefaultEmbedID
	}

	return t
}

// Build returns the embed page url of the target, carrying at most one
// content selector query parameter.
func Build(playerOrigin string, t Target) (string, error) {
	if t.AccountID == "" {
		return "", ErrMissingAccount
	}
	t = t.WithDefaults()

	src := fmt.Sprintf("%s/%s/%s_%s/index.html",
		strings.TrimSuffix(playerOrigin, "/"),
		EncodeComponent(t.AccountID),
		EncodeComponent(t.PlayerID),
		EncodeComponent(t.EmbedID),
	)

	switch {
	case t.PlaylistID != "":
		src += "?playlistId=" + EncodeID(t.PlaylistID)
	case t.VideoID != "":
		src += "?videoId=" + EncodeID(t.VideoID)
	}

	return src, nil
}

// Src builds the full frame source: the embed url, the caller pass-through
// parameters in key order and the forced inline playback parameter.
func Src(playerOrigin, element string, t Target, params map[string]string) (string, error) {
	if err := CheckParams(params); err != nil {
		return "", &ConfigError{Element: element, Err: err}
	}

	src, err := Build(playerOrigin, t)
	if err != nil {
		return "", &ConfigError{Element: element, Err: err}
	}

	passThrough := make(map[string]string, len(params))
	for k, v := range params {
		if strings.EqualFold(k, playsInlineParam) {
			continue
		}
		passThrough[k] = v
	}
	src = AppendParams(src, passThrough)

	return appendParam(src, playsInlineParam, "true"), nil
}

func CheckParams(params map[string]string) error {
	for k := range params {
		if strings.EqualFold(k, autoplayParam) {
			return ErrAutoplayParam
		}
	}

	return nil
}

// AppendParams adds params to src leaving the existing part untouched.
func AppendParams(src string, params map[string]string) string {
	keys := maps.Keys(params)
	slices.Sort(keys)

	for _, k := range keys {
		src = appendParam(src, k, params[k])
	}

	return src
}

func appendParam(src, key, value string) string {
	sep := "?"
	if strings.Contains(src, "?") {
		sep = "&"
	}

	return src + sep + EncodeComponent(key) + "=" + EncodeComponent(value)
}

// EncodeID keeps a leading "ref:" verbatim and encodes the rest.
func EncodeID(id string) string {
	if rest, ok := strings.CutPrefix(id, refPrefix); ok {
		return refPrefix + EncodeComponent(rest)
	}

	return EncodeComponent(id)
}

var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeComponent percent-encodes s with the same unreserved set as
// ECMAScript encodeURIComponent.
func EncodeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
