package controller

import "context"

type contextKey int

const (
	embedIDCtxKey contextKey = iota
)

func (c controller) getEmbedIDFromCtx(ctx context.Context) string {
	embedID, ok := ctx.Value(embedIDCtxKey).(string)
	if !ok {
		return ""
	}

	return embedID
}
