package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/sharetube/playerbridge/internal/bridge"
	"github.com/sharetube/playerbridge/internal/repository/frame"
	"github.com/sharetube/playerbridge/internal/service/embed"
	"github.com/sharetube/playerbridge/pkg/embedurl"
	"github.com/sharetube/playerbridge/pkg/rest"
)

func errorStatus(err error) int {
	var configErr *embedurl.ConfigError
	switch {
	case errors.Is(err, embed.ErrEmbedNotFound), errors.Is(err, frame.ErrFrameNotFound):
		return http.StatusNotFound
	case errors.As(err, &configErr), errors.Is(err, embed.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, bridge.ErrInvalidState), errors.Is(err, frame.ErrFrameAlreadyAttached):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), op, "error", err)
	} else {
		c.logger.InfoContext(r.Context(), op, "error", err)
	}

	rest.WriteJSON(w, status, rest.Envelope{"error": err.Error()})
}
