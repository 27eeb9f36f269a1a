package controller

import (
	"net/http"

	"github.com/sharetube/playerbridge/internal/service/embed"
	"github.com/sharetube/playerbridge/pkg/embedurl"
	"github.com/sharetube/playerbridge/pkg/rest"
)

type targetInput struct {
	Element    string            `json:"element" validate:"max=128"`
	AccountID  string            `json:"account_id" validate:"required,max=64"`
	PlayerID   string            `json:"player_id" validate:"max=64"`
	EmbedID    string            `json:"embed_id" validate:"max=64"`
	VideoID    string            `json:"video_id" validate:"max=256"`
	PlaylistID string            `json:"playlist_id" validate:"max=256"`
	Params     map[string]string `json:"params"`
}

func (in targetInput) target() embedurl.Target {
	return embedurl.Target{
		AccountID:  in.AccountID,
		PlayerID:   in.PlayerID,
		EmbedID:    in.EmbedID,
		VideoID:    in.VideoID,
		PlaylistID: in.PlaylistID,
	}
}

// readTarget decodes and validates a target body, writing the failure.
func (c controller) readTarget(w http.ResponseWriter, r *http.Request, op string) (targetInput, bool) {
	var in targetInput

	if err := rest.ReadJSON(r, &in); err != nil {
		c.logger.InfoContext(r.Context(), op, "read json err", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return targetInput{}, false
	}

	if validationErrors, ok := c.validate.Validate(in); !ok {
		c.logger.InfoContext(r.Context(), op, "validate err", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return targetInput{}, false
	}

	return in, true
}

func (c controller) createEmbed(w http.ResponseWriter, r *http.Request) {
	in, ok := c.readTarget(w, r, "createEmbed")
	if !ok {
		return
	}

	resp, err := c.embedService.CreateEmbed(r.Context(), &embed.CreateEmbedParams{
		Element: in.Element,
		Target:  in.target(),
		Params:  in.Params,
	})
	if err != nil {
		c.writeError(w, r, "createEmbed", err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": resp})
}

func (c controller) createEmbedsFromMarkup(w http.ResponseWriter, r *http.Request) {
	resp, err := c.embedService.CreateEmbedsFromMarkup(r.Context(), &embed.CreateEmbedsFromMarkupParams{
		Markup: http.MaxBytesReader(w, r.Body, 1<<20),
		Tag:    r.URL.Query().Get("tag"),
	})
	if err != nil {
		c.writeError(w, r, "createEmbedsFromMarkup", err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": resp})
}

func (c controller) listEmbeds(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": c.embedService.ListEmbeds(r.Context())})
}

func (c controller) getEmbed(w http.ResponseWriter, r *http.Request) {
	snapshot, err := c.embedService.GetEmbed(r.Context(), c.getEmbedIDFromCtx(r.Context()))
	if err != nil {
		c.writeError(w, r, "getEmbed", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": snapshot})
}

func (c controller) removeEmbed(w http.ResponseWriter, r *http.Request) {
	if err := c.embedService.RemoveEmbed(r.Context(), c.getEmbedIDFromCtx(r.Context())); err != nil {
		c.writeError(w, r, "removeEmbed", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c controller) layoutEmbed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	embedID := c.getEmbedIDFromCtx(ctx)

	if err := c.embedService.LayoutEmbed(ctx, embedID); err != nil {
		c.writeError(w, r, "layoutEmbed", err)
		return
	}

	snapshot, err := c.embedService.GetEmbed(ctx, embedID)
	if err != nil {
		c.writeError(w, r, "layoutEmbed", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": snapshot})
}

func (c controller) unlayoutEmbed(w http.ResponseWriter, r *http.Request) {
	resp, err := c.embedService.UnlayoutEmbed(r.Context(), c.getEmbedIDFromCtx(r.Context()))
	if err != nil {
		c.writeError(w, r, "unlayoutEmbed", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": resp})
}

func (c controller) pauseEmbed(w http.ResponseWriter, r *http.Request) {
	if err := c.embedService.PauseEmbed(r.Context(), c.getEmbedIDFromCtx(r.Context())); err != nil {
		c.writeError(w, r, "pauseEmbed", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (c controller) retargetEmbed(w http.ResponseWriter, r *http.Request) {
	in, ok := c.readTarget(w, r, "retargetEmbed")
	if !ok {
		return
	}

	resp, err := c.embedService.RetargetEmbed(r.Context(), &embed.RetargetEmbedParams{
		EmbedID: c.getEmbedIDFromCtx(r.Context()),
		Target:  in.target(),
		Params:  in.Params,
	})
	if err != nil {
		c.writeError(w, r, "retargetEmbed", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": resp})
}

func (c controller) listRegistered(w http.ResponseWriter, r *http.Request) {
	entries, err := c.embedService.ListRegistered(r.Context())
	if err != nil {
		c.writeError(w, r, "listRegistered", err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": entries})
}
