package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
	"github.com/PabloPavan/snipshare_api/internal/comments"
	"github.com/PabloPavan/snipshare_api/internal/telemetry"
)

const maxCommentBodyBytes = 64 << 10

type CommentsService interface {
	Add(ctx context.Context, snippetID, body string) (*comments.Comment, error)
	List(ctx context.Context, snippetID string) ([]comments.Comment, error)
}

type CommentsHandler struct {
	Service CommentsService
}

// Create Comment
// @Summary Add a comment to a snippet
// @Tags comments
// @Accept json
// @Produce json
// @Param body body CommentCreateDTO true "comment"
// @Success 200 {object} StatusResponse
// @Failure 400 {string} string
// @Failure 404 {string} string
// @Failure 500 {string} string
// @Router /api/comments [post]
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CommentCreateDTO
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommentBodyBytes)).Decode(&req); err != nil {
		writeAppError(w, r, apperrors.Wrap(apperrors.KindInvalidInput, "invalid json", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeAppError(w, r, err)
		return
	}

	c, err := h.Service.Add(r.Context(), req.SnipID, req.Comment)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	telemetry.RecordComment(r.Context())
	telemetry.LogInfo(r.Context(), "comment added",
		telemetry.LogEvent("comment.added"),
		telemetry.LogSnippetID(c.SnippetID),
		telemetry.LogInt64("comment.id", c.ID),
	)

	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// List Comments
// @Summary List comments of a snippet, newest first
// @Tags comments
// @Produce json
// @Param snip_id path string true "snippet id"
// @Success 200 {array} comments.Comment
// @Failure 500 {string} string
// @Router /api/comments/{snip_id} [get]
func (h *CommentsHandler) List(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "snip_id"))

	list, err := h.Service.List(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}
