package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PabloPavan/snipshare_api/internal/tags"
)

type TagsService interface {
	List(ctx context.Context) ([]tags.Tag, error)
	ForSnippet(ctx context.Context, snippetID string) ([]tags.Label, error)
	Search(ctx context.Context, query string) ([]tags.Tag, error)
}

type TagsHandler struct {
	Service TagsService
}

// List Tags
// @Summary List all tags
// @Tags tags
// @Produce json
// @Success 200 {array} tags.Tag
// @Failure 500 {string} string
// @Router /api/tags [get]
func (h *TagsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.List(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// ForSnippet Tags
// @Summary List the tags of one snippet
// @Tags tags
// @Produce json
// @Param snip_id path string true "snippet id"
// @Success 200 {array} tags.Label
// @Failure 500 {string} string
// @Router /api/tags/{snip_id} [get]
func (h *TagsHandler) ForSnippet(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "snip_id"))

	list, err := h.Service.ForSnippet(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Search Tags
// @Summary Autocomplete tags by case-insensitive prefix
// @Tags tags
// @Produce json
// @Param query query string true "prefix"
// @Success 200 {array} tags.Tag
// @Failure 400 {string} string
// @Failure 500 {string} string
// @Router /api/tags/search [get]
func (h *TagsHandler) Search(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}
