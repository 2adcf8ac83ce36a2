package httpapi

import (
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/blake2b"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
	"github.com/PabloPavan/snipshare_api/internal/snippets"
	"github.com/PabloPavan/snipshare_api/internal/telemetry"
)

const defaultMaxUploadBytes = 10 << 20

type SnippetsService interface {
	Submit(ctx context.Context, req snippets.SubmitRequest) (*snippets.Snippet, error)
	Get(ctx context.Context, id string) (*snippets.Record, error)
	GetRow(ctx context.Context, id string) (*snippets.Snippet, error)
	Discover(ctx context.Context) ([]snippets.Preview, error)
	Search(ctx context.Context, query string) ([]snippets.Preview, error)
	Image(ctx context.Context, id string) (*snippets.Image, error)
	Highlight(ctx context.Context, id, style string) (string, error)
}

type SnippetsHandler struct {
	Service        SnippetsService
	MaxUploadBytes int64
}

// Submit Snippet
// @Summary Submit snippet with tags and optional image
// @Tags snippets
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "title"
// @Param snip formData string true "snippet body"
// @Param language formData string false "language, defaults to plaintext"
// @Param tags formData string false "JSON array of tag names"
// @Param image formData file false "image"
// @Success 200 {object} SubmitResponse
// @Failure 400 {string} string
// @Failure 413 {string} string
// @Failure 500 {string} string
// @Router /submit-snip-with-tags [post]
func (h *SnippetsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := parseSubmitForm(r); err != nil {
		writeAppError(w, r, err)
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	tags, err := snippets.DecodeTags(r.FormValue("tags"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	req := SnippetSubmitDTO{
		Title:    r.FormValue("title"),
		Snip:     r.FormValue("snip"),
		Language: r.FormValue("language"),
		Tags:     distinctTags(tags),
	}
	if err := req.Validate(); err != nil {
		writeAppError(w, r, err)
		return
	}

	img, err := readImage(r)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	createCtx, span := telemetry.StartSpan(r.Context(), "snippets.submit",
		attribute.Int("snippet.tags", len(req.Tags)),
		attribute.Bool("snippet.has_image", img != nil),
	)
	snippet, err := h.Service.Submit(createCtx, snippets.SubmitRequest{
		Title:    req.Title,
		Body:     req.Snip,
		Language: req.Language,
		Tags:     req.Tags,
		Image:    img,
	})
	telemetry.EndSpan(span, err)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	telemetry.RecordSubmission(r.Context(), len(req.Tags), img != nil)
	telemetry.LogInfo(r.Context(), "snippet submitted",
		telemetry.LogEvent("snippet.submitted"),
		telemetry.LogSnippetID(snippet.ID),
		telemetry.LogString("snippet.language", snippet.Language),
		telemetry.LogInt("snippet.tags", len(req.Tags)),
		telemetry.LogBool("snippet.has_image", img != nil),
	)

	writeJSON(w, http.StatusOK, SubmitResponse{SnipID: snippet.ID})
}

// distinctTags collapses blank and duplicate entries so limits apply to the
// tags that will actually be stored.
func distinctTags(raw []string) []string {
	normalized := snippets.NormalizeTags(raw)
	names := make([]string, 0, len(normalized))
	for _, t := range normalized {
		names = append(names, t.Name)
	}
	return names
}

func parseSubmitForm(r *http.Request) error {
	err := r.ParseMultipartForm(32 << 20)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.Wrap(apperrors.KindPayloadTooLarge, "request too large", err)
	}
	return apperrors.Wrap(apperrors.KindInvalidInput, "invalid form", err)
}

// readImage returns nil when no image part was sent or it is empty.
func readImage(r *http.Request) (*snippets.Image, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid image", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "invalid image", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	contentType := mimetype.Detect(data).String()
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "application/octet-stream"
	}
	return &snippets.Image{Data: data, ContentType: contentType}, nil
}

// Get Snippet
// @Summary Get snippet with tags and image
// @Tags snippets
// @Produce json
// @Param id path string true "snippet id"
// @Success 200 {object} snippets.View
// @Failure 404 {string} string
// @Failure 500 {string} string
// @Router /api/snip/{id} [get]
func (h *SnippetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	rec, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec.View())
}

// GetRow Snippet
// @Summary Get bare snippet row
// @Tags snippets
// @Produce json
// @Param snip_id path string true "snippet id"
// @Success 200 {object} snippets.Snippet
// @Failure 404 {string} string
// @Failure 500 {string} string
// @Router /api/snips/{snip_id} [get]
func (h *SnippetsHandler) GetRow(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "snip_id"))

	snippet, err := h.Service.GetRow(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// Discover Snippets
// @Summary List snippet previews, newest first
// @Tags snippets
// @Produce json
// @Success 200 {array} snippets.Preview
// @Failure 500 {string} string
// @Router /api/discover-snips [get]
func (h *SnippetsHandler) Discover(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Discover(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Search Snippets
// @Summary Search snippets by title or tag substring
// @Tags snippets
// @Produce json
// @Param query query string true "search text"
// @Success 200 {array} snippets.Preview
// @Failure 400 {string} string
// @Failure 500 {string} string
// @Router /api/search-snips [get]
func (h *SnippetsHandler) Search(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// Image Snippet
// @Summary Get the raw snippet image
// @Tags snippets
// @Produce octet-stream
// @Param id path string true "snippet id"
// @Success 200 {file} file
// @Success 304
// @Failure 404 {string} string
// @Failure 500 {string} string
// @Router /api/snip/{id}/image [get]
func (h *SnippetsHandler) Image(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))

	img, err := h.Service.Image(r.Context(), id)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	sum := blake2b.Sum256(img.Data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// Highlight Snippet
// @Summary Render snippet body as highlighted HTML
// @Tags snippets
// @Produce html
// @Param id path string true "snippet id"
// @Param style query string false "chroma style name"
// @Success 200 {string} string
// @Failure 404 {string} string
// @Failure 500 {string} string
// @Router /api/snip/{id}/highlight [get]
func (h *SnippetsHandler) Highlight(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	style := strings.TrimSpace(r.URL.Query().Get("style"))

	ctx, span := telemetry.StartSpan(r.Context(), "snippets.highlight",
		attribute.String("snippet.id", id),
		attribute.String("highlight.style", style),
	)
	out, err := h.Service.Highlight(ctx, id, style)
	telemetry.EndSpan(span, err)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, out)
}

// Languages
// @Summary List languages accepted for highlighting
// @Tags snippets
// @Produce json
// @Success 200 {array} string
// @Router /api/languages [get]
func (h *SnippetsHandler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, snippets.Languages())
}
