package snippets

import (
	"context"
	"strings"

	"github.com/PabloPavan/snipshare_api/internal"
	"github.com/PabloPavan/snipshare_api/internal/apperrors"
)

const (
	MaxTitleLength    = 200
	MaxLanguageLength = 32
	MaxTags           = 20
	MaxTagLength      = 32
)

type Store interface {
	Create(ctx context.Context, s *Snippet, tags []TagName, img *Image) error
	GetRecord(ctx context.Context, id string) (*Record, error)
	GetByID(ctx context.Context, id string) (*Snippet, error)
	ListSummaries(ctx context.Context) ([]Summary, error)
	SearchSummaries(ctx context.Context, query string) ([]Summary, error)
	GetImage(ctx context.Context, id string) (*Image, error)
	Stats(ctx context.Context) (Stats, error)
}

// TagLocker serializes submissions that resolve the same tag keys. The
// returned func releases every key.
type TagLocker interface {
	Lock(ctx context.Context, keys []string) (func(), error)
}

type Service struct {
	Store       Store
	Locker      TagLocker
	IDGenerator func() string
}

func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Snippet, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}

	title := strings.TrimSpace(req.Title)
	language := strings.TrimSpace(req.Language)
	if title == "" || strings.TrimSpace(req.Body) == "" {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, ErrMissingField.Error(), ErrMissingField)
	}
	if len([]rune(title)) > MaxTitleLength {
		return nil, apperrors.New(apperrors.KindInvalidInput, "title is too long")
	}
	if language == "" {
		language = DefaultLanguage
	}
	if len([]rune(language)) > MaxLanguageLength {
		return nil, apperrors.New(apperrors.KindInvalidInput, "language is too long")
	}

	tags := NormalizeTags(req.Tags)
	if len(tags) > MaxTags {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, "too many tags", ErrInvalidTags)
	}
	for _, t := range tags {
		if len([]rune(t.Name)) > MaxTagLength {
			return nil, apperrors.Wrap(apperrors.KindInvalidInput, "tag is too long", ErrInvalidTags)
		}
	}

	var img *Image
	if req.Image != nil && len(req.Image.Data) > 0 {
		img = req.Image
	}

	idGen := s.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return "snp_" + internal.RandomHex(12)
		}
	}

	snippet := &Snippet{
		ID:       idGen(),
		Title:    title,
		Body:     req.Body,
		Language: language,
	}

	if s.Locker != nil && len(tags) > 0 {
		unlock, err := s.Locker.Lock(ctx, tagKeys(tags))
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, "failed to lock tags", err)
		}
		defer unlock()
	}

	if err := s.Store.Create(ctx, snippet, tags, img); err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to create snippet", err)
	}

	return snippet, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "snip_id is required")
	}

	rec, err := s.Store.GetRecord(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "snippet not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to load snippet", err)
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return rec, nil
}

// GetRow returns the bare snippet row without tags or image.
func (s *Service) GetRow(ctx context.Context, id string) (*Snippet, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "snip_id is required")
	}

	snippet, err := s.Store.GetByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "snippet not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to load snippet", err)
	}
	return snippet, nil
}

func (s *Service) Discover(ctx context.Context) ([]Preview, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}

	list, err := s.Store.ListSummaries(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to list snippets", err)
	}
	return previews(list), nil
}

// Search matches query case-insensitively as a substring of the title or of
// any tag name.
func (s *Service) Search(ctx context.Context, query string) ([]Preview, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "query is required")
	}

	list, err := s.Store.SearchSummaries(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to search snippets", err)
	}
	return previews(list), nil
}

func (s *Service) Image(ctx context.Context, id string) (*Image, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "snip_id is required")
	}

	img, err := s.Store.GetImage(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "image not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to load image", err)
	}
	return img, nil
}

// Highlight renders the snippet body as an HTML fragment in the given style.
func (s *Service) Highlight(ctx context.Context, id, style string) (string, error) {
	snippet, err := s.GetRow(ctx, id)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if err := Highlight(&b, snippet.Body, snippet.Language, style); err != nil {
		return "", apperrors.Wrap(apperrors.KindInternal, "failed to highlight snippet", err)
	}
	return b.String(), nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if s.Store == nil {
		return Stats{}, apperrors.New(apperrors.KindInternal, "snippets store not configured")
	}
	st, err := s.Store.Stats(ctx)
	if err != nil {
		return Stats{}, apperrors.Wrap(apperrors.KindStorage, "failed to count snippets", err)
	}
	return st, nil
}

func previews(list []Summary) []Preview {
	out := make([]Preview, 0, len(list))
	for _, sm := range list {
		tags := sm.Tags
		if tags == nil {
			tags = []string{}
		}
		out = append(out, Preview{
			ID:      sm.ID,
			Title:   sm.Title,
			Preview: PreviewOf(sm.Body, PreviewLength),
			Tags:    tags,
		})
	}
	return out
}
