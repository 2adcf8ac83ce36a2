package tags

import (
	"context"
	"strings"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
	"github.com/PabloPavan/snipshare_api/internal/snippets"
)

type Store interface {
	List(ctx context.Context) ([]Tag, error)
	ListBySnippet(ctx context.Context, snippetID string) ([]Tag, error)
	SearchPrefix(ctx context.Context, keyPrefix string, limit int) ([]Tag, error)
}

type Service struct {
	Store Store
}

func (s *Service) List(ctx context.Context) ([]Tag, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "tags store not configured")
	}
	list, err := s.Store.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to list tags", err)
	}
	return nonNil(list), nil
}

// ForSnippet lists the tag names attached to one snippet. An unknown snippet
// has no tags.
func (s *Service) ForSnippet(ctx context.Context, snippetID string) ([]Label, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "tags store not configured")
	}
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "snip_id is required")
	}

	list, err := s.Store.ListBySnippet(ctx, snippetID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to list tags", err)
	}
	labels := make([]Label, 0, len(list))
	for _, t := range list {
		labels = append(labels, Label{Name: t.Name})
	}
	return labels, nil
}

// Search returns up to SearchLimit tags whose folded name starts with the
// folded query.
func (s *Service) Search(ctx context.Context, query string) ([]Tag, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "tags store not configured")
	}
	key := snippets.FoldTag(query)
	if key == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "query is required")
	}

	list, err := s.Store.SearchPrefix(ctx, key, SearchLimit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to search tags", err)
	}
	return nonNil(list), nil
}

func nonNil(list []Tag) []Tag {
	if list == nil {
		return []Tag{}
	}
	return list
}
