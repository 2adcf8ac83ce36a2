package comments

import (
	"context"
	"strings"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
)

type Store interface {
	Add(ctx context.Context, c *Comment) error
	ListBySnippet(ctx context.Context, snippetID string) ([]Comment, error)
}

type Service struct {
	Store Store
}

// Add appends a comment to an existing snippet. The comment text is stored
// as given; only its trimmed form must be non-empty.
func (s *Service) Add(ctx context.Context, snippetID, body string) (*Comment, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "comments store not configured")
	}
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "snip_id is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.Wrap(apperrors.KindInvalidInput, ErrEmptyComment.Error(), ErrEmptyComment)
	}
	if len([]rune(body)) > MaxLength {
		return nil, apperrors.New(apperrors.KindInvalidInput, "comment is too long")
	}

	c := &Comment{SnippetID: snippetID, Body: body}
	if err := s.Store.Add(ctx, c); err != nil {
		if IsNotFound(err) {
			return nil, apperrors.New(apperrors.KindNotFound, "snippet not found")
		}
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to add comment", err)
	}
	return c, nil
}

// List returns the snippet's comments newest first.
func (s *Service) List(ctx context.Context, snippetID string) ([]Comment, error) {
	if s.Store == nil {
		return nil, apperrors.New(apperrors.KindInternal, "comments store not configured")
	}
	snippetID = strings.TrimSpace(snippetID)
	if snippetID == "" {
		return nil, apperrors.New(apperrors.KindInvalidInput, "snip_id is required")
	}

	list, err := s.Store.ListBySnippet(ctx, snippetID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "failed to list comments", err)
	}
	if list == nil {
		list = []Comment{}
	}
	return list, nil
}
