package comments

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/PabloPavan/snipshare_api/internal"
	"github.com/PabloPavan/snipshare_api/internal/db"
)

type Repository struct {
	base *db.Base
}

func NewRepository(base *db.Base) *Repository {
	return &Repository{base: base}
}

const (
	sqlCommentInsert = `INSERT INTO comments (snippet_id, body)
		VALUES ($1, $2)
		RETURNING id, created_at;`

	sqlCommentListBySnippet = `SELECT id, snippet_id, body, created_at
		FROM comments
		WHERE snippet_id = $1
		ORDER BY created_at DESC, id DESC;`
)

func (r *Repository) Add(ctx context.Context, c *Comment) error {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	err := r.base.Q().QueryRow(ctx, sqlCommentInsert, c.SnippetID, c.Body).Scan(&c.ID, &c.CreatedAt)
	if isForeignKeyViolation(err) {
		return internal.ErrNotFound
	}
	return err
}

func (r *Repository) ListBySnippet(ctx context.Context, snippetID string) ([]Comment, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	rows, err := r.base.Q().Query(ctx, sqlCommentListBySnippet, snippetID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Comment, error) {
		var c Comment
		err := row.Scan(&c.ID, &c.SnippetID, &c.Body, &c.CreatedAt)
		return c, err
	})
}
