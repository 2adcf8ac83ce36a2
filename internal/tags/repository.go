package tags

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/PabloPavan/snipshare_api/internal/db"
)

type Repository struct {
	base *db.Base
}

func NewRepository(base *db.Base) *Repository {
	return &Repository{base: base}
}

const (
	sqlTagList = `SELECT id, name FROM tags ORDER BY name_key, id;`

	sqlTagListBySnippet = `SELECT t.id, t.name
		FROM tags t
		JOIN snippet_tags st ON st.tag_id = t.id
		WHERE st.snippet_id = $1
		ORDER BY t.name_key;`

	sqlTagSearchPrefix = `SELECT id, name
		FROM tags
		WHERE name_key LIKE $1 ESCAPE '\'
		ORDER BY name_key
		LIMIT $2;`
)

func (r *Repository) List(ctx context.Context) ([]Tag, error) {
	return r.query(ctx, sqlTagList)
}

func (r *Repository) ListBySnippet(ctx context.Context, snippetID string) ([]Tag, error) {
	return r.query(ctx, sqlTagListBySnippet, snippetID)
}

func (r *Repository) SearchPrefix(ctx context.Context, keyPrefix string, limit int) ([]Tag, error) {
	return r.query(ctx, sqlTagSearchPrefix, db.EscapeLike(keyPrefix)+"%", limit)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]Tag, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	rows, err := r.base.Q().Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Tag, error) {
		var t Tag
		err := row.Scan(&t.ID, &t.Name)
		return t, err
	})
}
