package tags

import (
	"context"
	"fmt"

	"github.com/PabloPavan/snipshare_api/internal/db"
)

type SQLiteRepository struct {
	db *db.SQLite
}

func NewSQLiteRepository(s *db.SQLite) *SQLiteRepository {
	return &SQLiteRepository{db: s}
}

const (
	sqliteTagList = `SELECT id, name FROM tags ORDER BY name_key, id`

	sqliteTagListBySnippet = `SELECT t.id, t.name
		FROM tags t
		JOIN snippet_tags st ON st.tag_id = t.id
		WHERE st.snippet_id = ?
		ORDER BY t.name_key`

	sqliteTagSearchPrefix = `SELECT id, name
		FROM tags
		WHERE name_key LIKE ? ESCAPE '\'
		ORDER BY name_key
		LIMIT ?`
)

func (r *SQLiteRepository) List(ctx context.Context) ([]Tag, error) {
	return r.query(ctx, sqliteTagList)
}

func (r *SQLiteRepository) ListBySnippet(ctx context.Context, snippetID string) ([]Tag, error) {
	return r.query(ctx, sqliteTagListBySnippet, snippetID)
}

func (r *SQLiteRepository) SearchPrefix(ctx context.Context, keyPrefix string, limit int) ([]Tag, error) {
	return r.query(ctx, sqliteTagSearchPrefix, db.EscapeLike(keyPrefix)+"%", limit)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]Tag, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.Q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list tags: %w", err)
	}
	defer rows.Close()

	list := make([]Tag, 0, 16)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("sqlite: scan tag: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list tags: %w", err)
	}
	return list, nil
}
