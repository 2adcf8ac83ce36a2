package comments

import (
	"context"
	"fmt"
	"time"

	"github.com/PabloPavan/snipshare_api/internal"
	"github.com/PabloPavan/snipshare_api/internal/db"
)

type SQLiteRepository struct {
	db *db.SQLite
}

func NewSQLiteRepository(s *db.SQLite) *SQLiteRepository {
	return &SQLiteRepository{db: s}
}

const (
	sqliteSnippetExists = `SELECT EXISTS (SELECT 1 FROM snippets WHERE id = ?)`

	sqliteCommentInsert = `INSERT INTO comments (snippet_id, body, created_at) VALUES (?, ?, ?)`

	sqliteCommentListBySnippet = `SELECT id, snippet_id, body, created_at
		FROM comments
		WHERE snippet_id = ?
		ORDER BY created_at DESC, id DESC`
)

func (r *SQLiteRepository) Add(ctx context.Context, c *Comment) error {
	createdAt := time.Now().UTC()
	return r.db.WithTx(ctx, func(ctx context.Context, q db.SQLQueryer) error {
		var exists bool
		if err := q.QueryRowContext(ctx, sqliteSnippetExists, c.SnippetID).Scan(&exists); err != nil {
			return fmt.Errorf("sqlite: check snippet: %w", err)
		}
		if !exists {
			return internal.ErrNotFound
		}

		res, err := q.ExecContext(ctx, sqliteCommentInsert, c.SnippetID, c.Body, createdAt)
		if err != nil {
			return fmt.Errorf("sqlite: insert comment: %w", err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("sqlite: comment id: %w", err)
		}
		c.CreatedAt = createdAt
		return nil
	})
}

func (r *SQLiteRepository) ListBySnippet(ctx context.Context, snippetID string) ([]Comment, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.Q().QueryContext(ctx, sqliteCommentListBySnippet, snippetID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list comments: %w", err)
	}
	defer rows.Close()

	list := make([]Comment, 0, 16)
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.SnippetID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan comment: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list comments: %w", err)
	}
	return list, nil
}
