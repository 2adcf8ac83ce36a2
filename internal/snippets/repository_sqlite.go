package snippets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/PabloPavan/snipshare_api/internal"
	"github.com/PabloPavan/snipshare_api/internal/db"
)

// SQLiteRepository is the Store backed by the embedded database.
type SQLiteRepository struct {
	db *db.SQLite
}

func NewSQLiteRepository(s *db.SQLite) *SQLiteRepository {
	return &SQLiteRepository{db: s}
}

const (
	sqliteSnippetInsert = `INSERT INTO snippets (id, title, body, language, created_at)
		VALUES (?, ?, ?, ?, ?)`

	sqliteTagInsert = `INSERT INTO tags (name, name_key)
		VALUES (?, ?)
		ON CONFLICT (name_key) DO NOTHING`

	sqliteTagSelectByKey = `SELECT id FROM tags WHERE name_key = ?`

	sqliteSnippetTagInsert = `INSERT OR IGNORE INTO snippet_tags (snippet_id, tag_id) VALUES (?, ?)`

	sqliteImageInsert = `INSERT INTO images (snippet_id, data, content_type) VALUES (?, ?, ?)`

	sqliteTagsOf = `(SELECT json_group_array(t.name)
			FROM snippet_tags st
			JOIN tags t ON t.id = st.tag_id
			WHERE st.snippet_id = s.id)`

	sqliteSnippetSelectRecord = `SELECT s.id, s.title, s.body, s.language, s.created_at,
			` + sqliteTagsOf + ` AS tags,
			i.data, i.content_type
		FROM snippets s
		LEFT JOIN images i ON i.snippet_id = s.id
		WHERE s.id = ?`

	sqliteSnippetSelectByID = `SELECT id, title, body, language, created_at
		FROM snippets
		WHERE id = ?
		LIMIT 1`

	sqliteSnippetSummaryBase = `SELECT s.id, s.title, s.body, s.created_at,
			` + sqliteTagsOf + ` AS tags
		FROM snippets s
		%s
		ORDER BY s.created_at DESC, s.id`

	// name_key is already folded; the title is folded by the Unicode-aware
	// function registered in package db and the pattern in Go.
	sqliteSnippetSearchWhere = `WHERE ` + db.FoldFunc + `(s.title) LIKE ? ESCAPE '\'
		OR EXISTS (
			SELECT 1 FROM snippet_tags st2
			JOIN tags t2 ON t2.id = st2.tag_id
			WHERE st2.snippet_id = s.id AND t2.name_key LIKE ? ESCAPE '\'
		)`

	sqliteImageSelect = `SELECT data, content_type FROM images WHERE snippet_id = ?`

	sqliteStats = `SELECT (SELECT COUNT(*) FROM snippets), (SELECT COUNT(*) FROM tags)`
)

func (r *SQLiteRepository) Create(ctx context.Context, s *Snippet, tags []TagName, img *Image) error {
	createdAt := time.Now().UTC()
	err := r.db.WithTx(ctx, func(ctx context.Context, q db.SQLQueryer) error {
		if _, err := q.ExecContext(ctx, sqliteSnippetInsert,
			s.ID, s.Title, s.Body, s.Language, createdAt); err != nil {
			return fmt.Errorf("sqlite: insert snippet: %w", err)
		}

		for _, t := range tags {
			if _, err := q.ExecContext(ctx, sqliteTagInsert, t.Name, t.Key); err != nil {
				return fmt.Errorf("sqlite: insert tag %q: %w", t.Key, err)
			}
			var tagID int64
			if err := q.QueryRowContext(ctx, sqliteTagSelectByKey, t.Key).Scan(&tagID); err != nil {
				return fmt.Errorf("sqlite: select tag %q: %w", t.Key, err)
			}
			if _, err := q.ExecContext(ctx, sqliteSnippetTagInsert, s.ID, tagID); err != nil {
				return fmt.Errorf("sqlite: link tag %q: %w", t.Key, err)
			}
		}

		if img != nil {
			if _, err := q.ExecContext(ctx, sqliteImageInsert, s.ID, img.Data, img.ContentType); err != nil {
				return fmt.Errorf("sqlite: insert image: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.CreatedAt = createdAt
	return nil
}

func (r *SQLiteRepository) GetRecord(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var rec Record
	var tagsJSON string
	var data []byte
	var contentType sql.NullString
	err := r.db.Q().QueryRowContext(ctx, sqliteSnippetSelectRecord, id).Scan(
		&rec.ID,
		&rec.Title,
		&rec.Body,
		&rec.Language,
		&rec.CreatedAt,
		&tagsJSON,
		&data,
		&contentType,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: select snippet: %w", err)
	}
	if rec.Tags, err = decodeTagArray(tagsJSON); err != nil {
		return nil, err
	}
	if contentType.Valid {
		rec.Image = &Image{Data: data, ContentType: contentType.String}
	}
	return &rec, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Snippet, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var s Snippet
	err := r.db.Q().QueryRowContext(ctx, sqliteSnippetSelectByID, id).Scan(
		&s.ID,
		&s.Title,
		&s.Body,
		&s.Language,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: select snippet: %w", err)
	}
	return &s, nil
}

func (r *SQLiteRepository) ListSummaries(ctx context.Context) ([]Summary, error) {
	return r.summaries(ctx, fmt.Sprintf(sqliteSnippetSummaryBase, ""))
}

func (r *SQLiteRepository) SearchSummaries(ctx context.Context, query string) ([]Summary, error) {
	pattern := "%" + db.EscapeLike(strings.ToLower(query)) + "%"
	return r.summaries(ctx, fmt.Sprintf(sqliteSnippetSummaryBase, sqliteSnippetSearchWhere), pattern, pattern)
}

func (r *SQLiteRepository) summaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	rows, err := r.db.Q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list snippets: %w", err)
	}
	defer rows.Close()

	list := make([]Summary, 0, 32)
	for rows.Next() {
		var sm Summary
		var tagsJSON string
		if err := rows.Scan(&sm.ID, &sm.Title, &sm.Body, &sm.CreatedAt, &tagsJSON); err != nil {
			return nil, fmt.Errorf("sqlite: scan snippet: %w", err)
		}
		if sm.Tags, err = decodeTagArray(tagsJSON); err != nil {
			return nil, err
		}
		list = append(list, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list snippets: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) GetImage(ctx context.Context, id string) (*Image, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var img Image
	err := r.db.Q().QueryRowContext(ctx, sqliteImageSelect, id).Scan(&img.Data, &img.ContentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrNotFound
		}
		return nil, fmt.Errorf("sqlite: select image: %w", err)
	}
	return &img, nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	var st Stats
	if err := r.db.Q().QueryRowContext(ctx, sqliteStats).Scan(&st.Snippets, &st.Tags); err != nil {
		return Stats{}, fmt.Errorf("sqlite: stats: %w", err)
	}
	return st, nil
}

func decodeTagArray(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("sqlite: decode tags: %w", err)
	}
	sort.Strings(tags)
	return tags, nil
}
