package snippets

import (
	"context"
	"errors"
	"fmt"
	"sort"

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
	sqlSnippetInsert = `INSERT INTO snippets (id, title, body, language)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at;`

	// A separate SELECT after ON CONFLICT DO NOTHING takes a fresh snapshot,
	// so it sees a row committed by a concurrent submission.
	sqlTagInsert = `INSERT INTO tags (name, name_key)
		VALUES ($1, $2)
		ON CONFLICT (name_key) DO NOTHING
		RETURNING id;`

	sqlTagSelectByKey = `SELECT id FROM tags WHERE name_key = $1;`

	sqlSnippetTagInsert = `INSERT INTO snippet_tags (snippet_id, tag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING;`

	sqlImageInsert = `INSERT INTO images (snippet_id, data, content_type)
		VALUES ($1, $2, $3);`

	sqlSnippetSelectRecord = `SELECT s.id, s.title, s.body, s.language, s.created_at,
			COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '{}') AS tags,
			i.data, i.content_type
		FROM snippets s
		LEFT JOIN snippet_tags st ON st.snippet_id = s.id
		LEFT JOIN tags t ON t.id = st.tag_id
		LEFT JOIN images i ON i.snippet_id = s.id
		WHERE s.id = $1
		GROUP BY s.id, i.snippet_id;`

	sqlSnippetSelectByID = `SELECT id, title, body, language, created_at
		FROM snippets
		WHERE id = $1
		LIMIT 1;`

	sqlSnippetSummaryBase = `SELECT s.id, s.title, s.body, s.created_at,
			COALESCE(array_agg(t.name ORDER BY t.name) FILTER (WHERE t.name IS NOT NULL), '{}') AS tags
		FROM snippets s
		LEFT JOIN snippet_tags st ON st.snippet_id = s.id
		LEFT JOIN tags t ON t.id = st.tag_id
		%s
		GROUP BY s.id
		ORDER BY s.created_at DESC, s.id;`

	sqlSnippetSearchWhere = `WHERE s.title ILIKE $1 ESCAPE '\'
		OR EXISTS (
			SELECT 1 FROM snippet_tags st2
			JOIN tags t2 ON t2.id = st2.tag_id
			WHERE st2.snippet_id = s.id AND t2.name ILIKE $1 ESCAPE '\'
		)`

	sqlImageSelect = `SELECT data, content_type FROM images WHERE snippet_id = $1;`

	sqlStats = `SELECT (SELECT COUNT(*) FROM snippets), (SELECT COUNT(*) FROM tags);`
)

// Create writes the snippet, its tag links and its image in one transaction.
func (r *Repository) Create(ctx context.Context, s *Snippet, tags []TagName, img *Image) error {
	return r.base.WithTx(ctx, func(ctx context.Context, q db.Queryer) error {
		if err := q.QueryRow(ctx, sqlSnippetInsert,
			s.ID,
			s.Title,
			s.Body,
			s.Language,
		).Scan(&s.CreatedAt); err != nil {
			return fmt.Errorf("insert snippet: %w", err)
		}

		for _, t := range tags {
			tagID, err := resolveTag(ctx, q, t)
			if err != nil {
				return err
			}
			if _, err := q.Exec(ctx, sqlSnippetTagInsert, s.ID, tagID); err != nil {
				return fmt.Errorf("link tag %q: %w", t.Key, err)
			}
		}

		if img != nil {
			if _, err := q.Exec(ctx, sqlImageInsert, s.ID, img.Data, img.ContentType); err != nil {
				return fmt.Errorf("insert image: %w", err)
			}
		}
		return nil
	})
}

func resolveTag(ctx context.Context, q db.Queryer, t TagName) (int64, error) {
	var id int64
	err := q.QueryRow(ctx, sqlTagInsert, t.Name, t.Key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("insert tag %q: %w", t.Key, err)
	}
	if err := q.QueryRow(ctx, sqlTagSelectByKey, t.Key).Scan(&id); err != nil {
		return 0, fmt.Errorf("select tag %q: %w", t.Key, err)
	}
	return id, nil
}

func (r *Repository) GetRecord(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	var rec Record
	var data []byte
	var contentType *string
	err := r.base.Q().QueryRow(ctx, sqlSnippetSelectRecord, id).Scan(
		&rec.ID,
		&rec.Title,
		&rec.Body,
		&rec.Language,
		&rec.CreatedAt,
		&rec.Tags,
		&data,
		&contentType,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, internal.ErrNotFound
		}
		return nil, err
	}
	if contentType != nil {
		rec.Image = &Image{Data: data, ContentType: *contentType}
	}
	return &rec, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Snippet, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	var s Snippet
	err := r.base.Q().QueryRow(ctx, sqlSnippetSelectByID, id).Scan(
		&s.ID,
		&s.Title,
		&s.Body,
		&s.Language,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, internal.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) ListSummaries(ctx context.Context) ([]Summary, error) {
	return r.summaries(ctx, fmt.Sprintf(sqlSnippetSummaryBase, ""))
}

func (r *Repository) SearchSummaries(ctx context.Context, query string) ([]Summary, error) {
	pattern := "%" + db.EscapeLike(query) + "%"
	return r.summaries(ctx, fmt.Sprintf(sqlSnippetSummaryBase, sqlSnippetSearchWhere), pattern)
}

func (r *Repository) summaries(ctx context.Context, query string, args ...any) ([]Summary, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	rows, err := r.base.Q().Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]Summary, 0, 32)
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(
			&sm.ID,
			&sm.Title,
			&sm.Body,
			&sm.CreatedAt,
			&sm.Tags,
		); err != nil {
			return nil, err
		}
		sort.Strings(sm.Tags)
		list = append(list, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (r *Repository) GetImage(ctx context.Context, id string) (*Image, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	var img Image
	err := r.base.Q().QueryRow(ctx, sqlImageSelect, id).Scan(&img.Data, &img.ContentType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, internal.ErrNotFound
		}
		return nil, err
	}
	return &img, nil
}

func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	var st Stats
	if err := r.base.Q().QueryRow(ctx, sqlStats).Scan(&st.Snippets, &st.Tags); err != nil {
		return Stats{}, err
	}
	return st, nil
}
