package db

import (
	"context"
	"fmt"
)

// Tag identity lives in name_key (the folded name); name keeps the first
// writer's spelling.

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS snippets (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		language   TEXT NOT NULL DEFAULT 'plaintext',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS snippets_created_at_idx ON snippets (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id       BIGSERIAL PRIMARY KEY,
		name     TEXT NOT NULL,
		name_key TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS snippet_tags (
		snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
		tag_id     BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (snippet_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS snippet_tags_tag_id_idx ON snippet_tags (tag_id)`,
	`CREATE TABLE IF NOT EXISTS images (
		snippet_id   TEXT PRIMARY KEY REFERENCES snippets(id) ON DELETE CASCADE,
		data         BYTEA NOT NULL,
		content_type TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         BIGSERIAL PRIMARY KEY,
		snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
		body       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS comments_snippet_created_idx ON comments (snippet_id, created_at DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS snippets (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		language   TEXT NOT NULL DEFAULT 'plaintext',
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS snippets_created_at_idx ON snippets (created_at)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		name     TEXT NOT NULL,
		name_key TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS snippet_tags (
		snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
		tag_id     INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (snippet_id, tag_id)
	)`,
	`CREATE INDEX IF NOT EXISTS snippet_tags_tag_id_idx ON snippet_tags (tag_id)`,
	`CREATE TABLE IF NOT EXISTS images (
		snippet_id   TEXT PRIMARY KEY REFERENCES snippets(id) ON DELETE CASCADE,
		data         BLOB NOT NULL,
		content_type TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		snippet_id TEXT NOT NULL REFERENCES snippets(id) ON DELETE CASCADE,
		body       TEXT NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS comments_snippet_created_idx ON comments (snippet_id, created_at)`,
}

// Migrate applies the PostgreSQL schema. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	for i, stmt := range postgresSchema {
		if _, err := Instrument(db.Pool).Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migration statement %d: %w", i, err)
		}
	}
	return nil
}
