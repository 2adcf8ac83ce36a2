package snippets

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/PabloPavan/snipshare_api/internal"
)

var (
	ErrNotFound     = internal.ErrNotFound
	ErrMissingField = errors.New("title and snip are required")
	ErrInvalidTags  = errors.New("invalid tags format")
)

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound)
}
