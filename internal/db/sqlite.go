package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
)

// FoldFunc is the SQL name of a Unicode-aware lower(). The built-in lower()
// only folds ASCII.
const FoldFunc = "unicode_lower"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(FoldFunc, 1, foldValue)
}

func foldValue(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// SQLQueryer is satisfied by *sql.DB, *sql.Tx and the instrumented wrapper.
type SQLQueryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLite is the embedded store used for single-node deployments and tests.
type SQLite struct {
	DB      *sql.DB
	timeout time.Duration
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema. The pool is limited to one connection: SQLite has a single writer
// and per-connection pragmas stay consistent.
func OpenSQLite(ctx context.Context, path string, timeout time.Duration) (*SQLite, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	conn, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	ctxPing, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.PingContext(ctxPing); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	s := &SQLite{DB: conn, timeout: timeout}
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return s, nil
}

func sqliteDSN(path string) string {
	pragmas := "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	pragmas += "&_pragma=journal_mode(WAL)"
	if strings.HasPrefix(path, "file:") {
		if strings.Contains(path, "?") {
			return path + "&" + pragmas
		}
		return path + "?" + pragmas
	}
	return "file:" + path + "?" + pragmas
}

func (s *SQLite) Q() SQLQueryer {
	return InstrumentSQL(s.DB)
}

func (s *SQLite) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func (s *SQLite) WithTx(ctx context.Context, fn func(ctx context.Context, q SQLQueryer) error) error {
	ctx, cancel := s.WithTimeout(ctx)
	defer cancel()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(ctx, InstrumentSQL(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.DB.Close()
}

func (s *SQLite) migrate(ctx context.Context) error {
	for i, stmt := range sqliteSchema {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
	}
	return nil
}

// InstrumentSQL wraps a database/sql handle so each statement is traced.
// Rows are reported when the query returns, not when they are drained.
func InstrumentSQL(q SQLQueryer) SQLQueryer {
	if _, ok := q.(instrumentedSQL); ok {
		return q
	}
	return instrumentedSQL{q: q}
}

type instrumentedSQL struct {
	q SQLQueryer
}

func (i instrumentedSQL) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, finish := Observe(ctx, SystemSQLite, query)
	res, err := i.q.ExecContext(ctx, query, args...)
	finish(err)
	return res, err
}

func (i instrumentedSQL) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, finish := Observe(ctx, SystemSQLite, query)
	rows, err := i.q.QueryContext(ctx, query, args...)
	finish(err)
	return rows, err
}

func (i instrumentedSQL) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	ctx, finish := Observe(ctx, SystemSQLite, query)
	row := i.q.QueryRowContext(ctx, query, args...)
	if err := row.Err(); err != nil && err != sql.ErrNoRows {
		finish(err)
	} else {
		finish(nil)
	}
	return row
}
