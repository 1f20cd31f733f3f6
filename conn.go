package dbfixture

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Execer is the subset of *sql.DB, *sql.Tx and *sql.Conn that schema
// migrations need.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Conn is an open backend connection bound to a dialect. It exposes the
// capability surface the loader and reader rely on: Exec, Select and Insert.
// A Conn is meant for one caller at a time.
type Conn struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
	debug   bool
}

// NewConn wraps an already open handle. When debug is set every statement is
// logged at info level.
func NewConn(db *sql.DB, d Dialect, logger *slog.Logger, debug bool) *Conn {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Conn{db: db, dialect: d, logger: logger, debug: debug}
}

// DB returns the underlying handle.
func (c *Conn) DB() *sql.DB { return c.db }

// Dialect returns the dialect the connection was opened with.
func (c *Conn) Dialect() Dialect { return c.dialect }

func (c *Conn) Close() error { return c.db.Close() }

// ExecContext implements Execer, logging the statement in debug mode and
// wrapping driver failures in a *BackendError.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	c.trace(query, args)
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, &BackendError{SQL: query, Err: err}
	}
	return res, nil
}

// Exec runs a raw statement with positional arguments.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.ExecContext(ctx, query, args...)
	return err
}

// Migration starts a new schema migration for table.
func (c *Conn) Migration(table string) *Migration {
	return NewMigration(c, c.dialect, table)
}

// DropTable drops table if it exists.
func (c *Conn) DropTable(ctx context.Context, table string) error {
	return c.Migration(table).Drop(ctx)
}

// Insert inserts one row. Columns are written in sorted order with the
// identity field first.
func (c *Conn) Insert(ctx context.Context, table string, row Values) error {
	names := row.fieldNames()
	if len(names) == 0 {
		q := "INSERT INTO " + c.dialect.QuoteIdentifier(table) + " DEFAULT VALUES"
		if c.dialect.Name() == "mysql" {
			q = "INSERT INTO " + c.dialect.QuoteIdentifier(table) + " () VALUES ()"
		}
		_, err := c.ExecContext(ctx, q)
		return err
	}

	cols := make([]string, len(names))
	placeholders := make([]string, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		cols[i] = c.dialect.QuoteIdentifier(name)
		placeholders[i] = c.dialect.Placeholder(i + 1)
		args[i] = row[name]
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		c.dialect.QuoteIdentifier(table),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
	)
	_, err := c.ExecContext(ctx, q, args...)
	return err
}

// Select reads every row of table. Values are normalized by declared column
// type so integers, decimals and text come back as int64, float64 and
// string regardless of how the driver encoded them.
func (c *Conn) Select(ctx context.Context, table string) ([]Values, error) {
	q := "SELECT * FROM " + c.dialect.QuoteIdentifier(table)
	c.trace(q, nil)
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, &BackendError{SQL: q, Err: err}
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, &BackendError{SQL: q, Err: err}
	}

	var out []Values
	for rows.Next() {
		raw := make([]any, len(types))
		ptrs := make([]any, len(types))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &BackendError{SQL: q, Err: err}
		}

		row := make(Values, len(types))
		for i, ct := range types {
			v, err := normalizeValue(raw[i], declaredKind(ct.DatabaseTypeName()))
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", table, ct.Name(), err)
			}
			row[ct.Name()] = v
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &BackendError{SQL: q, Err: err}
	}
	return out, nil
}

func (c *Conn) trace(query string, args []any) {
	if !c.debug {
		return
	}
	c.logger.Info("sql", "dialect", c.dialect.Name(), "query", query, "args", args)
}
