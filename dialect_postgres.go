package dbfixture

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

func init() {
	RegisterDialect("pgsql", postgresDialect{})
	RegisterDialect("postgres", postgresDialect{})
	RegisterDialect("postgresql", postgresDialect{})
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "pgsql" }

func (postgresDialect) Open(locator string, creds Credentials) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(locator)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if creds.User != "" {
		cfg.User = creds.User
	}
	if creds.Password != "" {
		cfg.Password = creds.Password
	}
	return stdlib.OpenDB(*cfg), nil
}

func (postgresDialect) QuoteIdentifier(name string) string { return quoteWith(`"`, name) }

func (postgresDialect) ColumnSQL(t ColumnType) string {
	if t.Raw != "" {
		return t.Raw
	}
	switch t.Kind {
	case KindIdentity:
		return "BIGSERIAL PRIMARY KEY"
	case KindInteger:
		return "BIGINT"
	case KindDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", t.Precision, t.Scale)
	case KindDateTime:
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) SupportsDropColumn() bool { return true }

func (d postgresDialect) AlterTable(table string, adds []Column, drops []string) []string {
	return combinedAlter(d, table, adds, drops)
}

// ResetIdentitySQL moves the serial sequence past the largest explicit id so
// later inserts without an id do not collide.
func (d postgresDialect) ResetIdentitySQL(table, column string) string {
	lit := "'" + strings.ReplaceAll(d.QuoteIdentifier(table), "'", "''") + "'"
	return fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence(%s, '%s'), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)",
		lit, strings.ReplaceAll(column, "'", "''"), d.QuoteIdentifier(column), d.QuoteIdentifier(table),
	)
}
