package dbfixture

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

func init() {
	RegisterDialect("sqlite", sqliteDialect{})
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Open(locator string, _ Credentials) (*sql.DB, error) {
	uri, err := sqliteURI(locator)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", uri)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive for the whole session
	// and serializes writers on file databases.
	db.SetMaxOpenConns(1)
	return db, nil
}

func (sqliteDialect) QuoteIdentifier(name string) string { return quoteWith(`"`, name) }

func (sqliteDialect) ColumnSQL(t ColumnType) string {
	if t.Raw != "" {
		return t.Raw
	}
	switch t.Kind {
	case KindIdentity:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	case KindInteger:
		return "INTEGER"
	case KindDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", t.Precision, t.Scale)
	case KindDateTime:
		return "DATETIME"
	default:
		return "TEXT"
	}
}

func (sqliteDialect) Placeholder(int) string { return "?" }

// SupportsDropColumn is false: dropping a column in SQLite needs a table
// rebuild on the versions this harness targets, which is not a single
// schema statement.
func (sqliteDialect) SupportsDropColumn() bool { return false }

// AlterTable emits one statement per clause; SQLite accepts a single
// ADD COLUMN per ALTER TABLE.
func (d sqliteDialect) AlterTable(table string, adds []Column, drops []string) []string {
	clauses := alterClauses(d, adds, drops)
	stmts := make([]string, 0, len(clauses))
	for _, c := range clauses {
		stmts = append(stmts, "ALTER TABLE "+d.QuoteIdentifier(table)+" "+c)
	}
	return stmts
}

// --- DSN handling ---

// sqliteURI turns a locator into a driver URI. "memory" (and the usual
// ":memory:" spellings) map to a uniquely named shared-cache database so
// concurrent sessions never see each other's tables.
func sqliteURI(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	switch locator {
	case "":
		return "", fmt.Errorf("sqlite: empty locator")
	case "memory", ":memory:", "file::memory:":
		q := url.Values{}
		q.Set("mode", "memory")
		q.Set("cache", "shared")
		q.Set("_time_format", "sqlite")
		return "file:dbfixture-" + uuid.NewString() + "?" + q.Encode(), nil
	}

	if !strings.HasPrefix(locator, "file:") {
		locator = "file:" + locator
	}

	u, err := url.Parse(locator)
	if err != nil {
		return "", fmt.Errorf("parse sqlite URI: %w", err)
	}
	q := u.Query()
	if q.Get("_time_format") == "" {
		q.Set("_time_format", "sqlite")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
