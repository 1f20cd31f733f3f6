package dbfixture

import (
	"database/sql"
	"sort"
	"strings"
	"sync"
)

// Credentials are applied on top of whatever the locator already carries.
// Empty fields leave the locator untouched.
type Credentials struct {
	User     string
	Password string
}

// Dialect abstracts the backend-specific parts of schema migration so the
// loader and reader stay dialect-agnostic. Adding a backend means one
// implementation plus one RegisterDialect call.
type Dialect interface {
	// Name returns the registry name ("sqlite", "mysql", "pgsql").
	Name() string

	// Open opens a database handle for the locator part of a connection string.
	Open(locator string, creds Credentials) (*sql.DB, error)

	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(name string) string

	// ColumnSQL renders the column type, including identity constraints.
	ColumnSQL(t ColumnType) string

	// Placeholder returns the bind placeholder for the n-th (1-based) argument.
	Placeholder(n int) string

	// SupportsDropColumn reports whether ALTER TABLE ... DROP COLUMN is available.
	SupportsDropColumn() bool

	// AlterTable returns the statements that add and drop the given columns.
	// Dialects that accept several clauses per ALTER return a single statement.
	AlterTable(table string, adds []Column, drops []string) []string
}

var (
	dialectMu sync.RWMutex
	dialects  = map[string]Dialect{}
)

// RegisterDialect registers (or replaces) a dialect under name. Built-in
// dialects register themselves at init time.
func RegisterDialect(name string, d Dialect) {
	dialectMu.Lock()
	defer dialectMu.Unlock()
	dialects[strings.ToLower(name)] = d
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, bool) {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// Dialects returns the registered dialect names, sorted.
func Dialects() []string {
	dialectMu.RLock()
	defer dialectMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveDialect returns the dialect for a parsed connection string.
func resolveDialect(dsn DSN) (Dialect, error) {
	d, ok := LookupDialect(dsn.Dialect)
	if !ok {
		return nil, &DialectError{Dialect: dsn.Dialect, DSN: dsn.Raw}
	}
	return d, nil
}

// quoteWith doubles any embedded quote character and wraps the name in it.
func quoteWith(q, name string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}

// alterClauses renders "ADD COLUMN ..." and "DROP COLUMN ..." clauses in
// queue order: adds first, then drops.
func alterClauses(d Dialect, adds []Column, drops []string) []string {
	clauses := make([]string, 0, len(adds)+len(drops))
	for _, c := range adds {
		clauses = append(clauses, "ADD COLUMN "+d.QuoteIdentifier(c.Name)+" "+d.ColumnSQL(c.Type))
	}
	for _, name := range drops {
		clauses = append(clauses, "DROP COLUMN "+d.QuoteIdentifier(name))
	}
	return clauses
}

// combinedAlter renders one ALTER TABLE carrying every clause.
func combinedAlter(d Dialect, table string, adds []Column, drops []string) []string {
	clauses := alterClauses(d, adds, drops)
	if len(clauses) == 0 {
		return nil
	}
	return []string{"ALTER TABLE " + d.QuoteIdentifier(table) + " " + strings.Join(clauses, ", ")}
}

// identityResetter is implemented by dialects whose identity sequence does
// not advance when rows are inserted with explicit identity values.
type identityResetter interface {
	ResetIdentitySQL(table, column string) string
}
