package dbfixture

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

func init() {
	RegisterDialect("mysql", mysqlDialect{})
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Open(locator string, creds Credentials) (*sql.DB, error) {
	dsn, err := mysqlDSN(locator, creds)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}

func (mysqlDialect) QuoteIdentifier(name string) string { return quoteWith("`", name) }

func (mysqlDialect) ColumnSQL(t ColumnType) string {
	if t.Raw != "" {
		return t.Raw
	}
	switch t.Kind {
	case KindIdentity:
		return "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY"
	case KindInteger:
		return "BIGINT"
	case KindDecimal:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case KindDateTime:
		return "DATETIME(6)"
	case KindText:
		return "TEXT"
	default:
		return "VARCHAR(255)"
	}
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) SupportsDropColumn() bool { return true }

func (d mysqlDialect) AlterTable(table string, adds []Column, drops []string) []string {
	return combinedAlter(d, table, adds, drops)
}

// mysqlDSN normalizes a go-sql-driver DSN: credentials override, times are
// parsed into time.Time and pinned to UTC so datetimes round-trip.
func mysqlDSN(locator string, creds Credentials) (string, error) {
	cfg, err := mysql.ParseDSN(locator)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	if creds.User != "" {
		cfg.User = creds.User
	}
	if creds.Password != "" {
		cfg.Passwd = creds.Password
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}
