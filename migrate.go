package dbfixture

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

var gooseDialects = map[string]goose.Dialect{
	"sqlite": goose.DialectSQLite3,
	"mysql":  goose.DialectMySQL,
	"pgsql":  goose.DialectPostgres,
}

// Migrate applies the goose SQL migrations found in fsys (files such as
// "00001_init.sql" with "-- +goose Up" sections) and returns how many ran.
func (s *Session) Migrate(ctx context.Context, fsys fs.FS) (int, error) {
	d, ok := gooseDialects[s.Dialect()]
	if !ok {
		return 0, &OperationError{Dialect: s.Dialect(), Op: "versioned migrations"}
	}

	provider, err := goose.NewProvider(d, s.conn.DB(), fsys)
	if err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("migrations: %w", err)
	}
	for _, r := range results {
		s.conn.logger.Info("applied migration", "version", r.Source.Version, "file", r.Source.Path, "took", r.Duration)
	}
	return len(results), nil
}
