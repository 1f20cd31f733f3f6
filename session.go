package dbfixture

import (
	"context"
	"fmt"
	"slices"
)

// Session is one test's handle on a fixture database: the connection, its
// dialect, and the tables the last Load created. Open one per test and
// Close it when done; a Session is not meant for concurrent use.
type Session struct {
	conn   *Conn
	dsn    DSN
	loader *Loader
	reader *Reader
	tables []string
}

// Open parses cfg.DSN, resolves its dialect and connects. An unknown dialect
// fails with a *DialectError before any connection is attempted.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dsn, err := ParseDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	d, err := resolveDialect(dsn)
	if err != nil {
		return nil, err
	}

	db, err := d.Open(dsn.Locator, Credentials{User: cfg.User, Password: cfg.Password})
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name(), err)
	}

	logger := cfg.logger().With("dialect", d.Name())
	conn := NewConn(db, d, logger, dsn.Debug || cfg.Debug)
	return &Session{
		conn:   conn,
		dsn:    dsn,
		loader: NewLoader(conn),
		reader: NewReader(conn),
	}, nil
}

func (s *Session) Close() error { return s.conn.Close() }

// Conn returns the session's connection.
func (s *Session) Conn() *Conn { return s.conn }

// Dialect returns the dialect name ("sqlite", "mysql", "pgsql").
func (s *Session) Dialect() string { return s.conn.dialect.Name() }

// DSN returns the parsed connection string.
func (s *Session) DSN() DSN { return s.dsn }

// Tables returns the tables created by the last successful Load.
func (s *Session) Tables() []string { return slices.Clone(s.tables) }

// Migration starts a schema migration for table.
func (s *Session) Migration(table string) *Migration { return s.conn.Migration(table) }

// DropTable drops table if it exists.
func (s *Session) DropTable(ctx context.Context, table string) error {
	return s.conn.DropTable(ctx, table)
}

// Load recreates every fixture table and imports its rows.
func (s *Session) Load(ctx context.Context, f Fixture) error {
	return s.load(ctx, f, true)
}

// CreateTables recreates every fixture table without importing rows.
func (s *Session) CreateTables(ctx context.Context, f Fixture) error {
	return s.load(ctx, f, false)
}

func (s *Session) load(ctx context.Context, f Fixture, importData bool) error {
	if err := s.loader.Load(ctx, f, importData); err != nil {
		return err
	}
	s.tables = f.Names()
	return nil
}

// Read reads the named tables back. With no names it reads the tables of the
// last Load.
func (s *Session) Read(ctx context.Context, stripIdentity bool, tables ...string) (Fixture, error) {
	if len(tables) == 0 {
		tables = s.tables
	}
	return s.reader.Read(ctx, tables, stripIdentity)
}

// ReadList reads a comma-separated table list ("user, order").
func (s *Session) ReadList(ctx context.Context, tables string, stripIdentity bool) (Fixture, error) {
	return s.Read(ctx, stripIdentity, SplitTables(tables)...)
}
