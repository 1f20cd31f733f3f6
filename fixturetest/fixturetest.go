// Package fixturetest wires dbfixture sessions into Go tests. A test opens a
// session with New, loads a fixture and compares what the database holds with
// Equal or EqualStripped.
//
// The connection comes from DB_DSN (plus DB_USER and DB_PASSWD), falling back
// to a private in-memory SQLite database.
package fixturetest

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Limetric/dbfixture"
)

// Timeout bounds every database call the helpers make.
const Timeout = 10 * time.Second

// Option adjusts the Config a session is opened with.
type Option func(*dbfixture.Config)

// WithDSN overrides the connection string.
func WithDSN(dsn string) Option {
	return func(c *dbfixture.Config) { c.DSN = dsn }
}

// WithDebug logs every statement to the test log.
func WithDebug() Option {
	return func(c *dbfixture.Config) { c.Debug = true }
}

// New opens a session for the test and closes it on cleanup.
func New(t testing.TB, opts ...Option) *dbfixture.Session {
	t.Helper()

	cfg, err := dbfixture.ConfigFromEnv()
	require.NoError(t, err, "read DB_* environment")
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.Logger = slog.New(slog.NewTextHandler(testWriter{t}, nil))

	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()

	s, err := dbfixture.Open(ctx, cfg)
	require.NoError(t, err, "open %s", cfg.DSN)
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Logf("close session: %v", err)
		}
	})
	return s
}

// Load loads f into s and fails the test on error.
func Load(t testing.TB, s *dbfixture.Session, f dbfixture.Fixture) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	require.NoError(t, s.Load(ctx, f), "load fixture")
}

// LoadFile loads a TOML fixture file into s.
func LoadFile(t testing.TB, s *dbfixture.Session, path string) dbfixture.Fixture {
	t.Helper()
	f, err := dbfixture.ReadFixtureFile(path)
	require.NoError(t, err)
	Load(t, s, f)
	return f
}

// Read reads the named tables, or the last loaded ones when none are named.
func Read(t testing.TB, s *dbfixture.Session, stripIdentity bool, tables ...string) dbfixture.Fixture {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), Timeout)
	defer cancel()
	f, err := s.Read(ctx, stripIdentity, tables...)
	require.NoError(t, err, "read tables")
	return f
}

// Equal asserts that the named tables hold want, keyed by id. Both sides are
// normalized first: integers widen to int64, float32 to float64 and times
// move to UTC. Keyed rows without an id field expect id = key, the way Load
// inserts them, and documentation rows are ignored.
func Equal(t testing.TB, s *dbfixture.Session, want dbfixture.Fixture) bool {
	t.Helper()
	got := Read(t, s, false, want.Names()...)
	return assert.Equal(t, normalize(want, false), normalize(got, false))
}

// EqualStripped asserts the table contents ignoring identity values.
func EqualStripped(t testing.TB, s *dbfixture.Session, want dbfixture.Fixture) bool {
	t.Helper()
	got := Read(t, s, true, want.Names()...)
	return assert.Equal(t, normalize(want, true), normalize(got, true))
}

func normalize(f dbfixture.Fixture, stripIdentity bool) dbfixture.Fixture {
	out := make(dbfixture.Fixture, 0, len(f))
	for _, tbl := range f {
		nt := dbfixture.Table{Name: tbl.Name, Rows: []dbfixture.Row{}}
		for _, r := range tbl.Rows {
			if r.Doc {
				continue
			}
			v := make(dbfixture.Values, len(r.Values)+1)
			for k, val := range r.Values {
				v[k] = normalizeValue(val)
			}
			key := r.Key
			if stripIdentity {
				delete(v, dbfixture.IdentityField)
				key = 0
			} else if _, ok := v[dbfixture.IdentityField]; !ok && key != 0 {
				v[dbfixture.IdentityField] = key
			}
			nt.Rows = append(nt.Rows, dbfixture.Row{Key: key, Values: v})
		}
		out = append(out, nt)
	}
	return out
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.UTC()
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.UTC()
	}
	return v
}

type testWriter struct{ t testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
