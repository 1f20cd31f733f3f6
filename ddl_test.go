package dbfixture

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// recordingExecer captures statements instead of running them.
type recordingExecer struct {
	stmts []string
	fail  error
}

func (r *recordingExecer) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	r.stmts = append(r.stmts, query)
	if r.fail != nil {
		return nil, r.fail
	}
	return nil, nil
}

func mustDialect(t *testing.T, name string) Dialect {
	t.Helper()
	d, ok := LookupDialect(name)
	if !ok {
		t.Fatalf("dialect %q not registered", name)
	}
	return d
}

func TestMigrationCreateSQL(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{"sqlite", "CREATE TABLE \"user\" (\n" +
			"  \"id\" INTEGER PRIMARY KEY AUTOINCREMENT,\n" +
			"  \"name\" TEXT,\n" +
			"  \"age\" INTEGER,\n" +
			"  \"score\" NUMERIC(10,5),\n" +
			"  \"born\" DATETIME,\n" +
			"  \"bio\" TEXT,\n" +
			"  \"code\" varchar(8)\n" +
			")"},
		{"mysql", "CREATE TABLE `user` (\n" +
			"  `id` BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,\n" +
			"  `name` VARCHAR(255),\n" +
			"  `age` BIGINT,\n" +
			"  `score` DECIMAL(10,5),\n" +
			"  `born` DATETIME(6),\n" +
			"  `bio` TEXT,\n" +
			"  `code` varchar(8)\n" +
			")"},
		{"pgsql", "CREATE TABLE \"user\" (\n" +
			"  \"id\" BIGSERIAL PRIMARY KEY,\n" +
			"  \"name\" TEXT,\n" +
			"  \"age\" BIGINT,\n" +
			"  \"score\" NUMERIC(10,5),\n" +
			"  \"born\" TIMESTAMP,\n" +
			"  \"bio\" TEXT,\n" +
			"  \"code\" varchar(8)\n" +
			")"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			m := NewMigration(&recordingExecer{}, mustDialect(t, tt.dialect), "user").
				ID().
				Field("name").
				Field("age", "integer").
				Field("score", "decimal").
				Field("born", "datetime").
				Field("bio", "text").
				Field("code", "varchar(8)")
			got, err := m.CreateSQL()
			if err != nil {
				t.Fatalf("CreateSQL() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CreateSQL() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestMigrationCreate_Executes(t *testing.T) {
	rec := &recordingExecer{}
	m := NewMigration(rec, mustDialect(t, "sqlite"), "t").ID().Field("a")
	if err := m.Create(context.Background()); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if len(rec.stmts) != 1 || !strings.HasPrefix(rec.stmts[0], `CREATE TABLE "t"`) {
		t.Errorf("statements = %q", rec.stmts)
	}
}

func TestMigrationCreate_Errors(t *testing.T) {
	d := mustDialect(t, "sqlite")

	if _, err := NewMigration(nil, d, " ").ID().CreateSQL(); err == nil {
		t.Error("expected error for empty table name")
	}
	if _, err := NewMigration(nil, d, "t").CreateSQL(); err == nil {
		t.Error("expected error for table without columns")
	}

	_, err := NewMigration(nil, d, "t").ID().Field("a").Field("a", "integer").CreateSQL()
	if !errors.Is(err, ErrSchemaConflict) {
		t.Errorf("duplicate column error = %v, want ErrSchemaConflict", err)
	}

	_, err = NewMigration(nil, d, "t").ID().Field("id").CreateSQL()
	if !errors.Is(err, ErrSchemaConflict) {
		t.Errorf("field named id after ID() = %v, want ErrSchemaConflict", err)
	}
}

func TestMigrationCreate_BackendFailureConsumes(t *testing.T) {
	rec := &recordingExecer{fail: errors.New("disk full")}
	m := NewMigration(rec, mustDialect(t, "sqlite"), "t").ID()
	err := m.Create(context.Background())
	if err == nil || !strings.Contains(err.Error(), "create table t") {
		t.Fatalf("Create() error = %v", err)
	}
	if err := m.Create(context.Background()); !errors.Is(err, ErrMigrationConsumed) {
		t.Errorf("second Create() = %v, want ErrMigrationConsumed", err)
	}
	if len(rec.stmts) != 1 {
		t.Errorf("statements = %d, want 1", len(rec.stmts))
	}
}

func TestMigrationID_Idempotent(t *testing.T) {
	m := NewMigration(nil, mustDialect(t, "sqlite"), "t").ID().ID("other").Field("a")
	cols := m.Columns()
	if len(cols) != 2 || cols[0].Name != "id" || !cols[0].IsIdentity() {
		t.Errorf("columns = %+v", cols)
	}

	custom := NewMigration(nil, mustDialect(t, "sqlite"), "t").ID("user_id").Columns()
	if len(custom) != 1 || custom[0].Name != "user_id" {
		t.Errorf("custom identity = %+v", custom)
	}
}

func TestMigrationID_ExistingColumn(t *testing.T) {
	m := NewMigration(nil, mustDialect(t, "sqlite"), "t").Field("id", "integer").ID().Field("name")
	cols := m.Columns()
	if len(cols) != 2 || cols[0].Name != "id" || cols[0].Type.Kind != KindInteger {
		t.Fatalf("columns = %+v", cols)
	}
	got, err := m.CreateSQL()
	if err != nil {
		t.Fatalf("CreateSQL() error: %v", err)
	}
	want := "CREATE TABLE \"t\" (\n  \"id\" INTEGER,\n  \"name\" TEXT\n)"
	if got != want {
		t.Errorf("CreateSQL() =\n%s\nwant\n%s", got, want)
	}
}

func TestMigrationColumns_Copy(t *testing.T) {
	m := NewMigration(nil, mustDialect(t, "sqlite"), "t").ID()
	cols := m.Columns()
	cols[0].Name = "mutated"
	if m.Columns()[0].Name != "id" {
		t.Error("Columns() should return a copy")
	}
}

func TestMigrationAlterSQL(t *testing.T) {
	tests := []struct {
		dialect string
		want    []string
	}{
		{"sqlite", []string{
			`ALTER TABLE "t" ADD COLUMN "zed" INTEGER`,
			`ALTER TABLE "t" ADD COLUMN "note" TEXT`,
		}},
		{"mysql", []string{
			"ALTER TABLE `t` ADD COLUMN `zed` BIGINT, ADD COLUMN `note` VARCHAR(255), DROP COLUMN `bar`",
		}},
		{"pgsql", []string{
			`ALTER TABLE "t" ADD COLUMN "zed" BIGINT, ADD COLUMN "note" TEXT, DROP COLUMN "bar"`,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			d := mustDialect(t, tt.dialect)
			m := NewMigration(nil, d, "t").AddField("zed", "integer").AddField("note")
			if d.SupportsDropColumn() {
				m.DropField("bar")
			}
			got, err := m.AlterSQL()
			if err != nil {
				t.Fatalf("AlterSQL() error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AlterSQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMigrationAlter_DropUnsupported(t *testing.T) {
	rec := &recordingExecer{}
	m := NewMigration(rec, mustDialect(t, "sqlite"), "t").AddField("zed").DropField("bar")

	err := m.Alter(context.Background())
	if !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("Alter() = %v, want ErrUnsupportedOperation", err)
	}
	if len(rec.stmts) != 0 {
		t.Errorf("no statement should run, got %q", rec.stmts)
	}
	if !strings.Contains(err.Error(), "drop column on table t") {
		t.Errorf("error = %q", err)
	}
}

func TestMigrationAlter_Conflicts(t *testing.T) {
	d := mustDialect(t, "pgsql")

	_, err := NewMigration(nil, d, "t").AddField("a").AddField("a").AlterSQL()
	if !errors.Is(err, ErrSchemaConflict) {
		t.Errorf("double add = %v, want ErrSchemaConflict", err)
	}
	_, err = NewMigration(nil, d, "t").AddField("a").DropField("a").AlterSQL()
	if !errors.Is(err, ErrSchemaConflict) {
		t.Errorf("add+drop = %v, want ErrSchemaConflict", err)
	}
}

func TestMigrationAlter_Empty(t *testing.T) {
	rec := &recordingExecer{}
	if err := NewMigration(rec, mustDialect(t, "mysql"), "t").Alter(context.Background()); err != nil {
		t.Fatalf("Alter() error: %v", err)
	}
	if len(rec.stmts) != 0 {
		t.Errorf("statements = %q, want none", rec.stmts)
	}
}

func TestMigrationDrop(t *testing.T) {
	tests := map[string]string{
		"sqlite": `DROP TABLE IF EXISTS "t"`,
		"mysql":  "DROP TABLE IF EXISTS `t`",
		"pgsql":  `DROP TABLE IF EXISTS "t"`,
	}
	for dialect, want := range tests {
		rec := &recordingExecer{}
		m := NewMigration(rec, mustDialect(t, dialect), "t")
		if err := m.Drop(context.Background()); err != nil {
			t.Fatalf("%s: Drop() error: %v", dialect, err)
		}
		if len(rec.stmts) != 1 || rec.stmts[0] != want {
			t.Errorf("%s: statements = %q, want %q", dialect, rec.stmts, want)
		}
		if err := m.Alter(context.Background()); !errors.Is(err, ErrMigrationConsumed) {
			t.Errorf("%s: Alter after Drop = %v, want ErrMigrationConsumed", dialect, err)
		}
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := mustDialect(t, "sqlite").QuoteIdentifier(`we"ird`); got != `"we""ird"` {
		t.Errorf("sqlite quote = %s", got)
	}
	if got := mustDialect(t, "mysql").QuoteIdentifier("we`ird"); got != "`we``ird`" {
		t.Errorf("mysql quote = %s", got)
	}
}

func TestPlaceholders(t *testing.T) {
	if got := mustDialect(t, "pgsql").Placeholder(3); got != "$3" {
		t.Errorf("pgsql placeholder = %s", got)
	}
	if got := mustDialect(t, "mysql").Placeholder(3); got != "?" {
		t.Errorf("mysql placeholder = %s", got)
	}
}

func TestResetIdentitySQL(t *testing.T) {
	rs, ok := mustDialect(t, "pgsql").(identityResetter)
	if !ok {
		t.Fatal("pgsql should reset identity sequences")
	}
	got := rs.ResetIdentitySQL("user", "id")
	want := `SELECT setval(pg_get_serial_sequence('"user"', 'id'), COALESCE((SELECT MAX("id") FROM "user"), 0) + 1, false)`
	if got != want {
		t.Errorf("ResetIdentitySQL() =\n%s\nwant\n%s", got, want)
	}

	if _, ok := mustDialect(t, "sqlite").(identityResetter); ok {
		t.Error("sqlite should not need identity resets")
	}
}
