package dbfixture

import (
	"context"
	"fmt"
	"strings"
)

type migrationState int

const (
	stateBuilding migrationState = iota
	stateCreated
	stateAltered
	stateDropped
)

// Migration is a single-use table definition. Build it with ID, Field,
// AddField and DropField, then run exactly one of Create, Alter or Drop.
// Each terminal operation executes one schema statement (SQLite alters run
// one statement per added column) and no transaction is opened around it.
type Migration struct {
	exec    Execer
	dialect Dialect
	table   string

	columns      []Column
	pendingAdds  []Column
	pendingDrops []string
	state        migrationState
}

// NewMigration returns an empty definition for table.
func NewMigration(exec Execer, d Dialect, table string) *Migration {
	return &Migration{exec: exec, dialect: d, table: table}
}

// Table returns the table the migration targets.
func (m *Migration) Table() string { return m.table }

// Columns returns a copy of the column list built so far.
func (m *Migration) Columns() []Column {
	return append([]Column(nil), m.columns...)
}

// ID adds the identity column (named "id" unless a name is given). It is a
// no-op when an identity column or a column of that name already exists.
func (m *Migration) ID(name ...string) *Migration {
	n := IdentityField
	if len(name) > 0 && name[0] != "" {
		n = name[0]
	}
	for _, c := range m.columns {
		if c.IsIdentity() || c.Name == n {
			return m
		}
	}
	m.columns = append(m.columns, Column{Name: n, Type: ColumnType{Kind: KindIdentity}})
	return m
}

// Field appends a column. The optional hint is parsed with ParseType; without
// one the column gets the dialect's generic type.
func (m *Migration) Field(name string, hint ...string) *Migration {
	return m.TypedField(name, hintType(hint))
}

// TypedField appends a column with an already resolved type.
func (m *Migration) TypedField(name string, t ColumnType) *Migration {
	m.columns = append(m.columns, Column{Name: name, Type: t})
	return m
}

// AddField queues a column to be added by Alter.
func (m *Migration) AddField(name string, hint ...string) *Migration {
	m.pendingAdds = append(m.pendingAdds, Column{Name: name, Type: hintType(hint)})
	return m
}

// DropField queues a column to be dropped by Alter.
func (m *Migration) DropField(name string) *Migration {
	m.pendingDrops = append(m.pendingDrops, name)
	return m
}

// Create executes CREATE TABLE for the column list.
func (m *Migration) Create(ctx context.Context) error {
	q, err := m.CreateSQL()
	if err != nil {
		return err
	}
	if err := m.consume(stateCreated); err != nil {
		return err
	}
	if _, err := m.exec.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("create table %s: %w", m.table, err)
	}
	return nil
}

// Alter applies the queued additions and drops. Drops against a dialect
// without DROP COLUMN support fail with ErrUnsupportedOperation before any
// statement runs.
func (m *Migration) Alter(ctx context.Context) error {
	stmts, err := m.AlterSQL()
	if err != nil {
		return err
	}
	if err := m.consume(stateAltered); err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := m.exec.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("alter table %s: %w", m.table, err)
		}
	}
	return nil
}

// Drop executes DROP TABLE IF EXISTS. It succeeds when the table is missing.
func (m *Migration) Drop(ctx context.Context) error {
	if err := m.consume(stateDropped); err != nil {
		return err
	}
	q := "DROP TABLE IF EXISTS " + m.dialect.QuoteIdentifier(m.table)
	if _, err := m.exec.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("drop table %s: %w", m.table, err)
	}
	return nil
}

// CreateSQL renders the CREATE TABLE statement without executing it.
func (m *Migration) CreateSQL() (string, error) {
	if strings.TrimSpace(m.table) == "" {
		return "", fmt.Errorf("create table: empty table name")
	}
	if len(m.columns) == 0 {
		return "", fmt.Errorf("create table %s: no columns", m.table)
	}

	seen := make(map[string]bool, len(m.columns))
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", m.dialect.QuoteIdentifier(m.table))
	for i, col := range m.columns {
		if seen[col.Name] {
			return "", conflictf("column %s declared twice in table %s", col.Name, m.table)
		}
		seen[col.Name] = true

		fmt.Fprintf(&b, "  %s %s", m.dialect.QuoteIdentifier(col.Name), m.dialect.ColumnSQL(col.Type))
		if i < len(m.columns)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString(")")
	return b.String(), nil
}

// AlterSQL renders the statements Alter would execute.
func (m *Migration) AlterSQL() ([]string, error) {
	if len(m.pendingDrops) > 0 && !m.dialect.SupportsDropColumn() {
		return nil, &OperationError{Dialect: m.dialect.Name(), Table: m.table, Op: "drop column"}
	}

	adds := make(map[string]bool, len(m.pendingAdds))
	for _, c := range m.pendingAdds {
		if adds[c.Name] {
			return nil, conflictf("column %s added twice to table %s", c.Name, m.table)
		}
		adds[c.Name] = true
	}
	for _, name := range m.pendingDrops {
		if adds[name] {
			return nil, conflictf("column %s both added and dropped in table %s", name, m.table)
		}
	}
	return m.dialect.AlterTable(m.table, m.pendingAdds, m.pendingDrops), nil
}

func (m *Migration) consume(next migrationState) error {
	if m.state != stateBuilding {
		return fmt.Errorf("%s: %w", m.table, ErrMigrationConsumed)
	}
	m.state = next
	return nil
}

func hintType(hint []string) ColumnType {
	if len(hint) == 0 {
		return ColumnType{Kind: KindGeneric}
	}
	return ParseType(hint[0])
}
