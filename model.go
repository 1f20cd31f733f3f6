package dbfixture

import (
	"maps"
	"slices"
	"sort"
)

// IdentityField is the conventional name of a table's identity column.
const IdentityField = "id"

// Kind is the abstract type of a column, independent of any SQL dialect.
type Kind int

const (
	KindGeneric Kind = iota
	KindIdentity
	KindInteger
	KindDecimal
	KindDateTime
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindIdentity:
		return "identity"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindDateTime:
		return "datetime"
	case KindText:
		return "text"
	default:
		return "generic"
	}
}

// ColumnType is an abstract column type. Precision and Scale only apply to
// KindDecimal. Raw, when set, is a literal SQL type emitted verbatim by every
// dialect (e.g. "varchar(32)").
type ColumnType struct {
	Kind      Kind
	Precision int
	Scale     int
	Raw       string
}

// Column describes a single column of a table definition.
type Column struct {
	Name string
	Type ColumnType
}

func (c Column) IsIdentity() bool { return c.Type.Kind == KindIdentity }

// Values is a single row: field name to scalar value (int64, float64, string,
// time.Time or nil).
type Values map[string]any

// fieldNames returns the row's field names with the identity field first and
// the rest in sorted order.
func (v Values) fieldNames() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		if name != IdentityField {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	if _, ok := v[IdentityField]; ok {
		names = append([]string{IdentityField}, names...)
	}
	return names
}

// Row is one record of a fixture table.
type Row struct {
	// Key is the row's explicit key; zero means the row has none.
	Key int64
	// Doc marks a documentation-only row (the "_" key in fixture files).
	// Doc rows are never imported.
	Doc    bool
	Values Values
}

// DocRow returns a documentation-only row.
func DocRow(v Values) Row { return Row{Doc: true, Values: v} }

// Table is a named, ordered sequence of rows.
type Table struct {
	Name string
	Rows []Row
}

// Keyed builds a table whose rows carry explicit keys, ordered by key.
func Keyed(name string, rows map[int64]Values) Table {
	keys := slices.Sorted(maps.Keys(rows))
	t := Table{Name: name, Rows: make([]Row, 0, len(keys))}
	for _, k := range keys {
		t.Rows = append(t.Rows, Row{Key: k, Values: rows[k]})
	}
	return t
}

// List builds a table whose rows have implicit keys.
func List(name string, rows ...Values) Table {
	t := Table{Name: name, Rows: make([]Row, 0, len(rows))}
	for _, v := range rows {
		t.Rows = append(t.Rows, Row{Values: v})
	}
	return t
}

// schemaRow returns the row the table's schema is inferred from: the first
// row that is not documentation-only.
func (t Table) schemaRow() (Row, bool) {
	for _, r := range t.Rows {
		if !r.Doc {
			return r, true
		}
	}
	return Row{}, false
}

// Fixture is an ordered set of tables. Load and Read process tables in
// slice order.
type Fixture []Table

// Names returns the table names in fixture order.
func (f Fixture) Names() []string {
	names := make([]string, len(f))
	for i, t := range f {
		names[i] = t.Name
	}
	return names
}

// Table returns the table with the given name.
func (f Fixture) Table(name string) (Table, bool) {
	for _, t := range f {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
