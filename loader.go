package dbfixture

import (
	"context"
	"fmt"
	"maps"
)

// Loader (re)creates fixture tables and imports their rows.
type Loader struct {
	conn *Conn
}

func NewLoader(conn *Conn) *Loader { return &Loader{conn: conn} }

// Load processes every table in fixture order:
//
//  1. drop the table if it exists,
//  2. create it with an identity column plus one column per field of the
//     first non-documentation row, typed by Infer,
//  3. when importData is set, insert every non-documentation row.
//
// Whether a table uses explicit keys is decided once per table from the
// first non-documentation row. In an explicit-key table a row without an
// id field gets Row.Key as its id. The first failure aborts the load.
func (l *Loader) Load(ctx context.Context, fixture Fixture, importData bool) error {
	for _, t := range fixture {
		if err := l.loadTable(ctx, t, importData); err != nil {
			return fmt.Errorf("load %s: %w", t.Name, err)
		}
	}
	return nil
}

func (l *Loader) loadTable(ctx context.Context, t Table, importData bool) error {
	if err := l.conn.DropTable(ctx, t.Name); err != nil {
		return err
	}

	m := l.conn.Migration(t.Name).ID()
	first, ok := t.schemaRow()
	if ok {
		for _, name := range first.Values.fieldNames() {
			if name == IdentityField {
				continue
			}
			m.TypedField(name, Infer(first.Values[name]))
		}
	}
	if err := m.Create(ctx); err != nil {
		return err
	}
	l.conn.logger.Debug("created table", "table", t.Name, "columns", len(m.Columns()))

	if !importData {
		return nil
	}

	explicitKeys := ok && first.Key != 0
	inserted := 0
	for _, r := range t.Rows {
		if r.Doc {
			continue
		}
		row := r.Values
		if _, has := row[IdentityField]; !has && explicitKeys {
			row = maps.Clone(r.Values)
			if row == nil {
				row = Values{}
			}
			row[IdentityField] = r.Key
		}
		if err := l.conn.Insert(ctx, t.Name, row); err != nil {
			return err
		}
		inserted++
	}

	if rs, ok := l.conn.dialect.(identityResetter); ok && inserted > 0 {
		if err := l.conn.Exec(ctx, rs.ResetIdentitySQL(t.Name, IdentityField)); err != nil {
			return fmt.Errorf("reset identity: %w", err)
		}
	}
	l.conn.logger.Debug("imported rows", "table", t.Name, "rows", inserted)
	return nil
}
