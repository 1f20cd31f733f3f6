package dbfixture

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Reader reads tables back into the Fixture shape Loader accepts, so tests
// can compare what they loaded with what the database holds.
type Reader struct {
	conn *Conn
}

func NewReader(conn *Conn) *Reader { return &Reader{conn: conn} }

// Read returns the rows of each named table, in the order given. With
// stripIdentity the id field is removed and rows carry no key; otherwise
// each row is keyed by its id. Rows are ordered by id when the table has one.
func (r *Reader) Read(ctx context.Context, tables []string, stripIdentity bool) (Fixture, error) {
	out := make(Fixture, 0, len(tables))
	for _, name := range tables {
		t, err := r.readTable(ctx, name, stripIdentity)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// ReadList is Read for a comma-separated table list ("user, order").
func (r *Reader) ReadList(ctx context.Context, tables string, stripIdentity bool) (Fixture, error) {
	return r.Read(ctx, SplitTables(tables), stripIdentity)
}

func (r *Reader) readTable(ctx context.Context, name string, stripIdentity bool) (Table, error) {
	rows, err := r.conn.Select(ctx, name)
	if err != nil {
		return Table{}, err
	}

	// Rows without an integer id sort last, in backend order.
	sort.SliceStable(rows, func(i, j int) bool {
		a, aok := rows[i][IdentityField].(int64)
		b, bok := rows[j][IdentityField].(int64)
		if aok != bok {
			return aok
		}
		return aok && a < b
	})

	t := Table{Name: name, Rows: make([]Row, 0, len(rows))}
	for i, v := range rows {
		if stripIdentity {
			delete(v, IdentityField)
			t.Rows = append(t.Rows, Row{Values: v})
			continue
		}

		key := int64(i + 1)
		if id, present := v[IdentityField]; present {
			n, ok := id.(int64)
			if !ok {
				return Table{}, fmt.Errorf("identity %s has non-integer value %v (%T)", IdentityField, id, id)
			}
			key = n
		}
		t.Rows = append(t.Rows, Row{Key: key, Values: v})
	}
	return t, nil
}

// SplitTables splits a comma-separated table list, trimming blanks.
func SplitTables(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
