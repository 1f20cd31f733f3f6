package dbfixture

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/BurntSushi/toml"
)

// docKey marks a documentation-only row in fixture files.
const docKey = "_"

// ReadFixtureFile decodes a TOML fixture file.
func ReadFixtureFile(path string) (Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	defer f.Close()
	fx, err := DecodeFixture(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fx, nil
}

// DecodeFixture reads a TOML fixture. Each top-level table is a fixture
// table, in document order:
//
//	[user.1]        # keyed row; [user._] is a documentation row
//	name = "Ann"
//
//	[[post]]        # list rows with implicit identities
//	title = "hello"
//
//	[empty]         # table without rows
//
// Keyed rows are ordered by key with documentation rows first.
func DecodeFixture(r io.Reader) (Fixture, error) {
	var doc map[string]any
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	var order []string
	seen := make(map[string]bool)
	for _, k := range md.Keys() {
		if len(k) == 0 || seen[k[0]] {
			continue
		}
		seen[k[0]] = true
		order = append(order, k[0])
	}

	fx := make(Fixture, 0, len(order))
	for _, name := range order {
		t, err := decodeTable(name, doc[name])
		if err != nil {
			return nil, err
		}
		fx = append(fx, t)
	}
	return fx, nil
}

func decodeTable(name string, raw any) (Table, error) {
	t := Table{Name: name}
	switch v := raw.(type) {
	case []map[string]any:
		for _, row := range v {
			t.Rows = append(t.Rows, Row{Values: Values(row)})
		}
	case map[string]any:
		for key, val := range v {
			row, ok := val.(map[string]any)
			if !ok {
				return Table{}, fmt.Errorf("table %s: field %q is not a row; use [%s.<key>] or [[%s]]", name, key, name, name)
			}
			if key == docKey {
				t.Rows = append(t.Rows, DocRow(Values(row)))
				continue
			}
			n, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return Table{}, fmt.Errorf("table %s: row key %q is not an integer", name, key)
			}
			t.Rows = append(t.Rows, Row{Key: n, Values: Values(row)})
		}
		sort.SliceStable(t.Rows, func(i, j int) bool {
			a, b := t.Rows[i], t.Rows[j]
			if a.Doc != b.Doc {
				return a.Doc
			}
			return a.Key < b.Key
		})
	default:
		return Table{}, fmt.Errorf("table %s: unexpected %T", name, raw)
	}
	return t, nil
}

// EncodeFixture writes f in the format DecodeFixture reads. Nil values are
// omitted since TOML has no null.
func EncodeFixture(w io.Writer, f Fixture) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""

	for i, t := range f {
		if i > 0 {
			buf.WriteByte('\n')
		}
		if err := enc.Encode(map[string]any{t.Name: encodeTable(t)}); err != nil {
			return fmt.Errorf("encode %s: %w", t.Name, err)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func encodeTable(t Table) any {
	keyed := false
	for _, r := range t.Rows {
		if r.Key != 0 || r.Doc {
			keyed = true
			break
		}
	}

	if !keyed && len(t.Rows) > 0 {
		rows := make([]map[string]any, 0, len(t.Rows))
		for _, r := range t.Rows {
			rows = append(rows, withoutNils(r.Values))
		}
		return rows
	}

	rows := make(map[string]any, len(t.Rows))
	for i, r := range t.Rows {
		key := strconv.FormatInt(r.Key, 10)
		switch {
		case r.Doc:
			key = docKey
		case r.Key == 0:
			key = strconv.Itoa(i + 1)
		}
		rows[key] = withoutNils(r.Values)
	}
	return rows
}

func withoutNils(v Values) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		if val != nil {
			out[k] = val
		}
	}
	return out
}
