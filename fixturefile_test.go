package dbfixture

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleFixture = `
[user._]
name = "display name"

[user.2]
name = "Bob"

[user.1]
name = "Ann"
score = 1.5

[[post]]
title = "hello"
user_id = 1

[[post]]
title = "world"
user_id = 2

[empty]
`

func TestDecodeFixture(t *testing.T) {
	fx, err := DecodeFixture(strings.NewReader(sampleFixture))
	if err != nil {
		t.Fatalf("DecodeFixture() error: %v", err)
	}

	if got, want := fx.Names(), []string{"user", "post", "empty"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("table order = %v, want %v", got, want)
	}

	user, _ := fx.Table("user")
	if len(user.Rows) != 3 {
		t.Fatalf("user rows = %d, want 3", len(user.Rows))
	}
	if !user.Rows[0].Doc {
		t.Error("documentation row should sort first")
	}
	if user.Rows[1].Key != 1 || user.Rows[2].Key != 2 {
		t.Errorf("keyed rows out of order: %d, %d", user.Rows[1].Key, user.Rows[2].Key)
	}
	if user.Rows[1].Values["score"] != 1.5 {
		t.Errorf("score = %#v, want 1.5", user.Rows[1].Values["score"])
	}

	post, _ := fx.Table("post")
	if len(post.Rows) != 2 {
		t.Fatalf("post rows = %d, want 2", len(post.Rows))
	}
	for _, r := range post.Rows {
		if r.Key != 0 || r.Doc {
			t.Errorf("list row should have no key: %+v", r)
		}
	}
	if post.Rows[0].Values["user_id"] != int64(1) {
		t.Errorf("user_id = %#v, want int64(1)", post.Rows[0].Values["user_id"])
	}

	empty, _ := fx.Table("empty")
	if len(empty.Rows) != 0 {
		t.Errorf("empty rows = %d, want 0", len(empty.Rows))
	}
}

func TestDecodeFixture_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"scalar at table level", "[user]\nname = \"Ann\"\n", "not a row"},
		{"non-integer key", "[user.first]\nname = \"Ann\"\n", "not an integer"},
		{"top-level scalar", "version = 1\n", "unexpected"},
		{"syntax", "[user.1\n", "parse fixture"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeFixture(strings.NewReader(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestEncodeFixture_RoundTrip(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	in := Fixture{
		Keyed("user", map[int64]Values{
			1:  {"name": "Ann", "joined": at},
			10: {"name": "Zed", "nickname": nil},
		}),
		List("post", Values{"title": "hello"}, Values{"title": "world"}),
		{Name: "empty"},
	}

	var buf bytes.Buffer
	if err := EncodeFixture(&buf, in); err != nil {
		t.Fatalf("EncodeFixture() error: %v", err)
	}
	out, err := DecodeFixture(&buf)
	if err != nil {
		t.Fatalf("DecodeFixture() error: %v\n%s", err, buf.String())
	}

	if got, want := out.Names(), in.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}

	user, _ := out.Table("user")
	if len(user.Rows) != 2 || user.Rows[0].Key != 1 || user.Rows[1].Key != 10 {
		t.Fatalf("user rows = %+v", user.Rows)
	}
	joined, ok := user.Rows[0].Values["joined"].(time.Time)
	if !ok || !joined.Equal(at) {
		t.Errorf("joined = %#v, want %v", user.Rows[0].Values["joined"], at)
	}
	if _, ok := user.Rows[1].Values["nickname"]; ok {
		t.Error("nil values should be omitted")
	}

	post, _ := out.Table("post")
	if len(post.Rows) != 2 || post.Rows[1].Values["title"] != "world" {
		t.Errorf("post rows = %+v", post.Rows)
	}
}

func TestReadFixtureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.toml")
	if err := os.WriteFile(path, []byte(sampleFixture), 0o644); err != nil {
		t.Fatal(err)
	}
	fx, err := ReadFixtureFile(path)
	if err != nil {
		t.Fatalf("ReadFixtureFile() error: %v", err)
	}
	if len(fx) != 3 {
		t.Errorf("tables = %d, want 3", len(fx))
	}

	if _, err := ReadFixtureFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
