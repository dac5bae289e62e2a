package tags

import (
	"testing"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/tag"
)

func TestTagHelpers(t *testing.T) {
	tt := T{
		{"e", "abc", "wss://relay.example.com"},
		{"p", "def"},
		{"d", ""},
		{"t", "nostr"},
		{"t", "golang"},
		{"single"},
	}
	if !tt.ContainsAny("t", "rust", "golang") {
		t.Fatal("expected t tag match")
	}
	if tt.ContainsAny("t", "rust") {
		t.Fatal("unexpected t tag match")
	}
	if tt.ContainsAny("single", "") {
		t.Fatal("a tag with no value must never match")
	}
	if got := tt.GetAll("t"); len(got) != 2 {
		t.Fatalf("got %d t tags", len(got))
	}
	if d := tt.GetFirst([]string{"d"}); d == nil || d.Value() != "" {
		t.Fatal("d tag")
	}
	if l := tt.GetLast([]string{"t"}); l == nil || l.Value() != "golang" {
		t.Fatal("last t tag")
	}
	if len(tt.FilterOut([]string{"t"})) != 4 {
		t.Fatal("filter out")
	}
	if len(tt.AppendUnique(tag.T{"p", "def", "x"})) != len(tt) {
		t.Fatal("append unique added a duplicate")
	}
	if !tt[0].Indexable() || tt[5].Indexable() {
		t.Fatal("indexable")
	}
	c := tt.Clone()
	c[1][1] = "changed"
	if tt[1][1] != "def" {
		t.Fatal("clone shares storage")
	}
}

func TestMarshalTo(t *testing.T) {
	tt := T{{"e", "a\"b"}, {"t", "line\nbreak"}}
	want := `[["e","a\"b"],["t","line\nbreak"]]`
	if got := tt.String(); got != want {
		t.Fatalf("got %s want %s", got, want)
	}
	if got := (T{}).String(); got != "[]" {
		t.Fatal(got)
	}
}
