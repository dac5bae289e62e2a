package text

import (
	"encoding/json"
	"testing"
)

func TestEscapeString(t *testing.T) {
	cases := map[string]string{
		"plain":           `"plain"`,
		`say "hi"`:        `"say \"hi\""`,
		`back\slash`:      `"back\\slash"`,
		"line\nbreak":     `"line\nbreak"`,
		"tab\there":       `"tab\there"`,
		"\b\f\r":          `"\b\f\r"`,
		"\x00\x01\x0b":    `"\u0000\u0001\u000b"`,
		"\x10\x19\x1a\x1f": `"\u0010\u0019\u001a\u001f"`,
		"<html> & ünï":    `"<html> & ünï"`,
	}
	for in, want := range cases {
		got := string(EscapeString(nil, in))
		if got != want {
			t.Errorf("EscapeString(%q) = %s, want %s", in, got, want)
		}
		var back string
		if err := json.Unmarshal([]byte(got), &back); err != nil {
			t.Errorf("%s is not valid JSON: %v", got, err)
		} else if back != in {
			t.Errorf("round trip of %q gave %q", in, back)
		}
	}
}

func TestTrunc(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	if got := Trunc(string(long)); len(got) != 256 {
		t.Fatalf("truncated length %d", len(got))
	}
	if Trunc("short") != "short" {
		t.Fatal("short strings must not change")
	}
}
