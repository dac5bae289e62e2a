package kinds

import (
	"testing"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
)

func TestKinds(t *testing.T) {
	k := FromIntSlice([]int{0, 3, 10002, 34550})
	if !k.Contains(kind.RelayListMetadata) || k.Contains(kind.TextNote) {
		t.Fatal("contains")
	}
	c := k.Clone()
	if !c.Equals(k) {
		t.Fatal("clone not equal")
	}
	c[0] = kind.TextNote
	if c.Equals(k) || k[0] != kind.ProfileMetadata {
		t.Fatal("clone shares storage")
	}
	is := k.ToIntSlice()
	if len(is) != 4 || is[3] != 34550 {
		t.Fatal(is)
	}
	var empty T
	if empty.Clone() != nil {
		t.Fatal("clone of nil must be nil")
	}
}
