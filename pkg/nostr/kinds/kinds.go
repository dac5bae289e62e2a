package kinds

import (
	"golang.org/x/exp/slices"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
)

type T []kind.T

func FromIntSlice(is []int) (k T) {
	for i := range is {
		k = append(k, kind.T(is[i]))
	}
	return
}

// ToIntSlice is the inverse of FromIntSlice, used for flag and config values.
func (ar T) ToIntSlice() (is []int) {
	is = make([]int, len(ar))
	for i := range ar {
		is[i] = int(ar[i])
	}
	return
}

// Clone makes a new kind.T with the same members.
func (ar T) Clone() (c T) {
	if ar == nil {
		return
	}
	c = make(T, len(ar))
	copy(c, ar)
	return
}

// Contains returns true if the provided element is found in the kinds.T.
func (ar T) Contains(s kind.T) bool { return slices.Contains(ar, s) }

// Equals checks that the provided kind.T matches.
func (ar T) Equals(t1 T) bool { return slices.Equal(ar, t1) }
