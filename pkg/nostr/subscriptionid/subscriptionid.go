package subscriptionid

import (
	"errors"
)

// MaxLen is the default limit on the length of a subscription id.
const MaxLen = 64

var ErrInvalid = errors.New("invalid subscription id")

// T is an arbitrary string of 1-64 characters in length generated
// as a request or session identifier.
type T string

// New inspects a string and converts to T if it is valid, which means between
// one and max bytes long. A max of zero or less is MaxLen.
func New(s string, max int) (T, error) {
	si := T(s)
	if si.IsValidLen(max) {
		return si, nil
	}
	return "", ErrInvalid
}

// IsValid returns true if the subscription id is between 1 and 64 characters.
// Invalid means too long or not present.
func (si T) IsValid() bool { return si.IsValidLen(MaxLen) }

// IsValidLen is IsValid with a configured limit.
func (si T) IsValidLen(max int) bool {
	if max <= 0 {
		max = MaxLen
	}
	return len(si) <= max && len(si) > 0
}

func (si T) String() string { return string(si) }
