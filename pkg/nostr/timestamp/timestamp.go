package timestamp

import (
	"encoding/binary"
	"time"
)

// T is a convenience type for UNIX 64 bit timestamps of 1 second
// precision.
type T int64

// Now returns the current UNIX timestamp of the current second.
func Now() T { return T(time.Now().Unix()) }

// U64 returns the current UNIX timestamp of the current second as uint64.
func (t T) U64() uint64 { return uint64(t) }

// I64 returns the current UNIX timestamp of the current second as int64.
func (t T) I64() int64 { return int64(t) }

// Time converts a timestamp.Time value into a canonical UNIX 64 bit 1 second
// precision timestamp.
func (t T) Time() time.Time { return time.Unix(int64(t), 0) }

// Int returns the timestamp as an int.
func (t T) Int() int { return int(t) }

// Bytes is the big endian encoding with the sign bit flipped, so the bytes
// sort the same as the values, negative ones included.
func (t T) Bytes() (b []byte) {
	b = make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(t)^signBit)
	return
}

const signBit = 1 << 63

// Ptr returns the pointer so values can register as nil and omitted.
func (t T) Ptr() *T { return &t }

// Clone copies the value behind a pointer, keeping nil as nil.
func Clone(tp *T) *T {
	if tp == nil {
		return nil
	}
	c := *tp
	return &c
}

// FromTime returns a T from a time.Time
func FromTime(t time.Time) T { return T(t.Unix()) }

// FromUnix converts from a standard int64 unix timestamp.
func FromUnix(t int64) T { return T(t) }

// FromBytes decodes the encoding written by Bytes.
func FromBytes(b []byte) T { return T(binary.BigEndian.Uint64(b) ^ signBit) }
