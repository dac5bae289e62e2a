package arb

import (
	"bytes"
	"os"

	"github.com/minio/sha256-simd"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// T is an arbitrary length byte string. In any construction there can only be
// one with arbitrary length. Custom lengths can be created by calling New with
// the custom length in it, both for Read and Write operations.
type T struct {
	Val []byte
}

var _ keys.Element = &T{}

// New creates a new arb.T. This must have the expected length for the provided
// byte slice as this is what the Read method will aim to copy.
func New(b []byte) (p *T) {
	if len(b) == 0 {
		log.T.Ln("empty or nil slice is the same as zero value")
		return &T{}
	}
	return &T{Val: b}
}

func NewWithLen(l int) (p *T)       { return &T{Val: make([]byte, l)} }
func NewFromString(s string) (p *T) { return New([]byte(s)) }

// Hash is the sha256 of s as an element, for keys that must have a fixed size
// whatever the length of s.
func Hash(s string) (p *T) {
	h := sha256.Sum256([]byte(s))
	return New(h[:])
}

func (p *T) Write(buf *bytes.Buffer) {
	if len(p.Val) == 0 {
		log.W.Ln("empty slice has no effect")
		return
	}
	buf.Write(p.Val)
}

func (p *T) Read(buf *bytes.Buffer) (el keys.Element) {
	if len(p.Val) < 1 {
		log.W.Ln("empty slice has no effect")
		return
	}
	if _, err := buf.Read(p.Val); chk.E(err) {
		return nil
	}
	return p
}

func (p *T) Len() int {
	if p == nil {
		panic("uninitialized pointer to arb.T")
	}
	return len(p.Val)
}
