// Package tagvalue is the key element for an indexed tag: the one character
// name followed by a hash prefix of the value, so values of any length give a
// fixed size key.
package tagvalue

import (
	"bytes"
	"fmt"
	"os"

	"github.com/minio/sha256-simd"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

const (
	HashLen = 8
	Len     = 1 + HashLen
)

type T struct {
	Val []byte
}

var _ keys.Element = &T{}

// New makes the element for a tag name and value. The name must be a single
// byte, which is all the tag index accepts.
func New(name, value string) (p *T, err error) {
	if len(name) != 1 {
		err = log.D.Err("tag name %q is not a single character", name)
		return
	}
	h := sha256.Sum256([]byte(value))
	b := make([]byte, 0, Len)
	b = append(b, name[0])
	b = append(b, h[:HashLen]...)
	return &T{Val: b}, nil
}

// Empty allocates an element for reading.
func Empty() *T { return &T{Val: make([]byte, Len)} }

func (p *T) Write(buf *bytes.Buffer) {
	if len(p.Val) != Len {
		panic(fmt.Sprintln("must use New or initialize Val with len", Len))
	}
	buf.Write(p.Val)
}

func (p *T) Read(buf *bytes.Buffer) (el keys.Element) {
	if len(p.Val) != Len {
		p.Val = make([]byte, Len)
	}
	if n, err := buf.Read(p.Val); chk.E(err) || n != Len {
		return nil
	}
	return p
}

func (p *T) Len() int { return Len }
