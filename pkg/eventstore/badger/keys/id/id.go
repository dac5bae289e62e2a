package id

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

const Len = 8

// T is the first Len bytes of an event id.
type T struct {
	Val []byte
}

var _ keys.Element = &T{}

// New creates an id prefix from a hex event id. With no id, or an id that is
// not a full hex event id, it allocates an empty one for reading.
func New(evID ...string) (p *T) {
	if len(evID) < 1 || len(evID[0]) != event.IDLen {
		return &T{make([]byte, Len)}
	}
	b, err := hex.DecodeString(evID[0][:Len*2])
	if chk.E(err) {
		return &T{make([]byte, Len)}
	}
	return &T{Val: b}
}

func (p *T) Write(buf *bytes.Buffer) {
	if len(p.Val) != Len {
		panic(fmt.Sprintln("must use New or initialize Val with len", Len))
	}
	buf.Write(p.Val)
}

func (p *T) Read(buf *bytes.Buffer) (el keys.Element) {
	// allow uninitialized struct
	if len(p.Val) != Len {
		p.Val = make([]byte, Len)
	}
	if n, err := buf.Read(p.Val); chk.E(err) || n != Len {
		return nil
	}
	return p
}

func (p *T) Len() int { return Len }
