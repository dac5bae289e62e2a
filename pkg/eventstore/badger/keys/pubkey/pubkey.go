package pubkey

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

type T struct {
	Val []byte
}

var _ keys.Element = &T{}

// New creates a new pubkey prefix, if parameter is omitted, new one is
// allocated (for read) if more than one is given, only the first is used, and
// if the first one is not the correct hexadecimal length of 64, return error.
func New(pk ...string) (p *T, err error) {
	if len(pk) < 1 {
		return &T{make([]byte, Len)}, nil
	}
	if len(pk[0]) != event.PubKeyLen {
		err = log.E.Err("pubkey hex must be %d chars, got %d",
			event.PubKeyLen, len(pk[0]))
		return
	}
	var b []byte
	if b, err = hex.DecodeString(pk[0][:Len*2]); chk.E(err) {
		return
	}
	return &T{Val: b}, nil
}

func (p *T) Write(buf *bytes.Buffer) {
	if p == nil {
		panic("nil pubkey")
	}
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
