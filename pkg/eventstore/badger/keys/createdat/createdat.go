package createdat

import (
	"bytes"
	"os"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

const Len = 8

type T struct {
	Val timestamp.T
}

var _ keys.Element = &T{}

func New(c timestamp.T) (p *T) { return &T{Val: c} }

func (c *T) Write(buf *bytes.Buffer) {
	buf.Write(c.Val.Bytes())
}

func (c *T) Read(buf *bytes.Buffer) (el keys.Element) {
	b := make([]byte, Len)
	if n, err := buf.Read(b); chk.E(err) || n != Len {
		return nil
	}
	c.Val = timestamp.FromBytes(b)
	return c
}

func (c *T) Len() int { return Len }
