package app

import (
	"io"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
)

// HardReadLimit is how many times MaxMessageSize a frame may be before the
// connection is dropped instead of the frame being refused with a NOTICE.
const HardReadLimit = 16

type readParams struct {
	c    context.T
	kill func()
	s    *Session
	conn *websocket.Conn
}

func (rl *Relay) websocketReadMessages(p readParams) {
	defer p.kill()
	maxSize := int64(rl.Limits.MaxMessageSize)
	p.conn.SetReadLimit(maxSize * HardReadLimit)
	log.E.Chk(p.conn.SetReadDeadline(time.Now().Add(rl.PongWait)))
	p.conn.SetPongHandler(func(string) (err error) {
		err = p.conn.SetReadDeadline(time.Now().Add(rl.PongWait))
		log.E.Chk(err)
		return
	})
	for {
		var err error
		var r io.Reader
		if _, r, err = p.conn.NextReader(); log.D.Chk(err) {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,    // 1000
				websocket.CloseGoingAway,        // 1001
				websocket.CloseNoStatusReceived, // 1005
				websocket.CloseAbnormalClosure,  // 1006
			) {
				log.E.F("unexpected close error from %s: %v", p.s.Remote, err)
			}
			return
		}
		// read one byte past the limit so an oversized frame can be refused,
		// then skip the rest of it.
		var message []byte
		if message, err = io.ReadAll(io.LimitReader(r,
			maxSize+1)); log.D.Chk(err) {
			return
		}
		if int64(len(message)) > maxSize {
			if _, err = io.Copy(io.Discard, r); log.D.Chk(err) {
				return
			}
		}
		log.T.F("receiving message from %s: %d bytes", p.s.Remote,
			len(message))
		rl.wsProcessMessages(message, p.c, p.s)
	}
}
