package app

import (
	"strings"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
)

type watcherParams struct {
	ctx  context.T
	kill func()
	t    *time.Ticker
	s    *Session
	conn *websocket.Conn
}

// websocketWatcher pings the client every PingPeriod and tears the session
// down when a ping fails, the session closes or the relay stops.
func (rl *Relay) websocketWatcher(p watcherParams) {
	var err error
	defer p.kill()
	for {
		select {
		case <-rl.Ctx.Done():
			return
		case <-p.ctx.Done():
			return
		case <-p.s.Done():
			return
		case <-p.t.C:
			if err = p.conn.WriteControl(websocket.PingMessage, nil,
				time.Now().Add(rl.WriteWait)); log.T.Chk(err) {
				if !strings.HasSuffix(err.Error(),
					"use of closed network connection") {
					log.T.F("error writing ping: %v; closing websocket", err)
				}
				return
			}
		}
	}
}
