package app

import (
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
)

// wsConn writes whole text messages to a websocket.
type wsConn struct {
	*websocket.Conn
	writeWait time.Duration
}

func (w wsConn) Write(b []byte) (err error) {
	if err = w.SetWriteDeadline(time.Now().Add(w.writeWait)); err != nil {
		return
	}
	return w.WriteMessage(websocket.TextMessage, b)
}

// Close says goodbye to the client if it still can and drops the
// connection.
func (w wsConn) Close() (err error) {
	_ = w.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(time.Second))
	return w.Conn.Close()
}

func (rl *Relay) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	rr := remoteAddr(r)
	if !rl.allowedIP(rr) {
		log.T.F("denying access to '%s': not on the whitelist", rr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	var err error
	var conn *websocket.Conn
	if conn, err = rl.upgrader.Upgrade(w, r, nil); chk.E(err) {
		log.E.F("failed to upgrade websocket: %v", err)
		return
	}
	log.T.Ln("inbound connection from", rr)
	s := rl.OnConnect(wsConn{conn, rl.WriteWait}, rr)
	c, cancel := context.Cancel(rl.Ctx)
	ticker := time.NewTicker(rl.PingPeriod)
	var once sync.Once
	kill := func() {
		once.Do(func() {
			log.T.Ln("disconnecting websocket", rr)
			ticker.Stop()
			cancel()
			rl.OnDisconnect(s)
		})
	}
	go rl.websocketReadMessages(readParams{c, kill, s, conn})
	go rl.websocketWatcher(watcherParams{c, kill, ticker, s, conn})
}
