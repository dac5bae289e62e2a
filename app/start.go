package app

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
)

// Start creates an http server and starts listening on the given address.
// The started channels are closed once the listener is open, after which Addr
// is the address actually listened on.
func (rl *Relay) Start(addr string, started ...chan bool) (err error) {
	var ln net.Listener
	if ln, err = net.Listen("tcp", addr); chk.E(err) {
		return
	}
	rl.Addr = ln.Addr().String()
	rl.httpServer = &http.Server{
		Handler:           cors.Default().Handler(rl),
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}
	log.I.Ln("listening on", rl.Addr)
	// notify caller that we're starting
	for _, s := range started {
		close(s)
	}
	if err = rl.httpServer.Serve(ln); errors.Is(err, http.ErrServerClosed) {
		return nil
	} else if chk.E(err) {
		return
	}
	return
}

// Shutdown stops the http server and closes every session.
func (rl *Relay) Shutdown(c context.T) {
	if rl.httpServer != nil {
		chk.E(rl.httpServer.Shutdown(c))
	}
	rl.sessions.Range(func(_ string, s *Session) bool {
		rl.OnDisconnect(s)
		return true
	})
	log.I.Ln("relay shut down")
}
