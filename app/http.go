package app

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fasthttp/websocket"
	"github.com/rs/cors"
)

// ServeHTTP implements http.Handler interface.
//
// This is the main starting function of the relay. This launches
// HandleWebsocket which runs the message handling main loop.
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-rl.Ctx.Done():
		log.W.Ln("shutting down")
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}
	if websocket.IsWebSocketUpgrade(r) {
		rl.HandleWebsocket(w, r)
	} else if strings.Contains(r.Header.Get("Accept"), "application/nostr+json") {
		cors.AllowAll().Handler(http.HandlerFunc(rl.HandleNIP11)).
			ServeHTTP(w, r)
	} else {
		rl.serveMux.ServeHTTP(w, r)
	}
}

// Router is the mux for plain HTTP requests, to add more handlers to.
func (rl *Relay) Router() *http.ServeMux { return rl.serveMux }

// HandleRoot tells a browser what this is and how busy it is.
func (rl *Relay) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	chk.E(json.NewEncoder(w).Encode(struct {
		Name          string `json:"name"`
		Software      string `json:"software"`
		Version       string `json:"version"`
		Sessions      int    `json:"sessions"`
		Subscriptions int    `json:"distinct_filters"`
	}{
		Name:          rl.Info.Name,
		Software:      Software,
		Version:       Version,
		Sessions:      rl.Sessions(),
		Subscriptions: len(rl.ListeningFilters()),
	}))
}
