package app

import (
	"net/http"
)

func (rl *Relay) HandleNIP11(w http.ResponseWriter, r *http.Request) {
	log.T.Ln("serving relay information document to", remoteAddr(r))
	w.Header().Set("Content-Type", "application/nostr+json")
	b, err := rl.Info.Bytes()
	if chk.E(err) {
		http.Error(w, "error: could not encode relay information",
			http.StatusInternalServerError)
		return
	}
	_, err = w.Write(b)
	chk.D(err)
}
