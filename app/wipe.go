package app

import (
	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
)

// Wipe deletes every event in the store.
func (rl *Relay) Wipe() (err error) {
	rl.mx.Lock()
	defer rl.mx.Unlock()
	w, ok := rl.Store.(eventstore.Wiper)
	if !ok {
		return log.E.Err("event store %T cannot be wiped", rl.Store)
	}
	if err = w.Wipe(); chk.E(err) {
		return
	}
	log.I.Ln("event store wiped")
	return
}
