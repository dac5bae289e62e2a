package app

import (
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
)

// broadcast queues an event for every subscription that matches it, at most
// once per subscription however many of its filters match. Sending only
// queues, so a slow or dead connection does not hold up the others. Must
// hold mx.
func (rl *Relay) broadcast(ev *event.T) {
	var n int
	rl.sessions.Range(func(_ string, s *Session) bool {
		if s.State() != Active {
			return true
		}
		for id, ff := range s.subs {
			if ff.Match(ev) && s.Send(eventenvelope.New(id, ev)) {
				n++
			}
		}
		return true
	})
	log.T.F("broadcast %s to %d subscriptions", ev.ID, n)
}
