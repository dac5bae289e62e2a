package app

import (
	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/okenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
)

// OnEvent handles an EVENT from a client, which always gets exactly one OK
// back. The checks that need no shared state run first, then the event is
// stored, acknowledged and broadcast under the actor lock.
func (rl *Relay) OnEvent(c context.T, s *Session, raw eventDecoder) {
	id, ev, reason := rl.checkEvent(c, raw)
	if ev == nil || reason != "" {
		s.Send(okenvelope.New(id, false, reason))
		return
	}
	rl.mx.Lock()
	defer rl.mx.Unlock()
	if s.State() != Active {
		return
	}
	ok, reason, fresh := rl.AddEvent(c, ev)
	s.Send(okenvelope.New(ev.ID, ok, reason))
	if fresh {
		rl.broadcast(ev)
	}
}

// AddEvent stores an event, returning the OK flag and message and whether the
// event is new to the relay and so must be broadcast. Stored events are also
// handed to the notifier. Must hold mx.
func (rl *Relay) AddEvent(c context.T, ev *event.T) (ok bool, reason string,
	fresh bool) {

	if ev.Kind.IsEphemeral() {
		log.T.Ln("ephemeral event", ev.ID, kind.GetString(ev.Kind))
		return true, "", true
	}
	o, err := rl.Store.Insert(c, ev)
	if chk.E(err) {
		return false, SaveFailed, false
	}
	log.D.F("event %s kind %d from %s: %s", ev.ID, ev.Kind, ev.PubKey, o)
	switch o {
	case eventstore.Duplicate:
		return true, DuplicateEvent, false
	case eventstore.Rejected:
		return false, eventstore.StaleReason, false
	}
	rl.Notifier.Notify(ev)
	return true, "", true
}
