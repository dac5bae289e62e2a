package app

import (
	"errors"
	"strings"
	"time"

	"github.com/Hubmakerlabs/relayd/pkg/acl"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/normalize"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

// RejectEvent is a policy applied to a verified event before the actor sees
// it. A rejection message carries its machine readable prefix.
type RejectEvent func(c context.T, ev *event.T) (reject bool, msg string)

// OK messages of rejected events.
const (
	MissingFields       = "invalid: missing required fields"
	BadSignature        = "invalid: bad signature"
	NotAllowed          = "restricted: pubkey not allowed"
	AuthorizationFailed = "error: could not check authorization"
	TooFarInFuture      = "invalid: created_at too far in future"
	DuplicateEvent      = "duplicate: already have this event"
	SaveFailed          = "error: could not save event"
)

// RestrictToAllowed rejects events from pubkeys the checker does not allow.
func RestrictToAllowed(checker acl.Checker) RejectEvent {
	return func(c context.T, ev *event.T) (reject bool, msg string) {
		allowed, err := checker.IsAllowed(c, ev.PubKey)
		if chk.E(err) {
			return true, AuthorizationFailed
		}
		if !allowed {
			log.D.Ln("pubkey not allowed to publish", ev.PubKey)
			return true, NotAllowed
		}
		return false, ""
	}
}

// PreventTimestampsInTheFuture rejects events dated more than threshold
// after the time now returns.
func PreventTimestampsInTheFuture(threshold time.Duration,
	now func() time.Time) RejectEvent {
	return func(c context.T, ev *event.T) (reject bool, msg string) {
		if ev.CreatedAt > timestamp.FromTime(now().Add(threshold)) {
			return true, TooFarInFuture
		}
		return false, ""
	}
}

// checkEvent decodes and verifies a received event and applies the policies.
// It touches no shared state so it runs before the actor lock is taken. If
// the event is refused reason is the OK message.
func (rl *Relay) checkEvent(c context.T, raw eventDecoder) (id string,
	ev *event.T, reason string) {

	var err error
	if id, ev, err = raw.Decode(); err != nil {
		log.D.F("refusing event %q: %v", id, err)
		ev = nil
		if errors.Is(err, event.ErrMissingFields) {
			reason = MissingFields
		} else {
			reason = normalize.Reason(err.Error(), normalize.Invalid)
		}
		return
	}
	if !ev.Verify() {
		log.D.Ln("bad signature on event", id)
		reason = BadSignature
		return
	}
	for _, rej := range rl.RejectEvent {
		if reject, msg := rej(c, ev); reject {
			if reason = msg; !strings.Contains(msg, ":") {
				reason = normalize.Reason(msg, normalize.Blocked)
			}
			return
		}
	}
	return
}

type eventDecoder interface {
	Decode() (id string, ev *event.T, err error)
}
