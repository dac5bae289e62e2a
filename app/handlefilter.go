package app

import (
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/eoseenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/noticeenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/reqenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
)

// OnReq opens or replaces a subscription, replays the stored events of each
// filter and ends the replay with EOSE. The whole replay happens under the
// actor lock so no live event can be delivered for the subscription before
// its EOSE.
//
// An event that matches more than one filter is sent once for each of them.
func (rl *Relay) OnReq(c context.T, s *Session, env *reqenvelope.T) {
	rl.mx.Lock()
	defer rl.mx.Unlock()
	if s.State() != Active {
		return
	}
	id := env.SubscriptionID
	if !id.IsValidLen(rl.Limits.MaxSubIDLength) {
		s.Send(noticeenvelope.New(
			"invalid: subscription id must be 1 to %d characters",
			rl.Limits.MaxSubIDLength))
		return
	}
	if len(env.Filters) > rl.Limits.MaxFilters {
		s.Send(noticeenvelope.New(
			"blocked: too many filters in subscription %s, the limit is %d",
			id, rl.Limits.MaxFilters))
		return
	}
	if _, exists := s.subs[id]; !exists &&
		len(s.subs) >= rl.Limits.MaxSubscriptions {
		s.Send(noticeenvelope.New(
			"blocked: too many subscriptions, the limit is %d",
			rl.Limits.MaxSubscriptions))
		return
	}
	rl.setListener(s, id, env.Filters)
	for _, f := range env.Filters {
		rl.handleFilter(c, s, id, f)
	}
	s.Send(eoseenvelope.New(id))
}

// handleFilter sends the stored events that match one filter. A failed query
// is logged and sends nothing. Must hold mx.
func (rl *Relay) handleFilter(c context.T, s *Session, id subscriptionid.T,
	f *filter.T) {

	q := f.Clone()
	limit := rl.Limits.Query.ClampLimit(f.Limit)
	q.Limit = &limit
	evs, err := rl.Store.Query(c, q)
	if chk.E(err) {
		return
	}
	log.T.F("subscription %s %s: %d stored events for %s", s.ID, id,
		len(evs), f)
	for _, ev := range evs {
		if !s.Send(eventenvelope.New(id, ev)) {
			return
		}
	}
}
