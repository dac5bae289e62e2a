package app

import (
	"sort"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filters"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
)

// OnConnect registers a new session for a connection and starts its writer.
// A session always starts without subscriptions, also after a reconnect.
func (rl *Relay) OnConnect(conn Conn, remote string) (s *Session) {
	s = newSession(newSessionID(), remote, conn, rl.Limits.MaxQueueBytes)
	rl.mx.Lock()
	rl.sessions.Store(s.ID, s)
	rl.mx.Unlock()
	go s.writer()
	log.T.Ln("session", s.ID, "connected from", remote)
	return
}

// OnDisconnect marks a session closing, drops its subscriptions and removes it
// from the live session table. A failed transport ends up here as well as a
// clean close.
func (rl *Relay) OnDisconnect(s *Session) {
	s.shutdown()
	rl.mx.Lock()
	defer rl.mx.Unlock()
	if _, ok := rl.sessions.LoadAndDelete(s.ID); ok {
		log.T.Ln("session", s.ID, "disconnected from", s.Remote,
			"dropping", len(s.subs), "subscriptions")
	}
	s.subs = make(map[subscriptionid.T]filters.T)
}

// OnClose removes a subscription. Closing one that does not exist is not an
// error.
func (rl *Relay) OnClose(s *Session, id subscriptionid.T) {
	rl.mx.Lock()
	defer rl.mx.Unlock()
	if _, ok := s.subs[id]; ok {
		delete(s.subs, id)
		log.T.Ln("session", s.ID, "closed subscription", id)
	}
}

// setListener stores or replaces a subscription. Must hold mx.
func (rl *Relay) setListener(s *Session, id subscriptionid.T, ff filters.T) {
	s.subs[id] = ff
}

// Subscriptions lists the ids of the subscriptions of a session.
func (rl *Relay) Subscriptions(s *Session) (ids []string) {
	rl.mx.Lock()
	defer rl.mx.Unlock()
	for id := range s.subs {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return
}

// ListeningFilters is every distinct filter of every live subscription.
func (rl *Relay) ListeningFilters() (respFilters filters.T) {
	rl.mx.Lock()
	defer rl.mx.Unlock()
	rl.sessions.Range(func(_ string, s *Session) bool {
		for _, ff := range s.subs {
			for _, listenerFilter := range ff {
				for _, respFilter := range respFilters {
					// check if this filter specifically is already added to
					// respFilters
					if filter.Equal(listenerFilter, respFilter) {
						goto next
					}
				}
				respFilters = append(respFilters, listenerFilter)
			next:
				continue
			}
		}
		return true
	})
	return
}
