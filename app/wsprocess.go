package app

import (
	"errors"
	"runtime/debug"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/closeenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/noticeenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/reqenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/sentinel"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/text"
)

// wsProcessMessages decodes one frame from a client and hands it to the
// actor. Problems with the frame, and any panic while handling it, are
// reported to this client alone with a NOTICE.
func (rl *Relay) wsProcessMessages(msg []byte, c context.T, s *Session) {
	defer func() {
		if r := recover(); r != nil {
			log.E.F("panic handling message from %s: %v\n%s", s.Remote, r,
				debug.Stack())
			s.Send(noticeenvelope.New("error: failed to handle message"))
		}
	}()
	if s.State() != Active {
		return
	}
	if len(msg) > rl.Limits.MaxMessageSize {
		log.D.F("rejecting message with size: %d from %s", len(msg), s.Remote)
		s.Send(noticeenvelope.New(
			"invalid: relay limit disallows messages larger than %d bytes",
			rl.Limits.MaxMessageSize))
		return
	}
	en, label, err := envelopes.ProcessEnvelope(msg)
	switch {
	case errors.Is(err, sentinel.ErrNotEnvelope):
		log.T.F("ignoring message from %s: %s", s.Remote,
			text.Trunc(string(msg)))
		return
	case errors.Is(err, sentinel.ErrInvalidJSON):
		s.Send(noticeenvelope.New("invalid: could not parse message as JSON"))
		return
	case err != nil:
		log.D.F("malformed %s from %s: %v", label, s.Remote, err)
		s.Send(noticeenvelope.New("invalid: %s", err.Error()))
		return
	}
	switch env := en.(type) {
	case *eventenvelope.T:
		rl.OnEvent(c, s, env)
	case *reqenvelope.T:
		rl.OnReq(c, s, env)
	case *closeenvelope.T:
		rl.OnClose(s, env.SubscriptionID)
	default:
		log.T.F("ignoring %s from client %s", label, s.Remote)
	}
}
