package eventenvelope

import (
	"github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
)

var _ enveloper.I = (*T)(nil)

// T is the wrapper around an event. Sent by a client it has no subscription
// id, sent by a relay it names the subscription the event matched.
type T struct {
	// The SubscriptionID field is optional, and may at most contain 64 characters,
	// sufficient for encoding a 256 bit hash as hex.
	SubscriptionID subscriptionid.T
	// The Event is here a pointer because it should not be copied unnecessarily.
	Event *event.T
	// Raw is the undecoded event of a received envelope. The receiver decides
	// how to report a malformed event so decoding is deferred.
	Raw gjson.Result
}

// New makes the relay form of the envelope for a subscription.
func New(si subscriptionid.T, ev *event.T) *T {
	return &T{SubscriptionID: si, Event: ev}
}

func (env *T) Label() string { return labels.EVENT }

// Decode checks and decodes the received event, returning whatever id could
// be found even when the event is malformed.
func (env *T) Decode() (id string, ev *event.T, err error) {
	if id, err = event.Fields(env.Raw); err != nil {
		return
	}
	if ev, err = event.FromResult(env.Raw); err != nil {
		return
	}
	env.Event = ev
	return
}

func (env *T) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`["EVENT",`)
	if env.SubscriptionID != "" {
		w.String(string(env.SubscriptionID))
		w.RawByte(',')
	}
	if env.Event != nil {
		env.Event.MarshalEasyJSON(w)
	} else if env.Raw.Raw != "" {
		w.RawString(env.Raw.Raw)
	} else {
		w.RawString("null")
	}
	w.RawByte(']')
}

func (env *T) MarshalJSON() ([]byte, error) { return enveloper.Marshal(env) }

func (env *T) Bytes() (b []byte) {
	b, _ = env.MarshalJSON()
	return
}

func (env *T) String() string { return string(env.Bytes()) }
