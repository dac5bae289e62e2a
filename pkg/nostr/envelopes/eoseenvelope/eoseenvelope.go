package eoseenvelope

import (
	"github.com/mailru/easyjson/jwriter"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
)

var _ enveloper.I = (*T)(nil)

// T marks the end of the stored events of a subscription, after which only
// newly received events are sent.
type T struct {
	SubscriptionID subscriptionid.T
}

func New(si subscriptionid.T) *T { return &T{SubscriptionID: si} }

func (env *T) Label() string { return labels.EOSE }

func (env *T) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`["EOSE",`)
	w.String(string(env.SubscriptionID))
	w.RawByte(']')
}

func (env *T) MarshalJSON() ([]byte, error) { return enveloper.Marshal(env) }

func (env *T) Bytes() (b []byte) {
	b, _ = env.MarshalJSON()
	return
}

func (env *T) String() string { return string(env.Bytes()) }
