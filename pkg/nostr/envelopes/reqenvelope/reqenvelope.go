package reqenvelope

import (
	"github.com/mailru/easyjson/jwriter"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filters"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
)

var _ enveloper.I = (*T)(nil)

// T is the wrapper for a query to a relay.
type T struct {
	SubscriptionID subscriptionid.T
	Filters        filters.T
}

func New(si subscriptionid.T, ff filters.T) *T {
	return &T{SubscriptionID: si, Filters: ff}
}

func (env *T) Label() string { return labels.REQ }

func (env *T) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`["REQ",`)
	w.String(string(env.SubscriptionID))
	for _, f := range env.Filters {
		w.RawByte(',')
		f.MarshalEasyJSON(w)
	}
	w.RawByte(']')
}

func (env *T) MarshalJSON() ([]byte, error) { return enveloper.Marshal(env) }

func (env *T) Bytes() (b []byte) {
	b, _ = env.MarshalJSON()
	return
}

func (env *T) String() string { return string(env.Bytes()) }
