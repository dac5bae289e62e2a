package okenvelope

import (
	"github.com/mailru/easyjson/jwriter"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/labels"
)

var _ enveloper.I = (*T)(nil)

// T is a relay message sent in response to an EventEnvelope to
// indicate acceptance (OK is true), rejection and provide a human readable
// Reason for clients to display to users, with the first word being a machine
// readable reason type, followed by ": " and a human readable message.
type T struct {
	ID     string
	OK     bool
	Reason string
}

func New(eventID string, ok bool, reason string) *T {
	return &T{ID: eventID, OK: ok, Reason: reason}
}

func (env *T) Label() string { return labels.OK }

func (env *T) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`["OK",`)
	w.String(env.ID)
	w.RawByte(',')
	w.Bool(env.OK)
	w.RawByte(',')
	w.String(env.Reason)
	w.RawByte(']')
}

func (env *T) MarshalJSON() ([]byte, error) { return enveloper.Marshal(env) }

func (env *T) Bytes() (b []byte) {
	b, _ = env.MarshalJSON()
	return
}

func (env *T) String() string { return string(env.Bytes()) }
