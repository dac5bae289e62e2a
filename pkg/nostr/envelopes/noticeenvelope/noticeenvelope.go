package noticeenvelope

import (
	"fmt"

	"github.com/mailru/easyjson/jwriter"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/labels"
)

var _ enveloper.I = (*T)(nil)

// T is a human readable message from the relay that is not tied to an event
// or subscription.
type T struct {
	Text string
}

func New(format string, a ...any) *T {
	return &T{Text: fmt.Sprintf(format, a...)}
}

func (env *T) Label() string { return labels.NOTICE }

func (env *T) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`["NOTICE",`)
	w.String(env.Text)
	w.RawByte(']')
}

func (env *T) MarshalJSON() ([]byte, error) { return enveloper.Marshal(env) }

func (env *T) Bytes() (b []byte) {
	b, _ = env.MarshalJSON()
	return
}

func (env *T) String() string { return string(env.Bytes()) }
