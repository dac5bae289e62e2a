package filters

import (
	"github.com/mailru/easyjson/jwriter"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
)

// T is the list of filters of a subscription. An event matches the
// subscription if it matches any of them.
type T []*filter.T

func (eff T) Match(event *event.T) bool {
	for _, f := range eff {
		if f.Matches(event) {
			return true
		}
	}
	return false
}

func (eff T) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('[')
	for i := range eff {
		if i > 0 {
			w.RawByte(',')
		}
		eff[i].MarshalEasyJSON(w)
	}
	w.RawByte(']')
}

func (eff T) String() string {
	w := &jwriter.Writer{NoEscapeHTML: true}
	eff.MarshalEasyJSON(w)
	b, _ := w.BuildBytes()
	return string(b)
}
