package sentinel

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/closeenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/eoseenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/noticeenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/okenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/reqenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filters"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
)

func malformed(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, a...))
}

// Read builds the envelope for a label found by Identify.
//
// The event of a client EVENT envelope is left undecoded, see
// eventenvelope.T.Decode.
func Read(label string, arr []gjson.Result) (env enveloper.I, err error) {
	switch label {
	case labels.EVENT:
		if len(arr) == 2 {
			env = &eventenvelope.T{Raw: arr[1]}
			return
		}
		if arr[1].Type != gjson.String {
			err = malformed("EVENT subscription id is not a string")
			return
		}
		var ev *event.T
		if ev, err = event.FromResult(arr[2]); chk.T(err) {
			err = malformed("EVENT: %s", err)
			return
		}
		env = &eventenvelope.T{
			SubscriptionID: subscriptionid.T(arr[1].Str),
			Event:          ev,
			Raw:            arr[2],
		}
	case labels.REQ:
		if arr[1].Type != gjson.String {
			err = malformed("REQ subscription id is not a string")
			return
		}
		ff := make(filters.T, 0, len(arr)-2)
		for i, r := range arr[2:] {
			var f *filter.T
			if f, err = filter.FromResult(r); chk.T(err) {
				err = malformed("REQ filter %d: %s", i, err)
				return
			}
			ff = append(ff, f)
		}
		env = reqenvelope.New(subscriptionid.T(arr[1].Str), ff)
	case labels.CLOSE:
		if arr[1].Type != gjson.String {
			err = malformed("CLOSE subscription id is not a string")
			return
		}
		env = closeenvelope.New(subscriptionid.T(arr[1].Str))
	case labels.OK:
		if len(arr) < 3 || arr[1].Type != gjson.String || !arr[2].IsBool() {
			err = malformed("OK must have an event id and a boolean")
			return
		}
		ok := okenvelope.New(arr[1].Str, arr[2].Bool(), "")
		if len(arr) > 3 {
			ok.Reason = arr[3].Str
		}
		env = ok
	case labels.NOTICE:
		env = &noticeenvelope.T{Text: arr[1].Str}
	case labels.EOSE:
		if arr[1].Type != gjson.String {
			err = malformed("EOSE subscription id is not a string")
			return
		}
		env = eoseenvelope.New(subscriptionid.T(arr[1].Str))
	default:
		err = ErrNotEnvelope
	}
	return
}
