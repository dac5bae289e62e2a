// Package envelopes holds the messages of the relay protocol, each a JSON
// array tagged by a label, in the subpackages named for them.
package envelopes

import (
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/enveloper"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/sentinel"
)

// ProcessEnvelope scans a message and if it finds a correctly formed
// enveloper.I it unmarshals it and returns it. The label is returned even when
// decoding the rest of the envelope fails.
func ProcessEnvelope(b []byte) (env enveloper.I, label string, err error) {
	var arr []gjson.Result
	if label, arr, err = sentinel.Identify(b); err != nil {
		return
	}
	env, err = sentinel.Read(label, arr)
	return
}
