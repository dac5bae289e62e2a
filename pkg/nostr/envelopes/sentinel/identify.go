// Package sentinel recognises envelopes by their label and decodes them.
package sentinel

import (
	"errors"
	"os"

	"github.com/tidwall/gjson"
	"golang.org/x/exp/slices"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/labels"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

var (
	// ErrInvalidJSON is a message that is not JSON at all.
	ErrInvalidJSON = errors.New("message is not valid JSON")
	// ErrNotEnvelope is valid JSON that is not an array of at least two
	// elements starting with a known label. Such messages are ignored.
	ErrNotEnvelope = errors.New("message is not an envelope")
	// ErrMalformed is an envelope with a known label whose other elements
	// are the wrong shape.
	ErrMalformed = errors.New("malformed envelope")
)

// Identify takes a byte slice and scans it as a nostr envelope array, and
// returns the label and the elements of the array ready for Read.
func Identify(b []byte) (label string, arr []gjson.Result, err error) {
	if !gjson.ValidBytes(b) {
		err = ErrInvalidJSON
		return
	}
	r := gjson.ParseBytes(b)
	if !r.IsArray() {
		err = ErrNotEnvelope
		return
	}
	arr = r.Array()
	if len(arr) < 2 || arr[0].Type != gjson.String {
		err = ErrNotEnvelope
		return
	}
	label = arr[0].Str
	if !slices.Contains(labels.List, label) {
		log.T.F("label '%s' not recognised as envelope label", label)
		err = ErrNotEnvelope
	}
	return
}
