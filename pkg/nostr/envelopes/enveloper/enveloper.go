// Package enveloper is the interface of the message arrays exchanged between
// relays and clients.
package enveloper

import (
	"fmt"

	"github.com/mailru/easyjson/jwriter"
)

// I is an envelope: a JSON array whose first element is its label.
type I interface {
	Label() string
	MarshalEasyJSON(w *jwriter.Writer)
	MarshalJSON() ([]byte, error)
	Bytes() []byte
	fmt.Stringer
}

// Marshal writes an envelope with the writer settings every envelope uses.
func Marshal(env I) (b []byte, err error) {
	w := &jwriter.Writer{NoEscapeHTML: true}
	env.MarshalEasyJSON(w)
	return w.BuildBytes()
}
