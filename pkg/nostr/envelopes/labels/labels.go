// Package labels names the envelopes of the relay protocol.
package labels

const (
	EVENT  = "EVENT"
	OK     = "OK"
	NOTICE = "NOTICE"
	EOSE   = "EOSE"
	CLOSE  = "CLOSE"
	REQ    = "REQ"
)

// List is the labels that have an envelope. Messages with any other label,
// such as AUTH or COUNT, are not envelopes to this relay.
var List = []string{EVENT, OK, NOTICE, EOSE, CLOSE, REQ}
