package eventstore

import "errors"

var (
	ErrClosed = errors.New("event store is closed")
	// StaleReason is the OK message for a Rejected replaceable event.
	StaleReason = "blocked: a newer version of this replaceable event is stored"
)
