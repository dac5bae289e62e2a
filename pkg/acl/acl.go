// Package acl decides which pubkeys may publish events to the relay.
package acl

import (
	"errors"
	"os"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// Checker is the authorization oracle consulted for every event before it is
// stored.
type Checker interface {
	IsAllowed(c context.T, pubkey string) (allowed bool, err error)
}

// Open allows everyone.
type Open struct{}

func (Open) IsAllowed(context.T, string) (bool, error) { return true, nil }

// Any allows a pubkey if one of its checkers does. Errors are only returned
// when no checker allowed the pubkey.
type Any []Checker

func (a Any) IsAllowed(c context.T, pubkey string) (allowed bool, err error) {
	var errs []error
	for _, ch := range a {
		var e error
		if allowed, e = ch.IsAllowed(c, pubkey); e != nil {
			errs = append(errs, e)
			continue
		}
		if allowed {
			return true, nil
		}
	}
	return false, errors.Join(errs...)
}
