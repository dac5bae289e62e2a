// Package eventstore is the contract between the relay and the databases that
// keep its events, with the replacement and deletion rules every backend
// applies the same way.
package eventstore

import (
	"io"
	"os"
	"time"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// Outcome is the result of an Insert.
type Outcome int

const (
	// Accepted is a new event, stored unless it is ephemeral.
	Accepted Outcome = iota
	// Duplicate is an event whose id is already stored. Nothing changed.
	Duplicate
	// Superseded is a replaceable event that was stored in place of an older
	// version with the same address.
	Superseded
	// Rejected is a replaceable event older than the stored version.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Duplicate:
		return "duplicate"
	case Superseded:
		return "superseded"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Store is a persistence layer for nostr events handled by a relay.
type Store interface {
	// Insert applies the storage rules for the class of the event kind and
	// persists the event together with its tag index in one transaction:
	//
	//   - ephemeral events are Accepted and not stored;
	//   - an id already stored is a Duplicate;
	//   - a replaceable or parameterized replaceable event older than the
	//     stored one with the same address is Rejected, otherwise the stored
	//     one is removed and the result is Superseded;
	//   - a deletion removes the events its e tags name that have the same
	//     author as the deletion, and is itself stored.
	Insert(c context.T, ev *event.T) (o Outcome, err error)
	// Query returns the events matching f, newest first with ties broken by
	// ascending id, at most ClampLimit(f.Limit) of them.
	Query(c context.T, f *filter.T) (evs []*event.T, err error)
	// Prune deletes events older than maxAge whose kind is not protected, and
	// returns how many were deleted.
	Prune(c context.T, maxAge time.Duration, protected kinds.T) (n int, err error)
	// Close must be called after you're done using the store, to free up
	// resources and so on.
	Close() (err error)
}

// Wiper is a store that can delete everything it holds.
type Wiper interface {
	Wipe() (err error)
}

// Exporter is a store that can write all of its events as line structured
// JSON, one event per line.
type Exporter interface {
	Export(c context.T, w io.Writer) (err error)
}
