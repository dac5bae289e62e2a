package eventstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

const (
	// DefaultLimit applies to a filter with no limit, or a limit of zero.
	DefaultLimit = 100
	// MaxLimit is the most events a single filter can return.
	MaxLimit = 500
)

// Limits are the query size limits of a store.
type Limits struct {
	Default, Max int
}

// ClampLimit gives the number of events a query for the given filter limit
// may return.
func (l Limits) ClampLimit(limit *int) int {
	max, def := l.Max, l.Default
	if max <= 0 {
		max = MaxLimit
	}
	if def <= 0 {
		def = DefaultLimit
	}
	if def > max {
		def = max
	}
	switch {
	case limit == nil || *limit <= 0:
		return def
	case *limit > max:
		return max
	default:
		return *limit
	}
}

// ClampLimit is Limits.ClampLimit with the default limits.
func ClampLimit(limit *int) int { return Limits{}.ClampLimit(limit) }

// DTag is the value of the first d tag, or "" if there is none.
func DTag(ev *event.T) string {
	for _, t := range ev.Tags {
		if len(t) >= 2 && t.Key() == "d" {
			return t.Value()
		}
	}
	return ""
}

// Address identifies the slot a replaceable event occupies:
//
//	<kind>:<pubkey> for replaceable kinds and
//	<kind>:<pubkey>:<d tag> for parameterized replaceable kinds.
//
// Other kinds have no address and return "".
func Address(ev *event.T) string {
	switch {
	case ev.Kind.IsReplaceable():
		return fmt.Sprintf("%d:%s", ev.Kind, ev.PubKey)
	case ev.Kind.IsParameterizedReplaceable():
		return fmt.Sprintf("%d:%s:%s", ev.Kind, ev.PubKey, DTag(ev))
	default:
		return ""
	}
}

// Replaceable is true for events that have an Address.
func Replaceable(k kind.T) bool {
	return k.IsReplaceable() || k.IsParameterizedReplaceable()
}

// Stale is true when a stored event with the same address as the incoming one
// is strictly newer. An equal timestamp is not stale and the incoming event
// replaces the stored one.
func Stale(stored, incoming *event.T) bool {
	return stored.CreatedAt > incoming.CreatedAt
}

// IndexedTag is one row of the tag index.
type IndexedTag struct {
	Name, Value string
}

// IndexableTags returns the distinct name and value pairs of the tags that
// have a single character name and at least two elements.
func IndexableTags(ev *event.T) (it []IndexedTag) {
	seen := make(map[IndexedTag]struct{}, len(ev.Tags))
	for _, t := range ev.Tags {
		if !t.Indexable() {
			continue
		}
		i := IndexedTag{Name: t[tag.Key], Value: t[tag.Value]}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		it = append(it, i)
	}
	return
}

// DeletionTargets is the distinct, well formed event ids named by the e tags of
// a deletion event.
func DeletionTargets(ev *event.T) (ids []string) {
	if ev.Kind != kind.Deletion {
		return
	}
	seen := make(map[string]struct{})
	for _, t := range ev.Tags.GetAll("e") {
		if len(t) < 2 || !event.IsLowerHex(t.Value(), event.IDLen) {
			continue
		}
		if _, ok := seen[t.Value()]; ok {
			continue
		}
		seen[t.Value()] = struct{}{}
		ids = append(ids, t.Value())
	}
	return
}

// CanDelete is true when the deletion event is allowed to remove target.
func CanDelete(deletion, target *event.T) bool {
	return deletion.PubKey == target.PubKey
}

// Cutoff is the timestamp before which events are older than maxAge.
func Cutoff(now time.Time, maxAge time.Duration) timestamp.T {
	return timestamp.FromTime(now.Add(-maxAge))
}

// Prunable is true for an event created before cutoff whose kind is not
// protected.
func Prunable(ev *event.T, cutoff timestamp.T, protected kinds.T) bool {
	return ev.CreatedAt < cutoff && !protected.Contains(ev.Kind)
}

// KindString is the decimal kind, used in addresses and SQL.
func KindString(k kind.T) string { return strconv.Itoa(k.ToInt()) }
