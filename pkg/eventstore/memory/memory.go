// Package memory is an event store that keeps everything in maps. It has the
// same insert rules as the persistent stores and is used for tests and
// throwaway relays.
package memory

import (
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

var (
	_ eventstore.Store    = (*Backend)(nil)
	_ eventstore.Wiper    = (*Backend)(nil)
	_ eventstore.Exporter = (*Backend)(nil)
)

type Backend struct {
	Limits eventstore.Limits

	mx sync.RWMutex
	// events by id
	events map[string]*event.T
	// id of the stored version of a replaceable event, by address
	addresses map[string]string
	// ids of events with an indexed tag name and value
	tags   map[eventstore.IndexedTag]map[string]struct{}
	closed bool
}

func New() *Backend {
	return &Backend{
		events:    make(map[string]*event.T),
		addresses: make(map[string]string),
		tags:      make(map[eventstore.IndexedTag]map[string]struct{}),
	}
}

func (b *Backend) Insert(c context.T, ev *event.T) (o eventstore.Outcome,
	err error) {

	if ev.Kind.IsEphemeral() {
		return eventstore.Accepted, nil
	}
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.closed {
		return o, eventstore.ErrClosed
	}
	if _, ok := b.events[ev.ID]; ok {
		return eventstore.Duplicate, nil
	}
	o = eventstore.Accepted
	addr := eventstore.Address(ev)
	if addr != "" {
		if id, ok := b.addresses[addr]; ok {
			stored := b.events[id]
			if eventstore.Stale(stored, ev) {
				return eventstore.Rejected, nil
			}
			b.remove(stored)
			o = eventstore.Superseded
		}
	}
	for _, target := range eventstore.DeletionTargets(ev) {
		if stored, ok := b.events[target]; ok &&
			eventstore.CanDelete(ev, stored) {
			b.remove(stored)
		}
	}
	ev = ev.Clone()
	b.events[ev.ID] = ev
	if addr != "" {
		b.addresses[addr] = ev.ID
	}
	for _, t := range eventstore.IndexableTags(ev) {
		ids, ok := b.tags[t]
		if !ok {
			ids = make(map[string]struct{})
			b.tags[t] = ids
		}
		ids[ev.ID] = struct{}{}
	}
	return
}

// remove deletes an event with its tag rows and address. The caller holds the
// write lock.
func (b *Backend) remove(ev *event.T) {
	delete(b.events, ev.ID)
	if addr := eventstore.Address(ev); addr != "" && b.addresses[addr] == ev.ID {
		delete(b.addresses, addr)
	}
	for _, t := range eventstore.IndexableTags(ev) {
		if ids, ok := b.tags[t]; ok {
			delete(ids, ev.ID)
			if len(ids) == 0 {
				delete(b.tags, t)
			}
		}
	}
}

func (b *Backend) Query(c context.T, f *filter.T) (evs []*event.T, err error) {
	b.mx.RLock()
	defer b.mx.RUnlock()
	if b.closed {
		return nil, eventstore.ErrClosed
	}
	for _, ev := range b.candidates(f) {
		if f.Matches(ev) {
			evs = append(evs, ev.Clone())
		}
	}
	sort.Sort(event.Descending(evs))
	if limit := b.Limits.ClampLimit(f.Limit); len(evs) > limit {
		evs = evs[:limit]
	}
	return
}

// candidates narrows the search with the ids or the tag rows of the first
// tag name when the filter has them.
func (b *Backend) candidates(f *filter.T) (evs []*event.T) {
	seen := make(map[string]struct{})
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if ev, ok := b.events[id]; ok {
				evs = append(evs, ev)
			}
		}
		return
	}
	for _, name := range f.Tags.Keys() {
		if len(f.Tags[name]) == 0 {
			continue
		}
		for _, value := range f.Tags[name] {
			for id := range b.tags[eventstore.IndexedTag{Name: name,
				Value: value}] {
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				evs = append(evs, b.events[id])
			}
		}
		return
	}
	evs = make([]*event.T, 0, len(b.events))
	for _, ev := range b.events {
		evs = append(evs, ev)
	}
	return
}

func (b *Backend) Prune(c context.T, maxAge time.Duration,
	protected kinds.T) (n int, err error) {

	b.mx.Lock()
	defer b.mx.Unlock()
	if b.closed {
		return 0, eventstore.ErrClosed
	}
	cutoff := eventstore.Cutoff(time.Now(), maxAge)
	for _, ev := range b.events {
		if eventstore.Prunable(ev, cutoff, protected) {
			b.remove(ev)
			n++
		}
	}
	log.D.F("pruned %d events older than %v", n, cutoff.Time())
	return
}

func (b *Backend) Wipe() (err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.events = make(map[string]*event.T)
	b.addresses = make(map[string]string)
	b.tags = make(map[eventstore.IndexedTag]map[string]struct{})
	return
}

// Export writes the events oldest first.
func (b *Backend) Export(c context.T, w io.Writer) (err error) {
	b.mx.RLock()
	evs := make([]*event.T, 0, len(b.events))
	for _, ev := range b.events {
		evs = append(evs, ev)
	}
	b.mx.RUnlock()
	sort.Sort(event.Ascending(evs))
	for _, ev := range evs {
		if _, err = w.Write(append(ev.Serialize(), '\n')); chk.E(err) {
			return
		}
	}
	return
}

// Len is the number of stored events.
func (b *Backend) Len() int {
	b.mx.RLock()
	defer b.mx.RUnlock()
	return len(b.events)
}

// TagRows is the number of rows in the tag index.
func (b *Backend) TagRows() (n int) {
	b.mx.RLock()
	defer b.mx.RUnlock()
	for _, ids := range b.tags {
		n += len(ids)
	}
	return
}

func (b *Backend) Close() (err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	b.closed = true
	return
}
