package badger

import (
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/serial"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

func (b *Backend) Query(c context.T, f *filter.T) (evs []*event.T, err error) {
	if b.isClosed() {
		return nil, eventstore.ErrClosed
	}
	limit := b.Limits.ClampLimit(f.Limit)
	var queries []query
	var since timestamp.T
	if queries, since, err = PrepareQueries(f); chk.E(err) {
		return
	}
	seen := make(map[string]struct{})
	err = b.View(func(txn *badger.Txn) (err error) {
		for _, q := range queries {
			select {
			case <-c.Done():
				return c.Err()
			default:
			}
			var found []*event.T
			if found, err = b.runQuery(txn, q, f, since.I64(), limit); chk.E(err) {
				return
			}
			for _, ev := range found {
				if _, ok := seen[ev.ID]; ok {
					continue
				}
				seen[ev.ID] = struct{}{}
				evs = append(evs, ev)
			}
		}
		return
	})
	if err != nil {
		return nil, err
	}
	sort.Sort(event.Descending(evs))
	if len(evs) > limit {
		evs = evs[:limit]
	}
	return
}

// runQuery scans one index in reverse time order and returns the matching
// events. It stops once it has limit matches and has passed every event with
// the same timestamp as the last one, so ties can be ordered by id after the
// results of all queries are merged.
func (b *Backend) runQuery(txn *badger.Txn, q query, f *filter.T,
	since int64, limit int) (evs []*event.T, err error) {

	opts := badger.IteratorOptions{Reverse: true}
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(q.start); it.ValidForPrefix(q.searchPrefix); it.Next() {
		k := it.Item().Key()
		if !q.skipTS {
			ts := timestampFromKey(k).I64()
			if ts < since {
				break
			}
			if len(evs) >= limit && ts < evs[len(evs)-1].CreatedAt.I64() {
				break
			}
		}
		var ev *event.T
		if ev, err = b.getEvent(txn, serial.FromKey(k)); chk.E(err) {
			return
		}
		if ev == nil {
			log.W.F("index key %x has no event", k)
			continue
		}
		if f.Matches(ev) {
			evs = append(evs, ev)
		}
	}
	return
}
