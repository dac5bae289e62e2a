package badger

import (
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/createdat"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/index"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/serial"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
)

// PruneBatch is the number of events deleted in one transaction by Prune.
const PruneBatch = 256

// Prune walks the timestamp index from the oldest event up to the cutoff and
// deletes what is not protected, a batch at a time so the transactions stay
// within the badger size limits.
func (b *Backend) Prune(c context.T, maxAge time.Duration,
	protected kinds.T) (n int, err error) {

	if b.isClosed() {
		return 0, eventstore.ErrClosed
	}
	cutoff := eventstore.Cutoff(time.Now(), maxAge)
	end := index.CreatedAt.Key(createdat.New(cutoff))
	prefix := index.CreatedAt.Key()
	for {
		select {
		case <-c.Done():
			return n, c.Err()
		default:
		}
		var sers []*serial.T
		if err = b.View(func(txn *badger.Txn) (err error) {
			it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
			defer it.Close()
			var skipped int
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				k := it.Item().Key()
				if string(k) >= string(end) {
					break
				}
				ser := serial.FromKey(k)
				var ev *event.T
				if ev, err = b.getEvent(txn, ser); chk.E(err) {
					return
				}
				if ev == nil || !eventstore.Prunable(ev, cutoff, protected) {
					skipped++
					continue
				}
				sers = append(sers, ser)
				if len(sers) >= PruneBatch {
					break
				}
			}
			log.T.F("prune scan found %d, skipped %d", len(sers), skipped)
			return
		}); chk.E(err) {
			return
		}
		if len(sers) == 0 {
			return
		}
		var deleted int
		if err = b.Update(func(txn *badger.Txn) (err error) {
			deleted = 0
			for _, ser := range sers {
				var ev *event.T
				if ev, err = b.getEvent(txn, ser); chk.E(err) {
					return
				}
				if ev == nil {
					continue
				}
				if err = b.deleteInTxn(txn, ev, ser); chk.E(err) {
					return
				}
				deleted++
			}
			return
		}); chk.E(err) {
			return
		}
		n += deleted
		b.collectGarbage(deleted)
		if len(sers) < PruneBatch {
			return
		}
	}
}

// countKeys is the number of keys with the given prefix.
func (b *Backend) countKeys(p index.P) (n int, err error) {
	prefix := keys.Write(index.New(p))
	err = b.View(func(txn *badger.Txn) (err error) {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return
	})
	return
}

// TagRows is the number of keys in the tag index.
func (b *Backend) TagRows() (n int) {
	var err error
	if n, err = b.countKeys(index.Tag); chk.E(err) {
		return -1
	}
	return
}
