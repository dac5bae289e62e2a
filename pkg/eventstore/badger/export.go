package badger

import (
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/index"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
)

// Export writes every stored event as one line of JSON, in the order they were
// stored.
func (b *Backend) Export(c context.T, w io.Writer) (err error) {
	prefix := index.Event.Key()
	return b.View(func(txn *badger.Txn) (err error) {
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         prefix,
			PrefetchValues: true,
		})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-c.Done():
				return c.Err()
			default:
			}
			var v []byte
			if v, err = it.Item().ValueCopy(nil); chk.E(err) {
				return
			}
			if _, err = w.Write(append(v, '\n')); chk.E(err) {
				return
			}
		}
		return
	})
}
