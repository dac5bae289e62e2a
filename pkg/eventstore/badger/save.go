package badger

import (
	"bytes"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/id"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/index"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/serial"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
)

func (b *Backend) Insert(c context.T, ev *event.T) (o eventstore.Outcome,
	err error) {

	if b.isClosed() {
		return o, eventstore.ErrClosed
	}
	if ev.Kind.IsEphemeral() {
		return eventstore.Accepted, nil
	}
	var deleted int
	err = b.Update(func(txn *badger.Txn) (err error) {
		o, deleted = eventstore.Accepted, 0
		var found *event.T
		if found, _, err = b.getByID(txn, ev.ID); chk.E(err) {
			return
		}
		if found != nil {
			o = eventstore.Duplicate
			return
		}
		addrKey := AddressKey(ev)
		if addrKey != nil {
			var stored *event.T
			var ser *serial.T
			if stored, ser, err = b.getByAddress(txn, addrKey); chk.E(err) {
				return
			}
			if stored != nil {
				if eventstore.Stale(stored, ev) {
					o = eventstore.Rejected
					return
				}
				if err = b.deleteInTxn(txn, stored, ser); chk.E(err) {
					return
				}
				deleted++
				o = eventstore.Superseded
			}
		}
		for _, target := range eventstore.DeletionTargets(ev) {
			var stored *event.T
			var ser *serial.T
			if stored, ser, err = b.getByID(txn, target); chk.E(err) {
				return
			}
			if stored == nil || !eventstore.CanDelete(ev, stored) {
				continue
			}
			if err = b.deleteInTxn(txn, stored, ser); chk.E(err) {
				return
			}
			deleted++
		}
		var idx []byte
		var ser *serial.T
		if idx, ser, err = b.SerialKey(); chk.E(err) {
			return
		}
		if err = txn.Set(idx, ev.Serialize()); chk.E(err) {
			return
		}
		var keyz [][]byte
		if keyz, err = GetIndexKeysForEvent(ev, ser); chk.E(err) {
			return
		}
		for _, k := range keyz {
			if err = txn.Set(k, nil); chk.E(err) {
				return
			}
		}
		if addrKey != nil {
			if err = txn.Set(addrKey, ser.Val); chk.E(err) {
				return
			}
		}
		return
	})
	if err != nil {
		return
	}
	b.collectGarbage(deleted)
	log.T.F("inserted %s: %s", ev.ID, o)
	return
}

// getEvent loads the event stored under a serial.
func (b *Backend) getEvent(txn *badger.Txn, ser *serial.T) (ev *event.T,
	err error) {

	var item *badger.Item
	if item, err = txn.Get(index.Event.Key(ser)); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			err = nil
		}
		return
	}
	var v []byte
	if v, err = item.ValueCopy(nil); chk.E(err) {
		return
	}
	ev = &event.T{}
	if err = ev.UnmarshalJSON(v); chk.E(err) {
		return nil, err
	}
	return
}

// getByID finds the event with the given id. The id index only holds a prefix
// of the id so every candidate is loaded and compared.
func (b *Backend) getByID(txn *badger.Txn, evID string) (ev *event.T,
	ser *serial.T, err error) {

	if !event.IsLowerHex(evID, event.IDLen) {
		return
	}
	prefix := index.Id.Key(id.New(evID))
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		s := serial.FromKey(it.Item().Key())
		var candidate *event.T
		if candidate, err = b.getEvent(txn, s); chk.E(err) {
			return
		}
		if candidate != nil && candidate.ID == evID {
			return candidate, s, nil
		}
	}
	return
}

// getByAddress finds the stored version of a replaceable event.
func (b *Backend) getByAddress(txn *badger.Txn, addrKey []byte) (
	ev *event.T, ser *serial.T, err error) {

	var item *badger.Item
	if item, err = txn.Get(addrKey); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			err = nil
		}
		return
	}
	var v []byte
	if v, err = item.ValueCopy(nil); chk.E(err) {
		return
	}
	ser = serial.New(nil)
	keys.Read(v, ser)
	if ev, err = b.getEvent(txn, ser); chk.E(err) {
		return
	}
	if ev == nil {
		log.W.F("address key %x points at missing event %d", addrKey,
			ser.Uint64())
		ser = nil
	}
	return
}

// deleteInTxn removes an event, its index keys and the address key if it
// still points at this event.
func (b *Backend) deleteInTxn(txn *badger.Txn, ev *event.T,
	ser *serial.T) (err error) {

	var keyz [][]byte
	if keyz, err = GetIndexKeysForEvent(ev, ser); chk.E(err) {
		return
	}
	for _, k := range keyz {
		if err = txn.Delete(k); chk.E(err) {
			return
		}
	}
	if addrKey := AddressKey(ev); addrKey != nil {
		var item *badger.Item
		if item, err = txn.Get(addrKey); err == nil {
			var v []byte
			if v, err = item.ValueCopy(nil); chk.E(err) {
				return
			}
			if bytes.Equal(v, ser.Val) {
				if err = txn.Delete(addrKey); chk.E(err) {
					return
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return
		}
		err = nil
	}
	log.T.F("deleting event %s serial %d", ev.ID, ser.Uint64())
	return txn.Delete(index.Event.Key(ser))
}
