package badger

import (
	"math"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/createdat"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/id"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/index"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/kinder"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/pubkey"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/serial"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/tagvalue"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

type query struct {
	index        int
	searchPrefix []byte
	// start is where a reverse scan begins, the newest key the query can
	// match.
	start []byte
	// skipTS is set for indexes that have no timestamp.
	skipTS bool
}

// PrepareQueries analyses a filter and generates a set of query specs that
// produce key prefixes to search for in the badger key indexes. The index with
// the fewest candidates is chosen in the order ids, authors (with kinds), tags,
// kinds and finally the timestamp index. Every result is checked against the
// whole filter afterwards, so the index only needs to find a superset.
func PrepareQueries(f *filter.T) (qs []query, since timestamp.T, err error) {
	switch {
	case len(f.IDs) > 0:
		for _, idHex := range f.IDs {
			if !event.IsLowerHex(idHex, event.IDLen) {
				// no stored event can have it
				continue
			}
			qs = append(qs, query{
				index:        len(qs),
				searchPrefix: index.Id.Key(id.New(idHex)),
				skipTS:       true,
			})
		}
	case len(f.Authors) > 0:
		for _, pubkeyHex := range f.Authors {
			if !event.IsLowerHex(pubkeyHex, event.PubKeyLen) {
				continue
			}
			var pk *pubkey.T
			if pk, err = pubkey.New(pubkeyHex); chk.E(err) {
				return
			}
			if len(f.Kinds) == 0 {
				qs = append(qs, query{
					index:        len(qs),
					searchPrefix: index.Pubkey.Key(pk),
				})
				continue
			}
			for _, k := range f.Kinds {
				qs = append(qs, query{
					index:        len(qs),
					searchPrefix: index.PubkeyKind.Key(pk, kinder.New(k)),
				})
			}
		}
	case len(f.Tags) > 0 && hasTagValues(f):
		// one tag name is enough to narrow the search, the rest are checked
		// by the filter.
		var name string
		for _, n := range f.Tags.Keys() {
			if len(f.Tags[n]) > 0 {
				name = n
				break
			}
		}
		for _, value := range f.Tags[name] {
			var tv *tagvalue.T
			if tv, err = tagvalue.New(name, value); chk.E(err) {
				return
			}
			qs = append(qs, query{
				index:        len(qs),
				searchPrefix: index.Tag.Key(tv),
			})
		}
	case len(f.Kinds) > 0:
		for _, k := range f.Kinds {
			qs = append(qs, query{
				index:        len(qs),
				searchPrefix: index.Kind.Key(kinder.New(k)),
			})
		}
	default:
		qs = []query{{searchPrefix: index.CreatedAt.Key()}}
	}
	until := timestamp.T(math.MaxInt64)
	since = timestamp.T(math.MinInt64)
	if f.Until != nil {
		until = *f.Until
	}
	if f.Since != nil {
		since = *f.Since
	}
	for i := range qs {
		if qs[i].skipTS {
			qs[i].start = append(append([]byte{}, qs[i].searchPrefix...),
				keys.Write(serial.New(maxSerial))...)
			continue
		}
		qs[i].start = append(append([]byte{}, qs[i].searchPrefix...),
			keys.Write(createdat.New(until), serial.New(maxSerial))...)
	}
	return
}

var maxSerial = serial.Make(math.MaxUint64)

func hasTagValues(f *filter.T) bool {
	for _, v := range f.Tags {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// timestampFromKey reads the timestamp that precedes the serial at the end of
// an index key.
func timestampFromKey(k []byte) timestamp.T {
	ca := createdat.New(0)
	keys.Read(k[len(k)-serial.Len-createdat.Len:], ca)
	return ca.Val
}
