package badger

import (
	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/arb"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/createdat"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/id"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/index"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/kinder"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/pubkey"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/serial"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/tagvalue"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
)

// GetIndexKeysForEvent generates all the index keys required to filter for
// events. ser should be the output of SerialKey which gets a unique,
// monotonic counter value for each new event.
func GetIndexKeysForEvent(ev *event.T, ser *serial.T) (keyz [][]byte,
	err error) {

	keyz = make([][]byte, 0, 8)
	ID := id.New(ev.ID)
	CA := createdat.New(ev.CreatedAt)
	K := kinder.New(ev.Kind)
	var PK *pubkey.T
	if PK, err = pubkey.New(ev.PubKey); chk.E(err) {
		return
	}
	// ~ by id
	keyz = append(keyz, index.Id.Key(ID, ser))
	// ~ by pubkey+date
	keyz = append(keyz, index.Pubkey.Key(PK, CA, ser))
	// ~ by kind+date
	keyz = append(keyz, index.Kind.Key(K, CA, ser))
	// ~ by pubkey+kind+date
	keyz = append(keyz, index.PubkeyKind.Key(PK, K, CA, ser))
	// ~ by tag value + date
	for _, t := range eventstore.IndexableTags(ev) {
		var tv *tagvalue.T
		if tv, err = tagvalue.New(t.Name, t.Value); chk.E(err) {
			return
		}
		keyz = append(keyz, index.Tag.Key(tv, CA, ser))
	}
	// ~ by date only
	keyz = append(keyz, index.CreatedAt.Key(CA, ser))
	return
}

// AddressKey is the key that points at the stored version of a replaceable
// event, or nil for kinds that are not replaceable.
func AddressKey(ev *event.T) []byte {
	addr := eventstore.Address(ev)
	if addr == "" {
		return nil
	}
	return index.Address.Key(arb.Hash(addr))
}
