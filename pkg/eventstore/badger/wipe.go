package badger

import (
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/index"
)

// Wipe deletes every event and index key. The version key and the serial
// sequence are kept.
func (b *Backend) Wipe() (err error) {
	prefixes := [][]byte{{index.Event.B()}, {index.Address.B()}}
	for _, p := range index.FilterPrefixes {
		prefixes = append(prefixes, []byte{p.B()})
	}
	if err = b.DB.DropPrefix(prefixes...); chk.E(err) {
		return
	}
	return
}
