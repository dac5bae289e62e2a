package index

import (
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/createdat"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/id"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/kinder"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/pubkey"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/serial"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/tagvalue"
)

type P byte

// Key writes a key with the P prefix byte and an arbitrary list of
// keys.Element.
func (p P) Key(element ...keys.Element) (b []byte) {
	return keys.Write(append([]keys.Element{New(byte(p))}, element...)...)
}

// B returns the index.P as a byte.
func (p P) B() byte { return byte(p) }

// I returns the index.P as an int, for use with KeySizes.
func (p P) I() int { return int(p) }

const (
	// Version is the key that stores the version number of the database
	// layout, the value is a 16-bit integer (2 bytes)
	//
	//   [ 255 ]
	Version P = 255
)

const (
	// Event is the prefix used with a Serial counter value provided by
	// badgerDB to provide conflict-free 8 byte 64-bit unique keys for event
	// records, which follows the prefix. The value is the event JSON.
	//
	//   [ 0 ][ 8 bytes Serial ]
	Event P = iota

	// CreatedAt creates an index key that contains the unix timestamp of the
	// event record serial.
	//
	//   [ 1 ][ 8 bytes timestamp.T ][ 8 bytes Serial ]
	CreatedAt

	// Id contains the first 8 bytes of the ID of the event and the 8 byte
	// Serial of the event record.
	//
	//   [ 2 ][ 8 bytes event id prefix ][ 8 bytes Serial ]
	Id

	// Kind contains the kind and datestamp.
	//
	//   [ 3 ][ 2 bytes kind.T ][ 8 bytes timestamp.T ][ 8 bytes Serial ]
	Kind

	// Pubkey contains pubkey prefix and timestamp.
	//
	//   [ 4 ][ 8 bytes pubkey prefix ][ 8 bytes timestamp.T ][ 8 bytes Serial ]
	Pubkey

	// PubkeyKind contains pubkey prefix, kind and timestamp.
	//
	//   [ 5 ][ 8 bytes pubkey prefix ][ 2 bytes kind.T ][ 8 bytes timestamp.T ][ 8 bytes Serial ]
	PubkeyKind

	// Tag is the single letter name of an indexable tag and a hash prefix of
	// its value, with timestamp and event serial after.
	//
	//   [ 6 ][ 1 byte name ][ 8 bytes value hash ][ 8 bytes timestamp.T ][ 8 bytes Serial ]
	Tag

	// Address is the hash of the address of a replaceable event. The value is
	// the Serial of the version currently stored.
	//
	//   [ 7 ][ 32 bytes address hash ]
	Address
)

// FilterPrefixes are the prefixes of the index keys that end with a Serial
// and are removed together with an event.
var FilterPrefixes = []P{CreatedAt, Id, Kind, Pubkey, PubkeyKind, Tag}

// KeySizes are the byte size of keys of each type of key prefix, in the same
// order as the prefixes.
var KeySizes = []int{
	// Event
	1 + serial.Len,
	// CreatedAt
	1 + createdat.Len + serial.Len,
	// Id
	1 + id.Len + serial.Len,
	// Kind
	1 + kinder.Len + createdat.Len + serial.Len,
	// Pubkey
	1 + pubkey.Len + createdat.Len + serial.Len,
	// PubkeyKind
	1 + pubkey.Len + kinder.Len + createdat.Len + serial.Len,
	// Tag
	1 + tagvalue.Len + createdat.Len + serial.Len,
	// Address
	1 + 32,
}
