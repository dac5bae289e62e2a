// Package badger is an event store on the badger key value database. Events
// are kept as JSON under a serial number from a badger sequence, and found
// through composite index keys that end in that serial.
package badger

import (
	"errors"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/index"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/serial"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
	"github.com/Hubmakerlabs/relayd/pkg/units"
)

var log, chk = slog.New(os.Stderr)

var (
	_ eventstore.Store    = (*Backend)(nil)
	_ eventstore.Wiper    = (*Backend)(nil)
	_ eventstore.Exporter = (*Backend)(nil)
)

// MaxConflictRetries is how many times a transaction that hit a write
// conflict is run again before the error is returned.
const MaxConflictRetries = 8

type Backend struct {
	Path string
	// InMemory keeps the database in memory only, Path is ignored.
	InMemory bool
	// BlockCacheSize is the size of the badger block cache in bytes.
	BlockCacheSize int
	// Limits are the default and maximum number of events for a query.
	Limits eventstore.Limits
	// DB is the badger db interface
	*badger.DB
	// seq is the monotonic collision free index for raw event storage.
	seq *badger.Sequence
	// deletes counts deleted events to schedule value log GC.
	deletes uint32
	mx      sync.Mutex
	closed  bool
}

// GetBackend returns a reasonably configured badger.Backend, which must be
// opened with Init.
func GetBackend(path string, inMemory bool, blockCacheSize int) (b *Backend) {
	return &Backend{
		Path:           path,
		InMemory:       inMemory,
		BlockCacheSize: blockCacheSize,
	}
}

func (b *Backend) Init() (err error) {
	var opts badger.Options
	if b.InMemory {
		log.D.Ln("opening in memory badger event store")
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		log.I.Ln("opening badger event store at", b.Path)
		opts = badger.DefaultOptions(b.Path)
	}
	if b.BlockCacheSize > 0 {
		opts.BlockCacheSize = int64(b.BlockCacheSize)
	}
	opts.BlockSize = units.Mb
	opts.CompactL0OnClose = true
	opts.LmaxCompaction = true
	opts.Compression = options.ZSTD
	opts.Logger = logger{slog.GetLogLevel(), "badger"}
	if b.DB, err = badger.Open(opts); chk.E(err) {
		return err
	}
	if b.seq, err = b.DB.GetSequence([]byte("events"), 1000); chk.E(err) {
		return err
	}
	if err = b.checkVersion(); chk.E(err) {
		return
	}
	return nil
}

// Version is the layout of the keys written by this package.
const Version = 1

func (b *Backend) checkVersion() (err error) {
	return b.Update(func(txn *badger.Txn) (err error) {
		k := index.Version.Key()
		var item *badger.Item
		if item, err = txn.Get(k); errors.Is(err, badger.ErrKeyNotFound) {
			return txn.Set(k, []byte{0, Version})
		} else if chk.E(err) {
			return
		}
		var v []byte
		if v, err = item.ValueCopy(nil); chk.E(err) {
			return
		}
		if len(v) != 2 || v[1] != Version {
			err = log.E.Err("database %s has key layout %v, this build "+
				"uses %d", b.Path, v, Version)
		}
		return
	})
}

func (b *Backend) Close() (err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	chk.E(b.seq.Release())
	return b.DB.Close()
}

func (b *Backend) isClosed() bool {
	b.mx.Lock()
	defer b.mx.Unlock()
	return b.closed
}

// SerialKey returns a key used for storing events, and the raw serial counter
// bytes to copy into index keys.
func (b *Backend) SerialKey() (idx []byte, ser *serial.T, err error) {
	var s uint64
	if s, err = b.seq.Next(); chk.E(err) {
		return
	}
	ser = serial.New(serial.Make(s))
	return index.Event.Key(ser), ser, nil
}

// Update runs fn in a read-write transaction, running it again when it
// conflicts with a concurrent transaction.
func (b *Backend) Update(fn func(txn *badger.Txn) (err error)) (err error) {
	for i := 0; i < MaxConflictRetries; i++ {
		if err = b.DB.Update(fn); !errors.Is(err, badger.ErrConflict) {
			return
		}
		log.D.Ln("transaction conflict, retrying")
	}
	return
}

func (b *Backend) View(fn func(txn *badger.Txn) (err error)) (err error) {
	return b.DB.View(fn)
}

// collectGarbage runs the value log GC once every 256 deleted events.
func (b *Backend) collectGarbage(deleted int) {
	b.mx.Lock()
	before := b.deletes / 256
	b.deletes += uint32(deleted)
	run := b.deletes/256 != before
	b.mx.Unlock()
	if !run || b.InMemory {
		return
	}
	if err := b.RunValueLogGC(0.8); err != nil &&
		!errors.Is(err, badger.ErrNoRewrite) {
		log.E.F("badger gc errored: %s", err)
	}
}
