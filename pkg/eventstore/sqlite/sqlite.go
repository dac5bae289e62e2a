// Package sqlite is an event store in a SQLite database, with the events in
// one table and the tag index in another. Filters are compiled to SQL.
package sqlite

import (
	"fmt"
	"os"
	"sync"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"lukechampine.com/frand"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

var (
	_ eventstore.Store    = (*Backend)(nil)
	_ eventstore.Wiper    = (*Backend)(nil)
	_ eventstore.Exporter = (*Backend)(nil)
)

const createSQL = `
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	pubkey     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	kind       INTEGER NOT NULL,
	tags       TEXT NOT NULL, -- JSON array of arrays
	content    TEXT NOT NULL,
	sig        TEXT NOT NULL,
	address    TEXT          -- kind:pubkey[:d] for replaceable kinds
);
CREATE INDEX IF NOT EXISTS events_created_at ON events (created_at DESC, id);
CREATE INDEX IF NOT EXISTS events_pubkey ON events (pubkey, created_at DESC);
CREATE INDEX IF NOT EXISTS events_kind ON events (kind, created_at DESC);
CREATE INDEX IF NOT EXISTS events_address ON events (address)
	WHERE address IS NOT NULL;

CREATE TABLE IF NOT EXISTS tags (
	event_id TEXT NOT NULL,
	name     TEXT NOT NULL,
	value    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS tags_name_value ON tags (name, value);
CREATE INDEX IF NOT EXISTS tags_event_id ON tags (event_id);
`

type Backend struct {
	// Path is the database file, or a URI.
	Path string
	// PoolSize is the number of connections.
	PoolSize int
	Limits   eventstore.Limits

	pool   *sqlitex.Pool
	mx     sync.Mutex
	closed bool
}

// New returns a store for the database file at path, which must be opened
// with Init.
func New(path string) *Backend { return &Backend{Path: path, PoolSize: 8} }

// NewMemory returns a store in a private in memory database.
func NewMemory() *Backend {
	return &Backend{
		Path: fmt.Sprintf("file:relayd%x?mode=memory&cache=shared",
			frand.Bytes(8)),
		PoolSize: 1,
	}
}

func (b *Backend) Init() (err error) {
	log.I.Ln("opening sqlite event store at", b.Path)
	if b.PoolSize < 1 {
		b.PoolSize = 1
	}
	// an in memory database lives as long as one connection of the pool is
	// open, so the schema is created through the pool.
	if b.pool, err = sqlitex.Open(b.Path, 0, b.PoolSize); chk.E(err) {
		return
	}
	conn := b.pool.Get(nil)
	defer b.pool.Put(conn)
	return initDB(conn)
}

func initDB(conn *sqlite.Conn) (err error) {
	if err = sqlitex.ExecTransient(conn, "PRAGMA journal_mode=WAL;",
		nil); chk.E(err) {
		return
	}
	return sqlitex.ExecScript(conn, createSQL)
}

// get takes a connection from the pool, nil if the store is closed or the
// context is done.
func (b *Backend) get(c context.T) (conn *sqlite.Conn, err error) {
	b.mx.Lock()
	closed := b.closed
	b.mx.Unlock()
	if closed {
		return nil, eventstore.ErrClosed
	}
	if conn = b.pool.Get(c); conn == nil {
		if err = c.Err(); err == nil {
			err = eventstore.ErrClosed
		}
	}
	return
}

func (b *Backend) Close() (err error) {
	b.mx.Lock()
	defer b.mx.Unlock()
	if b.closed || b.pool == nil {
		return
	}
	b.closed = true
	return b.pool.Close()
}
