package sqlite

import (
	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

func (b *Backend) Insert(c context.T, ev *event.T) (o eventstore.Outcome,
	err error) {

	if ev.Kind.IsEphemeral() {
		return eventstore.Accepted, nil
	}
	var conn *sqlite.Conn
	if conn, err = b.get(c); err != nil {
		return
	}
	defer b.pool.Put(conn)
	defer sqlitex.Save(conn)(&err)

	var found bool
	if found, _, err = lookup(conn, ev.ID); chk.E(err) {
		return
	}
	if found {
		return eventstore.Duplicate, nil
	}
	o = eventstore.Accepted
	addr := eventstore.Address(ev)
	if addr != "" {
		var storedID string
		var storedAt int64
		err = sqlitex.Exec(conn,
			"SELECT id, created_at FROM events WHERE address = ?;",
			func(stmt *sqlite.Stmt) error {
				storedID, storedAt = stmt.ColumnText(0), stmt.ColumnInt64(1)
				return nil
			}, addr)
		if chk.E(err) {
			return
		}
		if storedID != "" {
			stored := &event.T{CreatedAt: timestamp.T(storedAt)}
			if eventstore.Stale(stored, ev) {
				return eventstore.Rejected, nil
			}
			if err = remove(conn, storedID); chk.E(err) {
				return
			}
			o = eventstore.Superseded
		}
	}
	for _, target := range eventstore.DeletionTargets(ev) {
		var pubkey string
		if found, pubkey, err = lookup(conn, target); chk.E(err) {
			return
		}
		if !found || !eventstore.CanDelete(ev, &event.T{PubKey: pubkey}) {
			continue
		}
		if err = remove(conn, target); chk.E(err) {
			return
		}
	}
	var address interface{}
	if addr != "" {
		address = addr
	}
	if err = sqlitex.Exec(conn, `INSERT INTO events (
			id, pubkey, created_at, kind, tags, content, sig, address
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?);`, nil,
		ev.ID, ev.PubKey, ev.CreatedAt.I64(), ev.Kind.ToInt(),
		ev.Tags.String(), ev.Content, ev.Sig, address); chk.E(err) {
		return
	}
	for _, t := range eventstore.IndexableTags(ev) {
		if err = sqlitex.Exec(conn,
			"INSERT INTO tags (event_id, name, value) VALUES (?, ?, ?);",
			nil, ev.ID, t.Name, t.Value); chk.E(err) {
			return
		}
	}
	return
}

// lookup finds a stored event by id and returns its pubkey.
func lookup(conn *sqlite.Conn, id string) (found bool, pubkey string,
	err error) {

	err = sqlitex.Exec(conn, "SELECT pubkey FROM events WHERE id = ?;",
		func(stmt *sqlite.Stmt) error {
			found, pubkey = true, stmt.ColumnText(0)
			return nil
		}, id)
	return
}

// remove deletes the tag rows then the row of an event.
func remove(conn *sqlite.Conn, id string) (err error) {
	if err = sqlitex.Exec(conn, "DELETE FROM tags WHERE event_id = ?;", nil,
		id); chk.E(err) {
		return
	}
	return sqlitex.Exec(conn, "DELETE FROM events WHERE id = ?;", nil, id)
}
