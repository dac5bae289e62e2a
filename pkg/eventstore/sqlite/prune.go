package sqlite

import (
	"io"
	"strings"
	"time"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
)

func (b *Backend) Prune(c context.T, maxAge time.Duration,
	protected kinds.T) (n int, err error) {

	var conn *sqlite.Conn
	if conn, err = b.get(c); err != nil {
		return
	}
	defer b.pool.Put(conn)
	defer sqlitex.Save(conn)(&err)
	cutoff := eventstore.Cutoff(time.Now(), maxAge)
	where := "created_at < ?"
	args := []interface{}{cutoff.I64()}
	if len(protected) > 0 {
		where += " AND kind NOT IN (" +
			strings.TrimSuffix(strings.Repeat("?,", len(protected)), ",") + ")"
		for _, k := range protected {
			args = append(args, k.ToInt())
		}
	}
	if err = sqlitex.ExecTransient(conn, "DELETE FROM tags WHERE event_id IN "+
		"(SELECT id FROM events WHERE "+where+");", nil, args...); chk.E(err) {
		return
	}
	if err = sqlitex.ExecTransient(conn, "DELETE FROM events WHERE "+where+";",
		nil, args...); chk.E(err) {
		return
	}
	n = conn.Changes()
	log.D.F("pruned %d events older than %v", n, cutoff.Time())
	return
}

func (b *Backend) Wipe() (err error) {
	var conn *sqlite.Conn
	if conn, err = b.get(context.Bg()); err != nil {
		return
	}
	defer b.pool.Put(conn)
	defer sqlitex.Save(conn)(&err)
	if err = sqlitex.Exec(conn, "DELETE FROM tags;", nil); chk.E(err) {
		return
	}
	return sqlitex.Exec(conn, "DELETE FROM events;", nil)
}

// Export writes the events oldest first.
func (b *Backend) Export(c context.T, w io.Writer) (err error) {
	var conn *sqlite.Conn
	if conn, err = b.get(c); err != nil {
		return
	}
	defer b.pool.Put(conn)
	return sqlitex.Exec(conn, selectEvents+" ORDER BY created_at ASC, id DESC;",
		func(stmt *sqlite.Stmt) (err error) {
			var ev *event.T
			if ev, err = scan(stmt); chk.E(err) {
				return
			}
			_, err = w.Write(append(ev.Serialize(), '\n'))
			return
		})
}

// TagRows is the number of rows in the tag index.
func (b *Backend) TagRows() (n int) {
	conn, err := b.get(context.Bg())
	if err != nil {
		return -1
	}
	defer b.pool.Put(conn)
	if err = sqlitex.Exec(conn, "SELECT count(*) FROM tags;",
		func(stmt *sqlite.Stmt) error {
			n = int(stmt.ColumnInt64(0))
			return nil
		}); chk.E(err) {
		return -1
	}
	return
}
