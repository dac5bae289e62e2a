package sqlite

import (
	"strings"

	"crawshaw.io/sqlite"
	"crawshaw.io/sqlite/sqlitex"
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tags"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

const selectEvents = "SELECT id, pubkey, created_at, kind, tags, content, " +
	"sig FROM events"

// Compile turns a filter into a query on the events table with the same
// meaning as filter.Matches, newest first and limited to limit rows.
func Compile(f *filter.T, limit int) (query string, args []interface{}) {
	var where []string
	in := func(column string, values []interface{}) {
		where = append(where, column+" IN ("+
			strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")+")")
		args = append(args, values...)
	}
	if len(f.IDs) > 0 {
		in("id", strs(f.IDs))
	}
	if len(f.Authors) > 0 {
		in("pubkey", strs(f.Authors))
	}
	if len(f.Kinds) > 0 {
		k := make([]interface{}, len(f.Kinds))
		for i := range f.Kinds {
			k[i] = f.Kinds[i].ToInt()
		}
		in("kind", k)
	}
	for _, name := range f.Tags.Keys() {
		values := f.Tags[name]
		if len(values) == 0 {
			continue
		}
		where = append(where, "id IN (SELECT event_id FROM tags WHERE "+
			"name = ? AND value IN ("+
			strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")+"))")
		args = append(append(args, name), strs(values)...)
	}
	if f.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since.I64())
	}
	if f.Until != nil {
		where = append(where, "created_at <= ?")
		args = append(args, f.Until.I64())
	}
	query = selectEvents
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC LIMIT ?;"
	args = append(args, limit)
	return
}

func strs(s tag.T) (v []interface{}) {
	v = make([]interface{}, len(s))
	for i := range s {
		v[i] = s[i]
	}
	return
}

func (b *Backend) Query(c context.T, f *filter.T) (evs []*event.T, err error) {
	var conn *sqlite.Conn
	if conn, err = b.get(c); err != nil {
		return
	}
	defer b.pool.Put(conn)
	query, args := Compile(f, b.Limits.ClampLimit(f.Limit))
	log.T.Ln(query, args)
	err = sqlitex.ExecTransient(conn, query, func(stmt *sqlite.Stmt) (err error) {
		var ev *event.T
		if ev, err = scan(stmt); chk.E(err) {
			return
		}
		evs = append(evs, ev)
		return
	}, args...)
	return
}

// scan reads an event from a row of selectEvents.
func scan(stmt *sqlite.Stmt) (ev *event.T, err error) {
	ev = &event.T{
		ID:        stmt.ColumnText(0),
		PubKey:    stmt.ColumnText(1),
		CreatedAt: timestamp.T(stmt.ColumnInt64(2)),
		Kind:      kind.T(stmt.ColumnInt64(3)),
		Content:   stmt.ColumnText(5),
		Sig:       stmt.ColumnText(6),
	}
	if ev.Tags, err = parseTags(stmt.ColumnText(4)); chk.E(err) {
		return nil, err
	}
	return
}

func parseTags(s string) (t tags.T, err error) {
	r := gjson.Parse(s)
	if !r.IsArray() {
		return nil, log.E.Err("stored tags are not an array: %s", s)
	}
	t = tags.T{}
	for _, tr := range r.Array() {
		var tt tag.T
		for _, v := range tr.Array() {
			tt = append(tt, v.String())
		}
		t = append(t, tt)
	}
	return
}

