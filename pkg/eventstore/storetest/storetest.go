// Package storetest is a set of tests every eventstore.Store must pass.
package storetest

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/frand"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event/eventest"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

// Opener creates an empty store for one test.
type Opener func(t *testing.T) eventstore.Store

// TagRowCounter is a store that can report the size of its tag index.
type TagRowCounter interface {
	TagRows() int
}

// Run runs every test in the suite against stores made by open.
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s eventstore.Store)
	}{
		{"Ephemeral", testEphemeral},
		{"Duplicate", testDuplicate},
		{"Replaceable", testReplaceable},
		{"ReplaceableEqualTimestamp", testReplaceableEqualTimestamp},
		{"ParameterizedReplaceable", testParameterizedReplaceable},
		{"Deletion", testDeletion},
		{"Order", testOrder},
		{"Limit", testLimit},
		{"Prune", testPrune},
		{"Parity", testParity},
		{"ExportImport", testExportImport},
		{"Wipe", testWipe},
		{"Closed", testClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func insert(t *testing.T, s eventstore.Store, ev *event.T,
	want eventstore.Outcome) {

	t.Helper()
	o, err := s.Insert(context.Bg(), ev)
	require.NoError(t, err)
	require.Equal(t, want, o, "inserting %s", ev)
}

func query(t *testing.T, s eventstore.Store, f *filter.T) []*event.T {
	t.Helper()
	evs, err := s.Query(context.Bg(), f)
	require.NoError(t, err)
	return evs
}

func ids(evs []*event.T) (s []string) {
	for _, ev := range evs {
		s = append(s, ev.ID)
	}
	return
}

func intp(i int) *int { return &i }

func testEphemeral(t *testing.T, s eventstore.Store) {
	ev := eventest.NewSigner().Make(25000, timestamp.Now(), "gone")
	insert(t, s, ev, eventstore.Accepted)
	assert.Empty(t, query(t, s, &filter.T{Kinds: kinds.T{25000}}))
	assert.Empty(t, query(t, s, &filter.T{IDs: tag.T{ev.ID}}))
}

func testDuplicate(t *testing.T, s eventstore.Store) {
	ev := eventest.NewSigner().TextNote("once", []string{"t", "x"})
	insert(t, s, ev, eventstore.Accepted)
	insert(t, s, ev, eventstore.Duplicate)
	evs := query(t, s, &filter.T{IDs: tag.T{ev.ID}})
	require.Len(t, evs, 1)
	assert.Equal(t, ev.Serialize(), evs[0].Serialize())
	if tc, ok := s.(TagRowCounter); ok {
		assert.Equal(t, 1, tc.TagRows())
	}
}

func testReplaceable(t *testing.T, s eventstore.Store) {
	sig := eventest.NewSigner()
	older := sig.Make(kind.ProfileMetadata, 1000, "old", []string{"t", "a"})
	newer := sig.Make(kind.ProfileMetadata, 2000, "new", []string{"t", "b"})
	f := &filter.T{Authors: tag.T{sig.Pub}, Kinds: kinds.T{0}}

	insert(t, s, older, eventstore.Accepted)
	insert(t, s, newer, eventstore.Superseded)
	assert.Equal(t, []string{newer.ID}, ids(query(t, s, f)))
	// the replaced version and its tag rows are gone
	assert.Empty(t, query(t, s, &filter.T{IDs: tag.T{older.ID}}))
	assert.Empty(t, query(t, s, &filter.T{Tags: filter.TagMap{"t": {"a"}}}))
	if tc, ok := s.(TagRowCounter); ok {
		assert.Equal(t, 1, tc.TagRows())
	}
	// arriving late does not bring the old one back
	insert(t, s, older, eventstore.Rejected)
	assert.Equal(t, []string{newer.ID}, ids(query(t, s, f)))

	// another author has a slot of their own
	other := eventest.NewSigner().Make(kind.ProfileMetadata, 500, "other")
	insert(t, s, other, eventstore.Accepted)
	assert.Len(t, query(t, s, &filter.T{Kinds: kinds.T{0}}), 2)
}

func testReplaceableEqualTimestamp(t *testing.T, s eventstore.Store) {
	sig := eventest.NewSigner()
	first := sig.Make(kind.FollowList, 1000, "first")
	second := sig.Make(kind.FollowList, 1000, "second")
	insert(t, s, first, eventstore.Accepted)
	insert(t, s, second, eventstore.Superseded)
	assert.Equal(t, []string{second.ID},
		ids(query(t, s, &filter.T{Kinds: kinds.T{kind.FollowList}})))
}

func testParameterizedReplaceable(t *testing.T, s eventstore.Store) {
	sig := eventest.NewSigner()
	a1 := sig.Make(kind.LongFormContent, 1000, "a1", []string{"d", "a"})
	b1 := sig.Make(kind.LongFormContent, 1000, "b1", []string{"d", "b"})
	a2 := sig.Make(kind.LongFormContent, 1001, "a2", []string{"d", "a"})
	none := sig.Make(kind.LongFormContent, 1000, "no d")
	empty := sig.Make(kind.LongFormContent, 1002, "empty d", []string{"d", ""})
	insert(t, s, a1, eventstore.Accepted)
	insert(t, s, b1, eventstore.Accepted)
	insert(t, s, a2, eventstore.Superseded)
	insert(t, s, a1, eventstore.Rejected)
	insert(t, s, none, eventstore.Accepted)
	// a missing d tag and an empty one are the same address
	insert(t, s, empty, eventstore.Superseded)
	got := ids(query(t, s, &filter.T{Kinds: kinds.T{kind.LongFormContent}}))
	assert.ElementsMatch(t, []string{a2.ID, b1.ID, empty.ID}, got)
	got = ids(query(t, s, &filter.T{Tags: filter.TagMap{"d": {"a"}}}))
	assert.Equal(t, []string{a2.ID}, got)
}

func testDeletion(t *testing.T, s eventstore.Store) {
	alice, mallory := eventest.NewSigner(), eventest.NewSigner()
	note := alice.Make(kind.TextNote, 1000, "hello", []string{"t", "x"})
	other := alice.Make(kind.TextNote, 1001, "keep")
	insert(t, s, note, eventstore.Accepted)
	insert(t, s, other, eventstore.Accepted)

	// a deletion by someone else is stored but removes nothing
	forged := mallory.Make(kind.Deletion, 1002, "", []string{"e", note.ID})
	insert(t, s, forged, eventstore.Accepted)
	assert.Len(t, query(t, s, &filter.T{IDs: tag.T{note.ID}}), 1)

	del := alice.Make(kind.Deletion, 1003, "", []string{"e", note.ID},
		[]string{"e", "0000000000000000000000000000000000000000000000000000000000000000"},
		[]string{"e", "not an id"})
	insert(t, s, del, eventstore.Accepted)
	assert.Empty(t, query(t, s, &filter.T{IDs: tag.T{note.ID}}))
	assert.Empty(t, query(t, s, &filter.T{Tags: filter.TagMap{"t": {"x"}}}))
	assert.Len(t, query(t, s, &filter.T{IDs: tag.T{other.ID}}), 1)
	// the deletions themselves are kept
	assert.ElementsMatch(t, []string{forged.ID, del.ID},
		ids(query(t, s, &filter.T{Kinds: kinds.T{kind.Deletion}})))
}

func testOrder(t *testing.T, s eventstore.Store) {
	sig := eventest.NewSigner()
	var evs []*event.T
	for i := 0; i < 6; i++ {
		ev := sig.Make(kind.TextNote, timestamp.T(1000+i%3),
			fmt.Sprint("note ", i))
		insert(t, s, ev, eventstore.Accepted)
		evs = append(evs, ev)
	}
	sort.Sort(event.Descending(evs))
	got := query(t, s, &filter.T{Authors: tag.T{sig.Pub}})
	assert.Equal(t, ids(evs), ids(got))
	for i := 1; i < len(got); i++ {
		assert.True(t, event.Newer(got[i-1], got[i]))
	}
}

func testLimit(t *testing.T, s eventstore.Store) {
	sig := eventest.NewSigner()
	n := eventstore.MaxLimit + 5
	for i := 0; i < n; i++ {
		insert(t, s, sig.Make(kind.Reaction, timestamp.T(10000+i), "+"),
			eventstore.Accepted)
	}
	f := &filter.T{Kinds: kinds.T{kind.Reaction}}
	assert.Len(t, query(t, s, f), eventstore.DefaultLimit)
	f.Limit = intp(0)
	assert.Len(t, query(t, s, f), eventstore.DefaultLimit)
	f.Limit = intp(10000)
	got := query(t, s, f)
	require.Len(t, got, eventstore.MaxLimit)
	assert.EqualValues(t, 10000+n-1, got[0].CreatedAt)
	f.Limit = intp(3)
	f.Until = timestamp.T(10100).Ptr()
	got = query(t, s, f)
	require.Len(t, got, 3)
	assert.EqualValues(t, 10100, got[0].CreatedAt)
	assert.EqualValues(t, 10098, got[2].CreatedAt)
}

func testPrune(t *testing.T, s eventstore.Store) {
	sig := eventest.NewSigner()
	old := timestamp.FromTime(time.Now().Add(-200 * 24 * time.Hour))
	oldNote := sig.Make(kind.TextNote, old, "old", []string{"t", "old"})
	oldProfile := sig.Make(kind.ProfileMetadata, old, "{}")
	oldRelays := sig.Make(kind.RelayListMetadata, old, "")
	fresh := sig.Make(kind.TextNote, timestamp.Now(), "fresh")
	beforeEpoch := sig.Make(kind.TextNote, -1, "before the epoch")
	for _, ev := range []*event.T{oldNote, oldProfile, oldRelays, fresh,
		beforeEpoch} {
		insert(t, s, ev, eventstore.Accepted)
	}
	protected := kinds.T{kind.ProfileMetadata, kind.FollowList,
		kind.RelayListMetadata, kind.CommunityDefinition}
	n, err := s.Prune(context.Bg(), 90*24*time.Hour, protected)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	got := ids(query(t, s, &filter.T{}))
	assert.ElementsMatch(t, []string{oldProfile.ID, oldRelays.ID, fresh.ID}, got)
	assert.Empty(t, query(t, s, &filter.T{Tags: filter.TagMap{"t": {"old"}}}))
	if tc, ok := s.(TagRowCounter); ok {
		assert.Equal(t, 0, tc.TagRows())
	}
	n, err = s.Prune(context.Bg(), 90*24*time.Hour, protected)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

// testParity checks that the store returns what filter.Matches selects from
// the inserted events, over random events and filters.
func testParity(t *testing.T, s eventstore.Store) {
	signers := []*eventest.Signer{eventest.NewSigner(), eventest.NewSigner(),
		eventest.NewSigner()}
	regular := kinds.T{kind.TextNote, kind.Reaction, kind.ChannelMessage,
		kind.Reporting}
	names := []string{"e", "p", "t"}
	values := []string{"a", "b", "c", ""}
	var all []*event.T
	for i := 0; i < 80; i++ {
		var tt [][]string
		for j := frand.Intn(4); j > 0; j-- {
			tt = append(tt, []string{names[frand.Intn(len(names))],
				values[frand.Intn(len(values))]})
		}
		if frand.Intn(5) == 0 {
			tt = append(tt, []string{"x"}, []string{"long", "a"})
		}
		ev := signers[frand.Intn(len(signers))].Make(
			regular[frand.Intn(len(regular))],
			timestamp.T(1000+frand.Intn(20)), fmt.Sprint(i), tt...)
		insert(t, s, ev, eventstore.Accepted)
		all = append(all, ev)
	}
	// timestamps before the epoch are valid and sort before all others
	for i, ts := range []timestamp.T{-1, -86400, math.MinInt32} {
		ev := signers[i].Make(kind.TextNote, ts, fmt.Sprint("early ", i))
		insert(t, s, ev, eventstore.Accepted)
		all = append(all, ev)
	}
	early := all[len(all)-1]
	for _, f := range []*filter.T{
		{},
		{Limit: intp(500)},
		{IDs: tag.T{early.ID, early.ID}},
		{IDs: tag.T{all[0].ID, early.ID, all[0].ID}},
		{Kinds: kinds.T{kind.TextNote}, Limit: intp(500)},
		{Authors: tag.T{early.PubKey}, Limit: intp(500)},
		{Until: timestamp.T(-1).Ptr()},
		{Since: timestamp.T(-86400).Ptr(), Until: timestamp.T(1005).Ptr()},
	} {
		if !matchesStore(t, s, all, f) {
			return
		}
	}
	for i := 0; i < 200; i++ {
		f := randomFilter(all, signers, regular, names, values)
		if !matchesStore(t, s, all, f) {
			return
		}
	}
}

// matchesStore compares a query against the events of all that f matches.
func matchesStore(t *testing.T, s eventstore.Store, all []*event.T,
	f *filter.T) bool {

	t.Helper()
	want := make([]*event.T, 0)
	for _, ev := range all {
		if f.Matches(ev) {
			want = append(want, ev)
		}
	}
	sort.Sort(event.Descending(want))
	if limit := eventstore.ClampLimit(f.Limit); len(want) > limit {
		want = want[:limit]
	}
	got := query(t, s, f)
	return assert.Equal(t, ids(want), ids(got), "filter %s", f)
}

func randomFilter(all []*event.T, signers []*eventest.Signer,
	regular kinds.T, names, values []string) (f *filter.T) {

	f = &filter.T{}
	if frand.Intn(6) == 0 {
		for j := frand.Intn(3) + 1; j > 0; j-- {
			f.IDs = append(f.IDs, all[frand.Intn(len(all))].ID)
		}
	}
	if frand.Intn(3) == 0 {
		for j := frand.Intn(2) + 1; j > 0; j-- {
			f.Authors = append(f.Authors, signers[frand.Intn(len(signers))].Pub)
		}
	}
	if frand.Intn(3) == 0 {
		for j := frand.Intn(2) + 1; j > 0; j-- {
			f.Kinds = append(f.Kinds, regular[frand.Intn(len(regular))])
		}
	}
	if frand.Intn(2) == 0 {
		f.Tags = filter.TagMap{}
		for j := frand.Intn(2) + 1; j > 0; j-- {
			name := names[frand.Intn(len(names))]
			f.Tags[name] = append(f.Tags[name], values[frand.Intn(len(values))])
		}
	}
	if frand.Intn(3) == 0 {
		f.Since = timestamp.T(1000 + frand.Intn(20)).Ptr()
	}
	if frand.Intn(3) == 0 {
		f.Until = timestamp.T(1000 + frand.Intn(20)).Ptr()
	}
	if frand.Intn(2) == 0 {
		f.Limit = intp(frand.Intn(15))
	}
	return
}

func testExportImport(t *testing.T, s eventstore.Store) {
	if _, ok := s.(eventstore.Exporter); !ok {
		t.Skip("store cannot export")
	}
	sig := eventest.NewSigner()
	var want []string
	for i := 0; i < 5; i++ {
		ev := sig.Make(kind.TextNote, timestamp.T(2000+i), fmt.Sprint(i),
			[]string{"t", "export"})
		insert(t, s, ev, eventstore.Accepted)
		want = append(want, ev.ID)
	}
	var buf bytes.Buffer
	require.NoError(t, eventstore.Export(context.Bg(), s, &buf))
	assert.Equal(t, 5, bytes.Count(buf.Bytes(), []byte{'\n'}))

	// importing into the same store only finds duplicates
	dump := buf.String()
	stored, skipped, err := eventstore.Import(context.Bg(), s,
		bytes.NewBufferString(dump+"\n{not json}\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, stored)
	assert.Equal(t, 6, skipped)

	if w, ok := s.(eventstore.Wiper); ok {
		require.NoError(t, w.Wipe())
		stored, skipped, err = eventstore.Import(context.Bg(), s,
			bytes.NewBufferString(dump))
		require.NoError(t, err)
		assert.Equal(t, 5, stored)
		assert.Equal(t, 0, skipped)
		assert.ElementsMatch(t, want, ids(query(t, s,
			&filter.T{Tags: filter.TagMap{"t": {"export"}}})))
	}
}

func testWipe(t *testing.T, s eventstore.Store) {
	w, ok := s.(eventstore.Wiper)
	if !ok {
		t.Skip("store cannot wipe")
	}
	sig := eventest.NewSigner()
	insert(t, s, sig.TextNote("a", []string{"p", sig.Pub}), eventstore.Accepted)
	insert(t, s, sig.Make(kind.ProfileMetadata, 1, "{}"), eventstore.Accepted)
	require.NoError(t, w.Wipe())
	assert.Empty(t, query(t, s, &filter.T{}))
	if tc, ok := s.(TagRowCounter); ok {
		assert.Equal(t, 0, tc.TagRows())
	}
	// the address of the wiped profile is free again
	insert(t, s, sig.Make(kind.ProfileMetadata, 0, "{}"), eventstore.Accepted)
}

func testClosed(t *testing.T, s eventstore.Store) {
	require.NoError(t, s.Close())
	_, err := s.Insert(context.Bg(), eventest.NewSigner().TextNote("late"))
	assert.ErrorIs(t, err, eventstore.ErrClosed)
	_, err = s.Query(context.Bg(), &filter.T{})
	assert.ErrorIs(t, err, eventstore.ErrClosed)
}
