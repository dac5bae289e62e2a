// Package filter is the nostr subscription filter and the predicate that
// decides whether an event satisfies it.
package filter

import (
	"sort"

	"github.com/mailru/easyjson/jwriter"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

// T is a query where one or all elements can be filled in.
//
// The Tags are a special case because in JSON they are not grouped under a
// key but appear as their own "#x" keys next to the other fields:
//
//	{"kinds":[1],"#e":["..."],"#p":["..."]}
//
// In the struct they are collected into the TagMap keyed by the letter
// without the hash.
//
// An empty list is the same as an absent one: it places no constraint on the
// events that match.
type T struct {
	IDs     tag.T
	Kinds   kinds.T
	Authors tag.T
	Tags    TagMap
	Since   *timestamp.T
	Until   *timestamp.T
	Limit   *int
}

type TagMap map[string]tag.T

func (t TagMap) Clone() (t1 TagMap) {
	if t == nil {
		return
	}
	t1 = make(TagMap)
	for i := range t {
		t1[i] = t[i].Clone()
	}
	return
}

// Keys returns the tag names in sorted order.
func (t TagMap) Keys() (k []string) {
	for i := range t {
		k = append(k, i)
	}
	sort.Strings(k)
	return
}

// Matches is true if ev satisfies every clause present in the filter. This is
// the same predicate the event stores implement in their queries.
func (f *T) Matches(ev *event.T) bool {
	if ev == nil {
		return false
	}
	if len(f.IDs) > 0 && !f.IDs.Contains(ev.ID) {
		return false
	}
	if len(f.Kinds) > 0 && !f.Kinds.Contains(ev.Kind) {
		return false
	}
	if len(f.Authors) > 0 && !f.Authors.Contains(ev.PubKey) {
		return false
	}
	for name, v := range f.Tags {
		if len(v) > 0 && !ev.Tags.ContainsAny(name, v...) {
			return false
		}
	}
	if f.Since != nil && ev.CreatedAt < *f.Since {
		return false
	}
	if f.Until != nil && ev.CreatedAt > *f.Until {
		return false
	}
	return true
}

func arePointerValuesEqual[V comparable](a *V, b *V) bool {
	if a == nil && b == nil {
		return true
	}
	if a != nil && b != nil {
		return *a == *b
	}
	return false
}

func Equal(a, b *T) bool {
	// switch is a convenient way to bundle a long list of tests like this:
	switch {
	case !a.Kinds.Equals(b.Kinds),
		!a.IDs.Equals(b.IDs),
		!a.Authors.Equals(b.Authors),
		len(a.Tags) != len(b.Tags),
		!arePointerValuesEqual(a.Since, b.Since),
		!arePointerValuesEqual(a.Until, b.Until),
		!arePointerValuesEqual(a.Limit, b.Limit):

		return false
	}
	for f, av := range a.Tags {
		if bv, ok := b.Tags[f]; !ok {
			return false
		} else if !av.Equals(bv) {
			return false
		}
	}
	return true
}

func (f *T) Clone() (clone *T) {
	clone = &T{
		IDs:     f.IDs.Clone(),
		Authors: f.Authors.Clone(),
		Kinds:   f.Kinds.Clone(),
		Tags:    f.Tags.Clone(),
		Since:   timestamp.Clone(f.Since),
		Until:   timestamp.Clone(f.Until),
	}
	if f.Limit != nil {
		l := *f.Limit
		clone.Limit = &l
	}
	return
}

func writeStrings(w *jwriter.Writer, s []string) {
	w.RawByte('[')
	for i := range s {
		if i > 0 {
			w.RawByte(',')
		}
		w.String(s[i])
	}
	w.RawByte(']')
}

// MarshalEasyJSON writes the filter with absent fields omitted and the tag
// filters promoted to "#x" keys in sorted order.
func (f *T) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawByte('{')
	first := true
	key := func(k string) {
		if !first {
			w.RawByte(',')
		}
		first = false
		w.String(k)
		w.RawByte(':')
	}
	if len(f.IDs) > 0 {
		key("ids")
		writeStrings(w, f.IDs)
	}
	if len(f.Kinds) > 0 {
		key("kinds")
		w.RawByte('[')
		for i, k := range f.Kinds {
			if i > 0 {
				w.RawByte(',')
			}
			w.Uint16(k.ToUint16())
		}
		w.RawByte(']')
	}
	if len(f.Authors) > 0 {
		key("authors")
		writeStrings(w, f.Authors)
	}
	for _, name := range f.Tags.Keys() {
		if len(f.Tags[name]) == 0 {
			continue
		}
		key("#" + name)
		writeStrings(w, f.Tags[name])
	}
	if f.Since != nil {
		key("since")
		w.Int64(f.Since.I64())
	}
	if f.Until != nil {
		key("until")
		w.Int64(f.Until.I64())
	}
	if f.Limit != nil {
		key("limit")
		w.Int(*f.Limit)
	}
	w.RawByte('}')
}

func (f *T) MarshalJSON() (b []byte, err error) {
	w := &jwriter.Writer{NoEscapeHTML: true}
	f.MarshalEasyJSON(w)
	return w.BuildBytes()
}

func (f *T) String() string {
	b, _ := f.MarshalJSON()
	return string(b)
}
