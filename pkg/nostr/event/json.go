package event

import (
	"errors"
	"math"

	"github.com/mailru/easyjson/jwriter"
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tags"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

var (
	// ErrMissingFields is returned for an event without the fields it cannot
	// be checked without: string id, pubkey and sig and a numeric kind.
	ErrMissingFields = errors.New("missing required fields")
	ErrMalformed     = errors.New("malformed event")
)

// MarshalEasyJSON writes the event object with its fields in the
// conventional order.
func (ev *T) MarshalEasyJSON(w *jwriter.Writer) {
	w.RawString(`{"id":`)
	w.String(ev.ID)
	w.RawString(`,"pubkey":`)
	w.String(ev.PubKey)
	w.RawString(`,"created_at":`)
	w.Int64(ev.CreatedAt.I64())
	w.RawString(`,"kind":`)
	w.Uint16(ev.Kind.ToUint16())
	w.RawString(`,"tags":[`)
	for i, t := range ev.Tags {
		if i > 0 {
			w.RawByte(',')
		}
		w.RawByte('[')
		for j, s := range t {
			if j > 0 {
				w.RawByte(',')
			}
			w.String(s)
		}
		w.RawByte(']')
	}
	w.RawString(`],"content":`)
	w.String(ev.Content)
	w.RawString(`,"sig":`)
	w.String(ev.Sig)
	w.RawByte('}')
}

func (ev *T) MarshalJSON() (b []byte, err error) {
	w := &jwriter.Writer{NoEscapeHTML: true}
	ev.MarshalEasyJSON(w)
	return w.BuildBytes()
}

func (ev *T) UnmarshalJSON(b []byte) (err error) {
	if !gjson.ValidBytes(b) {
		return ErrMalformed
	}
	var e *T
	if e, err = FromResult(gjson.ParseBytes(b)); err != nil {
		return
	}
	*ev = *e
	return
}

// Fields extracts the id, which may be empty, and checks the fields needed to
// verify an event are present with the right types. It is the cheap test done
// on a received event before any decoding.
func Fields(r gjson.Result) (id string, err error) {
	if !r.IsObject() {
		err = ErrMissingFields
		return
	}
	f := r.Get("id")
	if f.Type == gjson.String {
		id = f.Str
	} else {
		err = ErrMissingFields
	}
	if r.Get("pubkey").Type != gjson.String ||
		r.Get("sig").Type != gjson.String ||
		r.Get("kind").Type != gjson.Number {
		err = ErrMissingFields
	}
	return
}

// FromResult decodes an event from an already parsed JSON value.
func FromResult(r gjson.Result) (ev *T, err error) {
	if _, err = Fields(r); err != nil {
		return
	}
	k := r.Get("kind").Num
	if k < 0 || k > math.MaxUint16 || k != math.Trunc(k) {
		err = ErrMalformed
		return
	}
	ev = &T{
		ID:      r.Get("id").Str,
		PubKey:  r.Get("pubkey").Str,
		Kind:    kind.T(k),
		Content: r.Get("content").Str,
		Sig:     r.Get("sig").Str,
	}
	ca := r.Get("created_at")
	switch ca.Type {
	case gjson.Number:
		ev.CreatedAt = timestamp.T(ca.Int())
	case gjson.Null:
	default:
		err = ErrMalformed
		return
	}
	if c := r.Get("content"); c.Exists() && c.Type != gjson.String {
		err = ErrMalformed
		return
	}
	tt := r.Get("tags")
	if !tt.Exists() || tt.Type == gjson.Null {
		ev.Tags = tags.T{}
		return
	}
	if !tt.IsArray() {
		err = ErrMalformed
		return
	}
	ev.Tags = make(tags.T, 0, len(tt.Array()))
	tt.ForEach(func(_, t gjson.Result) bool {
		if !t.IsArray() {
			err = ErrMalformed
			return false
		}
		tg := make(tag.T, 0, 3)
		t.ForEach(func(_, s gjson.Result) bool {
			if s.Type != gjson.String {
				err = ErrMalformed
				return false
			}
			tg = append(tg, s.Str)
			return true
		})
		if err != nil {
			return false
		}
		if len(tg) == 0 {
			err = ErrMalformed
			return false
		}
		ev.Tags = append(ev.Tags, tg)
		return true
	})
	if err != nil {
		ev = nil
	}
	return
}
