package filter

import (
	"errors"
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

var (
	ErrNotObject     = errors.New("filter is not a JSON object")
	ErrNegativeLimit = errors.New("filter limit is negative")
)

// UnmarshalJSON correctly unpacks a JSON encoded T rolling up the Tags as
// they should be.
func (f *T) UnmarshalJSON(b []byte) (err error) {
	if f == nil {
		return fmt.Errorf("cannot unmarshal into nil T")
	}
	if !gjson.ValidBytes(b) {
		return ErrNotObject
	}
	var nf *T
	if nf, err = FromResult(gjson.ParseBytes(b)); err != nil {
		return
	}
	*f = *nf
	return
}

func stringList(key string, r gjson.Result) (l tag.T, err error) {
	if !r.IsArray() {
		return nil, fmt.Errorf("filter field %s is not an array", key)
	}
	r.ForEach(func(_, v gjson.Result) bool {
		if v.Type != gjson.String {
			err = fmt.Errorf("filter field %s has a non string member", key)
			return false
		}
		l = append(l, v.Str)
		return true
	})
	return
}

func integer(key string, r gjson.Result) (n int64, err error) {
	if r.Type != gjson.Number || r.Num != math.Trunc(r.Num) {
		err = fmt.Errorf("filter field %s is not an integer", key)
		return
	}
	return r.Int(), nil
}

// FromResult decodes a filter from a parsed JSON value. Keys that are not
// part of a filter are ignored, as are "#" keys longer than one letter.
func FromResult(r gjson.Result) (f *T, err error) {
	if !r.IsObject() {
		return nil, ErrNotObject
	}
	f = &T{}
	r.ForEach(func(k, v gjson.Result) bool {
		key := k.Str
		if v.Type == gjson.Null {
			return true
		}
		switch key {
		case "ids":
			f.IDs, err = stringList(key, v)
		case "authors":
			f.Authors, err = stringList(key, v)
		case "kinds":
			if !v.IsArray() {
				err = fmt.Errorf("filter field kinds is not an array")
				break
			}
			v.ForEach(func(_, kv gjson.Result) bool {
				var n int64
				if n, err = integer(key, kv); err != nil {
					return false
				}
				if n < 0 || n > math.MaxUint16 {
					err = fmt.Errorf("filter kind %d out of range", n)
					return false
				}
				f.Kinds = append(f.Kinds, kind.T(n))
				return true
			})
		case "since", "until":
			var n int64
			if n, err = integer(key, v); err != nil {
				break
			}
			ts := timestamp.T(n)
			if key == "since" {
				f.Since = &ts
			} else {
				f.Until = &ts
			}
		case "limit":
			var n int64
			if n, err = integer(key, v); err != nil {
				break
			}
			if n < 0 {
				err = ErrNegativeLimit
				break
			}
			if n > math.MaxInt32 {
				n = math.MaxInt32
			}
			l := int(n)
			f.Limit = &l
		default:
			if len(key) == 2 && key[0] == '#' {
				var vals tag.T
				if vals, err = stringList(key, v); err != nil {
					break
				}
				if f.Tags == nil {
					f.Tags = make(TagMap)
				}
				f.Tags[key[1:]] = vals
			}
		}
		return err == nil
	})
	if err != nil {
		f = nil
	}
	return
}
