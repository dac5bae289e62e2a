// Package event is the nostr event, its canonical form, id and signature.
package event

import (
	"bytes"
	"encoding/hex"
	"errors"
	"os"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/minio/sha256-simd"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tags"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/text"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

// Hex lengths of the fixed size fields.
const (
	IDLen     = 64
	PubKeyLen = 64
	SigLen    = 128
)

var (
	ErrIDMismatch = errors.New("event id does not match its content")
	ErrBadHex     = errors.New("field is not lowercase hex of the expected length")
)

func Hash(in []byte) (out []byte) {
	h := sha256.Sum256(in)
	return h[:]
}

// T is the primary datatype of nostr. This is the form of the structure
// that defines its JSON string based format.
type T struct {

	// ID is the SHA256 hash of the canonical encoding of the event
	ID string `json:"id"`

	// PubKey is the public key of the event creator in *hexadecimal* format
	PubKey string `json:"pubkey"`

	// CreatedAt is the UNIX timestamp of the event according to the event
	// creator (never trust a timestamp!)
	CreatedAt timestamp.T `json:"created_at"`

	// Kind is the nostr protocol code for the type of event. See kind.T
	Kind kind.T `json:"kind"`

	// Tags are a list of tags, which are a list of strings usually structured
	// as a 3 layer scheme indicating specific features of an event.
	Tags tags.T `json:"tags"`

	// Content is an arbitrary string that can contain anything, but usually
	// conforming to a specification relating to the Kind and the Tags.
	Content string `json:"content"`

	// Sig is the signature on the ID hash that validates as coming from the
	// Pubkey.
	Sig string `json:"sig"`
}

// Newer is the order of query results: newest first, and among events of the
// same second the lower id first.
func Newer(a, b *T) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID < b.ID
}

// Ascending is a slice of events that sorts in ascending chronological order
type Ascending []*T

func (ev Ascending) Len() int           { return len(ev) }
func (ev Ascending) Less(i, j int) bool { return Newer(ev[j], ev[i]) }
func (ev Ascending) Swap(i, j int)      { ev[i], ev[j] = ev[j], ev[i] }

// Descending sorts a slice of events in reverse chronological order (newest
// first)
type Descending []*T

func (e Descending) Len() int           { return len(e) }
func (e Descending) Less(i, j int) bool { return Newer(e[i], e[j]) }

func (e Descending) Swap(i, j int) { e[i], e[j] = e[j], e[i] }

// ToCanonical returns the canonical form used to generate the ID hash that can
// be signed:
//
//	[0,<pubkey>,<created_at>,<kind>,<tags>,<content>]
func (ev *T) ToCanonical() (b []byte) {
	b = make([]byte, 0, 128+len(ev.Content))
	b = append(b, "[0,"...)
	b = text.EscapeString(b, ev.PubKey)
	b = append(b, ',')
	b = strconv.AppendInt(b, ev.CreatedAt.I64(), 10)
	b = append(b, ',')
	b = strconv.AppendUint(b, uint64(ev.Kind), 10)
	b = append(b, ',')
	if ev.Tags == nil {
		b = append(b, "[]"...)
	} else {
		b = ev.Tags.MarshalTo(b)
	}
	b = append(b, ',')
	b = text.EscapeString(b, ev.Content)
	b = append(b, ']')
	return
}

// GetIDBytes returns the raw SHA256 hash of the canonical form of an T.
func (ev *T) GetIDBytes() []byte { return Hash(ev.ToCanonical()) }

// GetID serializes and returns the event ID as a hexadecimal string.
func (ev *T) GetID() string { return hex.EncodeToString(ev.GetIDBytes()) }

// IsLowerHex reports whether s is exactly n lowercase hexadecimal characters.
func IsLowerHex(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// CheckSignature checks the id is the hash of the content and the signature
// is valid for the id by the pubkey. An error describes what part of the event
// is malformed.
func (ev *T) CheckSignature() (valid bool, err error) {
	if !IsLowerHex(ev.ID, IDLen) || !IsLowerHex(ev.PubKey, PubKeyLen) ||
		!IsLowerHex(ev.Sig, SigLen) {
		err = ErrBadHex
		return
	}
	id := ev.GetIDBytes()
	var claimed []byte
	if claimed, err = hex.DecodeString(ev.ID); chk.T(err) {
		return
	}
	if !bytes.Equal(id, claimed) {
		err = ErrIDMismatch
		return
	}
	// decode and parse the pubkey, which must be a valid x coordinate.
	var pkBytes []byte
	if pkBytes, err = hex.DecodeString(ev.PubKey); chk.T(err) {
		return
	}
	var pk *btcec.PublicKey
	if pk, err = schnorr.ParsePubKey(pkBytes); chk.T(err) {
		err = log.T.Err("event has invalid pubkey '%s': %w", ev.PubKey, err)
		return
	}
	var sigBytes []byte
	if sigBytes, err = hex.DecodeString(ev.Sig); chk.T(err) {
		return
	}
	var sig *schnorr.Signature
	if sig, err = schnorr.ParseSignature(sigBytes); chk.T(err) {
		err = log.T.Err("failed to parse signature: %w", err)
		return
	}
	valid = sig.Verify(id, pk)
	return
}

// Verify is true only for an event whose id and signature are both correct.
// Malformed fields make it false, it never panics.
func (ev *T) Verify() (valid bool) {
	if ev == nil {
		return
	}
	valid, _ = ev.CheckSignature()
	return
}

// Sign signs an event with a given Secret Key encoded in hexadecimal.
func (ev *T) Sign(skStr string) (err error) {
	// secret key hex must be 64 characters.
	if len(skStr) != 64 {
		err = log.E.Err("invalid secret key length, 64 required, got %d",
			len(skStr))
		return
	}
	var skBytes []byte
	if skBytes, err = hex.DecodeString(skStr); chk.D(err) {
		err = log.E.Err("sign called with invalid secret key: %w", err)
		return
	}
	sk, _ := btcec.PrivKeyFromBytes(skBytes)
	err = ev.SignWithSecKey(sk)
	chk.D(err)
	return
}

// SignWithSecKey sets the pubkey, id and signature of the event for the given
// secret key.
func (ev *T) SignWithSecKey(sk *btcec.PrivateKey) (err error) {
	// the pubkey is part of the canonical form so it is set first.
	ev.PubKey = hex.EncodeToString(schnorr.SerializePubKey(sk.PubKey()))
	id := ev.GetIDBytes()
	var sig *schnorr.Signature
	if sig, err = schnorr.Sign(sk, id); chk.D(err) {
		return err
	}
	ev.ID = hex.EncodeToString(id)
	ev.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// Clone returns a deep copy of the event.
func (ev *T) Clone() *T {
	c := *ev
	c.Tags = ev.Tags.Clone()
	return &c
}

// Serialize is MarshalJSON for callers that have nowhere to send an error.
func (ev *T) Serialize() (b []byte) {
	b, _ = ev.MarshalJSON()
	return
}

func (ev *T) String() string { return string(ev.Serialize()) }
