// Package eventest makes signed events for tests.
package eventest

import (
	"encoding/base64"
	"encoding/hex"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"lukechampine.com/frand"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/keys"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tags"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/relayd/pkg/slog"
)

var log, chk = slog.New(os.Stderr)

const (
	TestSecHex = "1797f6f1d10593548b566ba32e81577aa4bc990eb0f16556bf884f1af4b17c25"
	TestPubHex = "4fdb07df4a683e3ee9b2a9d117e01bfe2548d7e8c0d4cb56d77e9c23091c3fc3"
)

// Signer holds a key pair and signs events with it.
type Signer struct {
	Sec    *btcec.PrivateKey
	SecHex string
	Pub    string
}

// NewSigner creates a signer with a fresh random key.
func NewSigner() *Signer { return SignerFromHex(keys.GeneratePrivateKey()) }

// SignerFromHex creates a signer for a known secret key.
func SignerFromHex(sk string) (s *Signer) {
	b, err := hex.DecodeString(sk)
	if chk.E(err) {
		panic(err)
	}
	sec, pub := btcec.PrivKeyFromBytes(b)
	return &Signer{
		Sec:    sec,
		SecHex: sk,
		Pub:    hex.EncodeToString(schnorr.SerializePubKey(pub)),
	}
}

// Sign sets the pubkey, id and signature of ev and returns it.
func (s *Signer) Sign(ev *event.T) *event.T {
	if ev.Tags == nil {
		ev.Tags = tags.T{}
	}
	if err := ev.SignWithSecKey(s.Sec); chk.E(err) {
		panic(err)
	}
	return ev
}

// Make builds and signs an event.
func (s *Signer) Make(k kind.T, ts timestamp.T, content string,
	t ...[]string) *event.T {
	ev := &event.T{CreatedAt: ts, Kind: k, Content: content, Tags: tags.T{}}
	for _, tt := range t {
		ev.Tags = append(ev.Tags, tt)
	}
	return s.Sign(ev)
}

// TextNote makes a kind 1 note with the current time.
func (s *Signer) TextNote(content string, t ...[]string) *event.T {
	return s.Make(kind.TextNote, timestamp.Now(), content, t...)
}

// GenerateEvent makes a text note of random content up to maxSize bytes.
func GenerateEvent(sec string, maxSize int) (ev *event.T, err error) {
	l := frand.Intn(maxSize*6/8) + 1 // account for base64 expansion
	ev = &event.T{
		Kind:      kind.TextNote,
		CreatedAt: timestamp.Now(),
		Tags:      tags.T{},
		Content:   base64.StdEncoding.EncodeToString(frand.Bytes(l)),
	}
	if err = ev.Sign(sec); chk.E(err) {
		return
	}
	log.T.Ln("generated", ev.ID)
	return
}
