// Package bech32encoding converts hex keys to and from the npub and nsec
// forms users copy around.
package bech32encoding

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

const (
	// MinKeyStringLen is 56 because Bech32 needs 52 characters plus 4 for the HRP,
	// any string shorter than this cannot be a nostr key.
	MinKeyStringLen = 56
	HexKeyLen       = 64
	Bech32HRPLen    = 4
	SecHRP          = "nsec"
	PubHRP          = "npub"
)

// ConvertForBech32 performs the bit expansion required for encoding into
// Bech32.
func ConvertForBech32(b8 []byte) (b5 []byte, err error) {
	return bech32.ConvertBits(b8, 8, 5, true)
}

// ConvertFromBech32 collapses together the bit expanded 5 bit numbers encoded
// in bech32.
func ConvertFromBech32(b5 []byte) (b8 []byte, err error) {
	return bech32.ConvertBits(b5, 5, 8, true)
}

func encode(hrp, h string) (encoded string, err error) {
	if len(h) != HexKeyLen {
		err = fmt.Errorf("key is %d characters, must be %d", len(h), HexKeyLen)
		return
	}
	var b8, b5 []byte
	if b8, err = hex.DecodeString(h); err != nil {
		return
	}
	if b5, err = ConvertForBech32(b8); err != nil {
		return
	}
	return bech32.Encode(hrp, b5)
}

func decode(hrp, encoded string) (h string, err error) {
	var got string
	var b5, b8 []byte
	if got, b5, err = bech32.Decode(encoded); err != nil {
		return
	}
	if got != hrp {
		err = fmt.Errorf("wrong human readable part, got '%s' want '%s'",
			got, hrp)
		return
	}
	if b8, err = ConvertFromBech32(b5); err != nil {
		return
	}
	if len(b8) < 32 {
		err = fmt.Errorf("decoded key is %d bytes, must be 32", len(b8))
		return
	}
	return hex.EncodeToString(b8[:32]), nil
}

// HexToNsec encodes a hex secret key as a Bech32 string (nsec).
func HexToNsec(sk string) (string, error) { return encode(SecHRP, sk) }

// HexToNpub encodes a hex x-only public key as a bech32 string (npub).
func HexToNpub(pk string) (string, error) { return encode(PubHRP, pk) }

// NsecToHex decodes a nostr secret key (nsec) to hex.
func NsecToHex(encoded string) (string, error) { return decode(SecHRP, encoded) }

// NpubToHex decodes an npub to hex, checking that it is a point on the curve.
func NpubToHex(encoded string) (pk string, err error) {
	if pk, err = decode(PubHRP, encoded); err != nil {
		return
	}
	b, _ := hex.DecodeString(pk)
	if _, err = schnorr.ParsePubKey(b); err != nil {
		pk = ""
	}
	return
}
