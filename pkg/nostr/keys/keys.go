package keys

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"lukechampine.com/frand"
)

// GeneratePrivateKey returns a new random secret key as hex.
func GeneratePrivateKey() string {
	for {
		// a random 32 byte string is out of the curve order range with
		// negligible probability, but the check costs nothing.
		b := frand.Bytes(32)
		var s btcec.ModNScalar
		if overflow := s.SetByteSlice(b); !overflow && !s.IsZero() {
			return hex.EncodeToString(b)
		}
	}
}

// GetPublicKey derives the x-only public key in hex from a hex secret key.
func GetPublicKey(sk string) (string, error) {
	b, e := hex.DecodeString(sk)
	if e != nil {
		return "", e
	}
	_, pk := btcec.PrivKeyFromBytes(b)
	return hex.EncodeToString(schnorr.SerializePubKey(pk)), nil
}

func IsValid32ByteHex(pk string) bool {
	if strings.ToLower(pk) != pk {
		return false
	}
	dec, _ := hex.DecodeString(pk)
	return len(dec) == 32
}
