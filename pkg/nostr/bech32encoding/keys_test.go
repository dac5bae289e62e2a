package bech32encoding

import (
	"bytes"
	"testing"

	"lukechampine.com/frand"
)

const (
	TestSecBech32 = "nsec1z7tlduw3qkf4fz6kdw3jaq2h02jtexgwkrck244l3p834a930sjsh8t89c"
	TestPubBech32 = "npub1flds0h62dqlra6dj48g30cqmlcj534lgcr2vk4kh06wzxzgu8lpss5kaa2"
	TestSecHex    = "1797f6f1d10593548b566ba32e81577aa4bc990eb0f16556bf884f1af4b17c25"
	TestPubHex    = "4fdb07df4a683e3ee9b2a9d117e01bfe2548d7e8c0d4cb56d77e9c23091c3fc3"
)

func TestConvertBits(t *testing.T) {
	for i := 0; i < 1000; i++ {
		b8 := frand.Bytes(32)
		b5, err := ConvertForBech32(b8)
		if err != nil {
			t.Fatal(err)
		}
		b58, err := ConvertFromBech32(b5)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(b8, b58[:32]) {
			t.Fatal("round trip changed the bytes")
		}
	}
}

func TestKnownKeys(t *testing.T) {
	nsec, err := HexToNsec(TestSecHex)
	if err != nil || nsec != TestSecBech32 {
		t.Fatalf("nsec %s %v", nsec, err)
	}
	npub, err := HexToNpub(TestPubHex)
	if err != nil || npub != TestPubBech32 {
		t.Fatalf("npub %s %v", npub, err)
	}
	sk, err := NsecToHex(TestSecBech32)
	if err != nil || sk != TestSecHex {
		t.Fatalf("sec %s %v", sk, err)
	}
	pk, err := NpubToHex(TestPubBech32)
	if err != nil || pk != TestPubHex {
		t.Fatalf("pub %s %v", pk, err)
	}
	if _, err = NpubToHex(TestSecBech32); err == nil {
		t.Fatal("nsec decoded as npub")
	}
	if _, err = HexToNpub("abcd"); err == nil {
		t.Fatal("short key encoded")
	}
}
