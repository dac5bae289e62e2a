// package keys_test needs to be a different package name or the implementation
// types imports will circular
package keys_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"lukechampine.com/frand"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/createdat"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/id"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/index"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/kinder"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/pubkey"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/serial"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/badger/keys/tagvalue"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

func TestElement(t *testing.T) {
	vp := index.New(index.PubkeyKind)
	vid := id.New(hex.EncodeToString(frand.Bytes(32)))
	vk := kinder.New(kind.T(30023))
	vpk, err := pubkey.New(hex.EncodeToString(frand.Bytes(32)))
	if err != nil {
		t.Fatal(err)
	}
	vtv, err := tagvalue.New("t", "nostr")
	if err != nil {
		t.Fatal(err)
	}
	vca := createdat.New(timestamp.Now())
	vs := serial.New(frand.Bytes(serial.Len))
	b := keys.Write(vp, vid, vk, vpk, vtv, vca, vs)
	if len(b) != 1+id.Len+kinder.Len+pubkey.Len+tagvalue.Len+createdat.Len+serial.Len {
		t.Fatalf("unexpected key length %d", len(b))
	}

	vp2, vid2, vk2 := index.New(0), id.New(), kinder.New(0)
	vpk2, _ := pubkey.New()
	vtv2, vca2, vs2 := tagvalue.Empty(), createdat.New(0), serial.New(nil)
	keys.Read(b, vp2, vid2, vk2, vpk2, vtv2, vca2, vs2)
	switch {
	case !bytes.Equal(vp.Val, vp2.Val):
		t.Errorf("index: got %x expected %x", vp2.Val, vp.Val)
	case !bytes.Equal(vid.Val, vid2.Val):
		t.Errorf("id: got %x expected %x", vid2.Val, vid.Val)
	case vk.Val != vk2.Val:
		t.Errorf("kind: got %v expected %v", vk2.Val, vk.Val)
	case !bytes.Equal(vpk.Val, vpk2.Val):
		t.Errorf("pubkey: got %x expected %x", vpk2.Val, vpk.Val)
	case !bytes.Equal(vtv.Val, vtv2.Val):
		t.Errorf("tag: got %x expected %x", vtv2.Val, vtv.Val)
	case vca.Val != vca2.Val:
		t.Errorf("created_at: got %v expected %v", vca2.Val, vca.Val)
	case !bytes.Equal(vs.Val, vs2.Val):
		t.Errorf("serial: got %x expected %x", vs2.Val, vs.Val)
	}
}

func TestTimestampOrder(t *testing.T) {
	// encoded timestamps sort the same as the numbers
	a := keys.Write(createdat.New(255), serial.New(serial.Make(9)))
	b := keys.Write(createdat.New(256), serial.New(serial.Make(1)))
	if bytes.Compare(a, b) >= 0 {
		t.Fatalf("%x should sort before %x", a, b)
	}
	neg := keys.Write(createdat.New(-1), serial.New(serial.Make(9)))
	zero := keys.Write(createdat.New(0), serial.New(serial.Make(1)))
	if bytes.Compare(neg, zero) >= 0 {
		t.Fatalf("%x should sort before %x", neg, zero)
	}
	ca := createdat.New(0)
	keys.Read(neg, ca)
	if ca.Val != -1 {
		t.Fatalf("read %d from %x", ca.Val, neg)
	}
}

func TestInvalid(t *testing.T) {
	if _, err := pubkey.New("abcd"); err == nil {
		t.Fatal("short pubkey accepted")
	}
	if _, err := tagvalue.New("long", "x"); err == nil {
		t.Fatal("multi character tag name accepted")
	}
	if v := id.New("short"); !bytes.Equal(v.Val, make([]byte, id.Len)) {
		t.Fatal("short id should give an empty prefix")
	}
}
