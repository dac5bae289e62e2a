package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/app"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/memory"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/bech32encoding"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event/eventest"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filters"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/keys"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
)

func testRelay(t *testing.T) (url string) {
	c, cancel := context.Cancel(context.Bg())
	store := memory.New()
	rl := app.NewRelay(c, cancel, nil, nil, store, nil, nil)
	srv := httptest.NewServer(rl)
	t.Cleanup(func() {
		srv.Close()
		rl.Shutdown(context.Bg())
		cancel()
		chk.E(store.Close())
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestPublishAndRequest(t *testing.T) {
	url := testRelay(t)
	c, cancel := context.Timeout(context.Bg(), 10*time.Second)
	defer cancel()
	sig := eventest.NewSigner()
	var out bytes.Buffer
	ev := sig.TextNote("from the tool")
	ok, err := send(c, url, ev, &out)
	require.NoError(t, err)
	assert.True(t, ok.OK)
	assert.Equal(t, ev.ID, ok.ID)
	assert.Equal(t, `["OK","`+ev.ID+`",true,""]`, strings.TrimSpace(out.String()))

	ok, err = send(c, url, ev, &out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ok.Reason, "duplicate:"))

	out.Reset()
	n, err := request(c, url, filters.T{{Kinds: kinds.T{1}}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, ev.ID, gjson.Get(out.String(), "id").Str)

	out.Reset()
	n, err = request(c, url, filters.T{{Authors: []string{keys.GeneratePrivateKey()}}},
		&out)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, out.String())
}

func TestPublishCommand(t *testing.T) {
	url := testRelay(t)
	sig := eventest.NewSigner()
	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	require.NoError(t, a.Run([]string{AppName, "publish", "--sec", sig.SecHex,
		"-t", "t=test", url, "tagged"}))
	res := gjson.Parse(strings.TrimSpace(out.String()))
	assert.True(t, res.Get("2").Bool(), out.String())

	out.Reset()
	require.NoError(t, a.Run([]string{AppName, "req", "-k", "1", "-t", "t=test",
		"-l", "5", url}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, "tagged", gjson.Get(lines[0], "content").Str)
	assert.Equal(t, sig.Pub, gjson.Get(lines[0], "pubkey").Str)

	assert.Error(t, a.Run([]string{AppName, "publish", "--sec", "nope", url,
		"x"}))
	assert.Error(t, a.Run([]string{AppName, "publish", "--sec", sig.SecHex,
		url}))
}

func TestKeygen(t *testing.T) {
	sk := keys.GeneratePrivateKey()
	pk, err := keys.GetPublicKey(sk)
	require.NoError(t, err)
	nsec, err := bech32encoding.HexToNsec(sk)
	require.NoError(t, err)
	var out bytes.Buffer
	require.NoError(t, printKeys(&out, nsec, false))
	s := out.String()
	assert.Contains(t, s, "sec:  "+sk)
	assert.Contains(t, s, "pub:  "+pk)
	assert.Contains(t, s, "npub1")

	out.Reset()
	require.NoError(t, printKeys(&out, sk, true))
	assert.Greater(t, strings.Count(out.String(), "\n"), 10)

	assert.Error(t, printKeys(&out, "abc", false))
}

func TestParseTags(t *testing.T) {
	tt, err := parseTags([]string{"e=abc", "p=def;wss://relay.example"})
	require.NoError(t, err)
	require.Len(t, tt, 2)
	assert.Equal(t, []string{"e", "abc"}, []string(tt[0]))
	assert.Equal(t, []string{"p", "def", "wss://relay.example"}, []string(tt[1]))
	_, err = parseTags([]string{"novalue"})
	assert.Error(t, err)
}
