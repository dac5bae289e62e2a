package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore/memory"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event/eventest"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/nip11"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) gjson.Result {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	typ, b, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, typ)
	return gjson.ParseBytes(b)
}

func write(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
}

func TestWebsocketSession(t *testing.T) {
	store := memory.New()
	rl := newTestRelayWithStore(t, nil, store, nil, nil)
	srv := httptest.NewServer(rl)
	defer srv.Close()

	sig := eventest.NewSigner()
	ts := timestamp.Now() - 1000
	for i := 0; i < 15; i++ {
		_, err := store.Insert(context.Bg(),
			sig.Make(kind.TextNote, ts+timestamp.T(i), "backlog"))
		require.NoError(t, err)
	}

	a := dial(t, srv)
	write(t, a, `["REQ","sub1",{"kinds":[1],"limit":10}]`)
	var last int64 = 1 << 62
	for i := 0; i < 10; i++ {
		m := read(t, a)
		require.Equal(t, "EVENT", m.Get("0").Str, m.Raw)
		require.Equal(t, "sub1", m.Get("1").Str)
		created := m.Get("2.created_at").Int()
		assert.LessOrEqual(t, created, last)
		last = created
	}
	m := read(t, a)
	require.Equal(t, `["EOSE","sub1"]`, m.Raw)

	b := dial(t, srv)
	ev := sig.TextNote("live")
	write(t, b, `["EVENT",`+ev.String()+`]`)
	ok := read(t, b)
	assert.Equal(t, `["OK","`+ev.ID+`",true,""]`, ok.Raw)
	m = read(t, a)
	assert.Equal(t, "EVENT", m.Get("0").Str)
	assert.Equal(t, "sub1", m.Get("1").Str)
	assert.Equal(t, ev.ID, m.Get("2.id").Str)
	assert.True(t, m.Get("2.sig").Exists())

	// the subscription ends with the connection
	require.NoError(t, a.Close())
	require.Eventually(t, func() bool { return rl.Sessions() == 1 },
		5*time.Second, 10*time.Millisecond)
}

func TestWebsocketOversizedFrame(t *testing.T) {
	rl := newTestRelay(t, &Config{MaxMessageSize: 512}, nil, nil)
	srv := httptest.NewServer(rl)
	defer srv.Close()
	conn := dial(t, srv)
	write(t, conn, `["REQ","big",{"search":"`+strings.Repeat("a", 2000)+`"}]`)
	m := read(t, conn)
	assert.Equal(t, "NOTICE", m.Get("0").Str)
	assert.Contains(t, m.Get("1").Str, "512")
	// the connection survives
	write(t, conn, `["REQ","small",{"kinds":[1]}]`)
	assert.Equal(t, `["EOSE","small"]`, read(t, conn).Raw)
}

func TestWhitelist(t *testing.T) {
	rl := newTestRelay(t, &Config{Whitelist: []string{"192.0.2.1"}}, nil, nil)
	srv := httptest.NewServer(rl)
	defer srv.Close()
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandleNIP11(t *testing.T) {
	rl := newTestRelay(t, &Config{}, nil, nil)
	rl.Info.Name = "test relay"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/nostr+json")
	req.Header.Set("Origin", "https://client.example")
	rec := httptest.NewRecorder()
	rl.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/nostr+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	var inf nip11.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inf))
	assert.Equal(t, "test relay", inf.Name)
	assert.Equal(t, []int{1, 9, 11}, inf.SupportedNIPs)
	require.NotNil(t, inf.Limitation)
	assert.Equal(t, 10, inf.Limitation.MaxFilters)
	assert.Equal(t, 64, inf.Limitation.MaxSubidLength)
}

func TestHandleRoot(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	cl := rl.connect(t)
	cl.send(`["REQ","a",{"kinds":[1]}]`)
	cl.expectEOSE("a")
	cl.send(`["REQ","b",{"kinds":[1]},{"kinds":[7]}]`)
	cl.expectEOSE("b")
	rec := httptest.NewRecorder()
	rl.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	r := gjson.ParseBytes(rec.Body.Bytes())
	assert.Equal(t, int64(1), r.Get("sessions").Int())
	assert.Equal(t, int64(2), r.Get("distinct_filters").Int())
	assert.Equal(t, Version, r.Get("version").Str)

	rec = httptest.NewRecorder()
	rl.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShuttingDown(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	rl.Cancel()
	rec := httptest.NewRecorder()
	rl.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStartAndShutdown(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	started := make(chan bool)
	done := make(chan error, 1)
	go func() { done <- rl.Start("127.0.0.1:0", started) }()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not start")
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+rl.Addr, nil)
	require.NoError(t, err)
	defer conn.Close()
	write(t, conn, `["REQ","x",{}]`)
	assert.Equal(t, `["EOSE","x"]`, read(t, conn).Raw)
	rl.Shutdown(context.Bg())
	select {
	case err = <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop")
	}
	assert.Equal(t, 0, rl.Sessions())
}
