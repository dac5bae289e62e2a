package app

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/Hubmakerlabs/relayd/pkg/acl"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/memory"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event/eventest"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
	"github.com/Hubmakerlabs/relayd/pkg/notify"
)

// recorder is a connection that collects what is written to it.
type recorder struct {
	ch     chan string
	mx     sync.Mutex
	closed bool
}

func newRecorder() *recorder { return &recorder{ch: make(chan string, 4096)} }

func (r *recorder) Write(b []byte) error {
	r.mx.Lock()
	defer r.mx.Unlock()
	if r.closed {
		return errors.New("closed")
	}
	r.ch <- string(b)
	return nil
}

func (r *recorder) Close() error {
	r.mx.Lock()
	r.closed = true
	r.mx.Unlock()
	return nil
}

func (r *recorder) isClosed() bool {
	r.mx.Lock()
	defer r.mx.Unlock()
	return r.closed
}

// next waits for the next message written to the connection.
func (r *recorder) next(t *testing.T) gjson.Result {
	t.Helper()
	select {
	case m := <-r.ch:
		return gjson.Parse(m)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a message")
	}
	return gjson.Result{}
}

type client struct {
	t  *testing.T
	rl *Relay
	s  *Session
	r  *recorder
}

func newTestRelay(t *testing.T, conf *Config, checker acl.Checker,
	n notify.Notifier) *Relay {
	return newTestRelayWithStore(t, conf, memory.New(), checker, n)
}

func newTestRelayWithStore(t *testing.T, conf *Config, store eventstore.Store,
	checker acl.Checker, n notify.Notifier) *Relay {
	c, cancel := context.Cancel(context.Bg())
	rl := NewRelay(c, cancel, nil, conf, store, checker, n)
	t.Cleanup(func() {
		rl.Shutdown(context.Bg())
		cancel()
		chk.E(store.Close())
	})
	return rl
}

func (rl *Relay) connect(t *testing.T) *client {
	r := newRecorder()
	return &client{t: t, rl: rl, s: rl.OnConnect(r, "127.0.0.1"), r: r}
}

func (cl *client) send(msg string) {
	cl.rl.wsProcessMessages([]byte(msg), context.Bg(), cl.s)
}

func (cl *client) publish(ev *event.T) {
	cl.send(`["EVENT",` + ev.String() + `]`)
}

func (cl *client) next() gjson.Result { return cl.r.next(cl.t) }

// expectOK reads the next message and checks it is the OK for id.
func (cl *client) expectOK(id string, ok bool, reason string) {
	cl.t.Helper()
	m := cl.next()
	require.Equal(cl.t, "OK", m.Get("0").Str, m.Raw)
	assert.Equal(cl.t, id, m.Get("1").Str)
	assert.Equal(cl.t, ok, m.Get("2").Bool(), m.Raw)
	assert.Equal(cl.t, reason, m.Get("3").Str)
	assert.Equal(cl.t, gjson.String, m.Get("3").Type, "reason must be a string")
}

// expectEvent reads the next message and checks it is an EVENT for sub.
func (cl *client) expectEvent(sub, id string) {
	cl.t.Helper()
	m := cl.next()
	require.Equal(cl.t, "EVENT", m.Get("0").Str, m.Raw)
	assert.Equal(cl.t, sub, m.Get("1").Str)
	assert.Equal(cl.t, id, m.Get("2.id").Str)
}

func (cl *client) expectEOSE(sub string) {
	cl.t.Helper()
	m := cl.next()
	require.Equal(cl.t, "EOSE", m.Get("0").Str, m.Raw)
	assert.Equal(cl.t, sub, m.Get("1").Str)
}

func (cl *client) expectNotice(contains string) {
	cl.t.Helper()
	m := cl.next()
	require.Equal(cl.t, "NOTICE", m.Get("0").Str, m.Raw)
	assert.Contains(cl.t, m.Get("1").Str, contains)
}

// probe sends an empty subscription and waits for its EOSE, proving nothing
// else was queued for the client before it.
func (cl *client) probe() {
	cl.t.Helper()
	cl.send(`["REQ","probe"]`)
	cl.expectEOSE("probe")
	cl.send(`["CLOSE","probe"]`)
}

func TestPublishAndQuery(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	cl := rl.connect(t)
	sig := eventest.NewSigner()
	ev := sig.TextNote("hello")
	cl.publish(ev)
	cl.expectOK(ev.ID, true, "")
	cl.send(`["REQ","s1",{"kinds":[1]}]`)
	cl.expectEvent("s1", ev.ID)
	cl.expectEOSE("s1")
	// kind 0 is a kind, not a missing one
	meta := sig.Make(kind.ProfileMetadata, timestamp.Now(), `{"name":"x"}`)
	cl.publish(meta)
	cl.expectOK(meta.ID, true, "")
}

func TestRefusedEvents(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	cl := rl.connect(t)
	cl.send(`["EVENT",{"id":"abc","pubkey":"def","kind":1}]`)
	cl.expectOK("abc", false, MissingFields)
	cl.send(`["EVENT",{"pubkey":"def","kind":1,"sig":"x"}]`)
	cl.expectOK("", false, MissingFields)
	cl.send(`["EVENT",{"id":"abc","pubkey":"def","sig":"x"}]`)
	cl.expectOK("abc", false, MissingFields)
	cl.send(`["EVENT",{"id":"abc","pubkey":"def","sig":"x","kind":1,` +
		`"tags":[[]]}]`)
	cl.expectOK("abc", false, "invalid: malformed event")

	ev := eventest.NewSigner().TextNote("signed")
	ev.Content = "changed"
	cl.publish(ev)
	cl.expectOK(ev.ID, false, BadSignature)
}

type failingChecker struct{}

func (failingChecker) IsAllowed(context.T, string) (bool, error) {
	return false, errors.New("membership service unreachable")
}

func TestAuthorization(t *testing.T) {
	owner, stranger := eventest.NewSigner(), eventest.NewSigner()
	list, err := acl.NewStatic(owner.Pub)
	require.NoError(t, err)
	rl := newTestRelay(t, nil, list, nil)
	assert.True(t, rl.Info.Limitation.RestrictedWrites)
	cl := rl.connect(t)
	ev := owner.TextNote("mine")
	cl.publish(ev)
	cl.expectOK(ev.ID, true, "")
	ev = stranger.TextNote("let me in")
	cl.publish(ev)
	cl.expectOK(ev.ID, false, NotAllowed)

	rl2 := newTestRelay(t, nil, failingChecker{}, nil)
	cl2 := rl2.connect(t)
	cl2.publish(ev)
	cl2.expectOK(ev.ID, false, AuthorizationFailed)
}

func TestFutureEvents(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }
	cl := rl.connect(t)
	sig := eventest.NewSigner()
	ev := sig.Make(kind.TextNote, timestamp.FromTime(now)+601, "too soon")
	cl.publish(ev)
	cl.expectOK(ev.ID, false, TooFarInFuture)
	ev = sig.Make(kind.TextNote, timestamp.FromTime(now)+600, "just in time")
	cl.publish(ev)
	cl.expectOK(ev.ID, true, "")
}

func TestEphemeral(t *testing.T) {
	store := memory.New()
	rl := newTestRelayWithStore(t, nil, store, nil, nil)
	sub, pub := rl.connect(t), rl.connect(t)
	sub.send(`["REQ","eph",{"kinds":[20001]}]`)
	sub.expectEOSE("eph")
	ev := eventest.NewSigner().Make(20001, timestamp.Now(), "typing")
	pub.publish(ev)
	pub.expectOK(ev.ID, true, "")
	sub.expectEvent("eph", ev.ID)
	assert.Equal(t, 0, store.Len())
	sub.send(`["REQ","later",{"kinds":[20001]}]`)
	sub.expectEOSE("later")
}

func TestAcknowledgedBeforeBroadcast(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	cl := rl.connect(t)
	cl.send(`["REQ","mine",{"kinds":[1]}]`)
	cl.expectEOSE("mine")
	ev := eventest.NewSigner().TextNote("echo")
	cl.publish(ev)
	cl.expectOK(ev.ID, true, "")
	cl.expectEvent("mine", ev.ID)
}

func TestDuplicateIsNotBroadcast(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	sub, pub := rl.connect(t), rl.connect(t)
	sub.send(`["REQ","notes",{"kinds":[1]}]`)
	sub.expectEOSE("notes")
	sig := eventest.NewSigner()
	ev := sig.TextNote("once")
	pub.publish(ev)
	pub.expectOK(ev.ID, true, "")
	pub.publish(ev)
	pub.expectOK(ev.ID, true, DuplicateEvent)
	other := sig.TextNote("twice")
	pub.publish(other)
	pub.expectOK(other.ID, true, "")
	sub.expectEvent("notes", ev.ID)
	sub.expectEvent("notes", other.ID)
}

func TestStaleReplaceable(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	cl := rl.connect(t)
	sig := eventest.NewSigner()
	ts := timestamp.Now()
	newer := sig.Make(kind.ProfileMetadata, ts, `{"name":"new"}`)
	older := sig.Make(kind.ProfileMetadata, ts-10, `{"name":"old"}`)
	cl.publish(newer)
	cl.expectOK(newer.ID, true, "")
	cl.publish(older)
	cl.expectOK(older.ID, false, eventstore.StaleReason)
	assert.True(t, strings.HasPrefix(eventstore.StaleReason, "blocked:"))
}

func TestLimits(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	cl := rl.connect(t)
	for i := 0; i < 20; i++ {
		id := "sub" + string(rune('a'+i))
		cl.send(`["REQ","` + id + `",{"kinds":[1]}]`)
		cl.expectEOSE(id)
	}
	cl.send(`["REQ","one-too-many",{"kinds":[1]}]`)
	cl.expectNotice("too many subscriptions")
	// replacing an existing subscription is not a new one
	cl.send(`["REQ","suba",{"kinds":[7]}]`)
	cl.expectEOSE("suba")
	assert.Len(t, rl.Subscriptions(cl.s), 20)

	cl2 := rl.connect(t)
	cl2.send(`["REQ","wide"` + strings.Repeat(`,{"kinds":[1]}`, 11) + `]`)
	cl2.expectNotice("too many filters")
	cl2.send(`["REQ","ten"` + strings.Repeat(`,{"kinds":[1]}`, 10) + `]`)
	cl2.expectEOSE("ten")
	cl2.send(`["REQ","` + strings.Repeat("x", 65) + `",{}]`)
	cl2.expectNotice("subscription id")
	cl2.send(`["REQ","",{}]`)
	cl2.expectNotice("subscription id")
}

func TestQueryLimitClamped(t *testing.T) {
	store := memory.New()
	rl := newTestRelayWithStore(t, &Config{MaxLimit: 5}, store, nil, nil)
	sig := eventest.NewSigner()
	ts := timestamp.Now() - 100
	for i := 0; i < 8; i++ {
		_, err := store.Insert(context.Bg(),
			sig.Make(kind.TextNote, ts+timestamp.T(i), "n"))
		require.NoError(t, err)
	}
	cl := rl.connect(t)
	cl.send(`["REQ","big",{"kinds":[1],"limit":10000}]`)
	var got []gjson.Result
	for {
		m := cl.next()
		if m.Get("0").Str == "EOSE" {
			break
		}
		got = append(got, m)
	}
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Get("2.created_at").Int(),
			got[i].Get("2.created_at").Int(), "newest first")
	}
}

func TestBroadcastOncePerSubscription(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	sub, pub := rl.connect(t), rl.connect(t)
	sig := eventest.NewSigner()
	sub.send(`["REQ","both",{"kinds":[1]},{"authors":["` + sig.Pub + `"]}]`)
	sub.expectEOSE("both")
	sub.send(`["REQ","other",{"#t":["x"]}]`)
	sub.expectEOSE("other")
	ev := sig.TextNote("matches twice", []string{"t", "x"})
	pub.publish(ev)
	pub.expectOK(ev.ID, true, "")
	seen := map[string]int{}
	for i := 0; i < 2; i++ {
		m := sub.next()
		require.Equal(t, "EVENT", m.Get("0").Str)
		seen[m.Get("1").Str]++
	}
	assert.Equal(t, map[string]int{"both": 1, "other": 1}, seen)
	sub.probe()
}

func TestBacklogPerFilter(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	cl := rl.connect(t)
	sig := eventest.NewSigner()
	ev := sig.TextNote("stored")
	cl.publish(ev)
	cl.expectOK(ev.ID, true, "")
	// one EVENT per filter and stored event, even for the same event
	cl.send(`["REQ","dup",{"kinds":[1]},{"ids":["` + ev.ID + `"]}]`)
	cl.expectEvent("dup", ev.ID)
	cl.expectEvent("dup", ev.ID)
	cl.expectEOSE("dup")
}

func TestClose(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	sub, pub := rl.connect(t), rl.connect(t)
	sub.send(`["REQ","notes",{"kinds":[1]}]`)
	sub.expectEOSE("notes")
	sub.send(`["CLOSE","notes"]`)
	sub.send(`["CLOSE","never-opened"]`)
	assert.Empty(t, rl.Subscriptions(sub.s))
	ev := eventest.NewSigner().TextNote("nobody listening")
	pub.publish(ev)
	pub.expectOK(ev.ID, true, "")
	sub.probe()
}

func TestMalformedFrames(t *testing.T) {
	rl := newTestRelay(t, &Config{MaxMessageSize: 1024}, nil, nil)
	cl := rl.connect(t)
	cl.send(`not json`)
	cl.expectNotice("invalid")
	cl.send(`["REQ",1,{}]`)
	cl.expectNotice("invalid")
	cl.send(`["CLOSE",{}]`)
	cl.expectNotice("invalid")
	cl.send(`["EVENT","` + strings.Repeat("x", 2048) + `"]`)
	cl.expectNotice("larger than 1024 bytes")
	// ignored without a reply
	cl.send(`{"kinds":[1]}`)
	cl.send(`["AUTH","challenge"]`)
	cl.send(`["NOTICE","clients do not send these"]`)
	cl.send(`[]`)
	cl.probe()
}

// panicky panics on its first query.
type panicky struct {
	*memory.Backend
	once sync.Once
}

func (p *panicky) Query(c context.T, f *filter.T) ([]*event.T, error) {
	p.once.Do(func() { panic("boom") })
	return p.Backend.Query(c, f)
}

func TestPanicIsReported(t *testing.T) {
	rl := newTestRelayWithStore(t, nil, &panicky{Backend: memory.New()}, nil,
		nil)
	cl, other := rl.connect(t), rl.connect(t)
	cl.send(`["REQ","s",{}]`)
	cl.expectNotice("failed to handle message")
	// the actor lock was released and the relay still works
	other.send(`["REQ","s",{}]`)
	other.expectEOSE("s")
	ev := eventest.NewSigner().TextNote("still here")
	cl.publish(ev)
	cl.expectOK(ev.ID, true, "")
}

// failingStore fails every insert.
type failingStore struct{ *memory.Backend }

func (failingStore) Insert(context.T, *event.T) (eventstore.Outcome, error) {
	return eventstore.Rejected, errors.New("disk on fire")
}

func TestStoreError(t *testing.T) {
	rl := newTestRelayWithStore(t, nil, failingStore{memory.New()}, nil, nil)
	cl := rl.connect(t)
	ev := eventest.NewSigner().TextNote("lost")
	cl.publish(ev)
	cl.expectOK(ev.ID, false, SaveFailed)
}

func TestDisconnect(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	cl, pub := rl.connect(t), rl.connect(t)
	cl.send(`["REQ","s",{"kinds":[1]}]`)
	cl.expectEOSE("s")
	require.Equal(t, 2, rl.Sessions())
	rl.OnDisconnect(cl.s)
	rl.OnDisconnect(cl.s)
	assert.Equal(t, 1, rl.Sessions())
	assert.Equal(t, Closing, cl.s.State())
	assert.True(t, cl.r.isClosed())
	assert.Empty(t, rl.Subscriptions(cl.s))
	// frames for a closing session are not processed
	cl.send(`["REQ","t",{}]`)
	ev := eventest.NewSigner().TextNote("after")
	pub.publish(ev)
	pub.expectOK(ev.ID, true, "")
	select {
	case m := <-cl.r.ch:
		t.Fatalf("closed session got %s", m)
	case <-time.After(50 * time.Millisecond):
	}
	// a reconnect is a new session without subscriptions
	again := rl.connect(t)
	assert.Empty(t, rl.Subscriptions(again.s))
}

// stalled is a connection whose writes never finish until released.
type stalled struct {
	release chan struct{}
	closed  chan struct{}
	once    sync.Once
}

func (s *stalled) Write([]byte) error {
	select {
	case <-s.release:
		return nil
	case <-s.closed:
		return errors.New("closed")
	}
}

func (s *stalled) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func TestSlowSessionIsDropped(t *testing.T) {
	rl := newTestRelay(t, &Config{MaxQueueBytes: 4096}, nil, nil)
	slow := &stalled{release: make(chan struct{}), closed: make(chan struct{})}
	ss := rl.OnConnect(slow, "10.0.0.1")
	fast := rl.connect(t)
	pub := rl.connect(t)
	rl.wsProcessMessages([]byte(`["REQ","s",{"kinds":[1]}]`), context.Bg(), ss)
	fast.send(`["REQ","s",{"kinds":[1]}]`)
	fast.expectEOSE("s")
	sig := eventest.NewSigner()
	for i := 0; i < 40; i++ {
		ev := sig.TextNote(strings.Repeat("z", 200) + strconv.Itoa(i))
		pub.publish(ev)
		pub.expectOK(ev.ID, true, "")
		fast.expectEvent("s", ev.ID)
	}
	select {
	case <-ss.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("slow session was not closed")
	}
	assert.Equal(t, Closing, ss.State())
}

// notified records the events it is told about.
type notified struct {
	mx  sync.Mutex
	ids []string
}

func (n *notified) Notify(ev *event.T) {
	n.mx.Lock()
	n.ids = append(n.ids, ev.ID)
	n.mx.Unlock()
}

func TestNotifyStoredEvents(t *testing.T) {
	n := &notified{}
	rl := newTestRelay(t, nil, nil, n)
	cl := rl.connect(t)
	sig := eventest.NewSigner()
	ev := sig.TextNote("tell someone")
	cl.publish(ev)
	cl.expectOK(ev.ID, true, "")
	cl.publish(ev)
	cl.expectOK(ev.ID, true, DuplicateEvent)
	bad := sig.TextNote("unsigned")
	bad.Sig = strings.Repeat("0", 128)
	cl.publish(bad)
	cl.expectOK(bad.ID, false, BadSignature)
	n.mx.Lock()
	defer n.mx.Unlock()
	assert.Equal(t, []string{ev.ID}, n.ids)
}

func TestDeletion(t *testing.T) {
	rl := newTestRelay(t, nil, nil, nil)
	cl := rl.connect(t)
	sig := eventest.NewSigner()
	ev := sig.TextNote("regret")
	cl.publish(ev)
	cl.expectOK(ev.ID, true, "")
	del := sig.Make(kind.Deletion, timestamp.Now(), "", []string{"e", ev.ID})
	cl.publish(del)
	cl.expectOK(del.ID, true, "")
	cl.send(`["REQ","gone",{"ids":["` + ev.ID + `"]}]`)
	cl.expectEOSE("gone")
}

func TestInfoDocument(t *testing.T) {
	rl := newTestRelay(t, &Config{RetentionDays: 90}, nil, nil)
	assert.True(t, rl.Info.HasNIP(1))
	assert.True(t, rl.Info.HasNIP(9))
	assert.True(t, rl.Info.HasNIP(11))
	assert.Equal(t, 20, rl.Info.Limitation.MaxSubscriptions)
	assert.Equal(t, 500, rl.Info.Limitation.MaxLimit)
	assert.False(t, rl.Info.Limitation.RestrictedWrites)
	require.Len(t, rl.Info.Retention, 2)
	assert.Equal(t, int64(90*24*3600), rl.Info.Retention[0].Time)
	assert.Equal(t, []int{0, 3, 10002, 34550}, rl.Info.Retention[1].Kinds)
}
