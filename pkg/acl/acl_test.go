package acl

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event/eventest"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

type fixed struct {
	allowed bool
	err     error
}

func (f fixed) IsAllowed(context.T, string) (bool, error) { return f.allowed, f.err }

func TestAny(t *testing.T) {
	c := context.Bg()
	boom := errors.New("boom")
	ok, err := Any{fixed{err: boom}, fixed{allowed: true}}.IsAllowed(c, "x")
	assert.True(t, ok)
	assert.NoError(t, err)
	ok, err = Any{fixed{}, fixed{err: boom}}.IsAllowed(c, "x")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	ok, err = Any{}.IsAllowed(c, "x")
	assert.False(t, ok)
	assert.NoError(t, err)
	ok, _ = Open{}.IsAllowed(c, "x")
	assert.True(t, ok)
}

func TestStatic(t *testing.T) {
	c := context.Bg()
	owner, writer, other := eventest.NewSigner().Pub, eventest.NewSigner().Pub,
		eventest.NewSigner().Pub
	s, err := NewStatic(owner, writer)
	require.NoError(t, err)
	for pk, want := range map[string]bool{owner: true, writer: true, other: false} {
		ok, err := s.IsAllowed(c, pk)
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	assert.Error(t, s.AddEntry(&Entry{Role: Denied, Pubkey: owner}))
	assert.Error(t, s.DeleteEntry(owner))
	assert.Error(t, s.AddEntry(&Entry{Role: Writer, Pubkey: "nothex"}))

	require.NoError(t, s.AddEntry(&Entry{Role: Writer, Pubkey: other,
		Expires: timestamp.Now() - 1}))
	ok, _ := s.IsAllowed(c, other)
	assert.False(t, ok, "expired entry")

	require.NoError(t, s.AddEntry(&Entry{Role: Denied, Pubkey: writer}))
	ok, _ = Guard{List: s, Next: Open{}}.IsAllowed(c, writer)
	assert.False(t, ok)
	ok, _ = Guard{List: s, Next: Open{}}.IsAllowed(c, other)
	assert.True(t, ok)

	require.NoError(t, s.DeleteEntry(writer))
	assert.Nil(t, s.Find(writer))
	assert.Equal(t, 2, s.Len())
}

func TestMembership(t *testing.T) {
	member, banned, unknown := eventest.NewSigner().Pub,
		eventest.NewSigner().Pub, eventest.NewSigner().Pub
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter,
		r *http.Request) {
		calls.Add(1)
		switch r.URL.Query().Get("pubkey") {
		case member:
			_, _ = w.Write([]byte(`{"allowed":true}`))
		case banned:
			_, _ = w.Write([]byte(`{"allowed":false}`))
		case unknown:
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()
	m, err := NewMembership(srv.URL+"/check?relay=x", time.Minute)
	require.NoError(t, err)
	defer m.Close()
	c := context.Bg()
	for pk, want := range map[string]bool{member: true, banned: false,
		unknown: false} {
		ok, err := m.IsAllowed(c, pk)
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	_, err = m.IsAllowed(c, "broken")
	assert.Error(t, err)
	m.Wait()
	before := calls.Load()
	ok, err := m.IsAllowed(c, member)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, before, calls.Load(), "answer should come from the cache")
	m.Forget(member)
	_, _ = m.IsAllowed(c, member)
	assert.Equal(t, before+1, calls.Load())
}
