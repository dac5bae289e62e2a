package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/eventstore/memory"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event/eventest"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

const day = 24 * 3600

// seed stores an old note, an old profile and a new note.
func seed(t *testing.T, store eventstore.Store) {
	sig := eventest.NewSigner()
	old := timestamp.Now() - 100*day
	for _, ev := range []struct {
		k  kind.T
		ts timestamp.T
		c  string
	}{
		{kind.TextNote, old, "old"},
		{kind.ProfileMetadata, old, `{"name":"old"}`},
		{kind.TextNote, timestamp.Now(), "new"},
	} {
		_, err := store.Insert(context.Bg(), sig.Make(ev.k, ev.ts, ev.c))
		require.NoError(t, err)
	}
}

func TestPrune(t *testing.T) {
	store := memory.New()
	rl := newTestRelayWithStore(t, &Config{RetentionDays: 90}, store, nil, nil)
	seed(t, store)
	n, err := rl.Prune(context.Bg(), rl.Config.Retention())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, store.Len())
}

func TestMaintain(t *testing.T) {
	store := memory.New()
	rl := newTestRelayWithStore(t, &Config{RetentionDays: 1}, store, nil, nil)
	seed(t, store)
	c, cancel := context.Cancel(context.Bg())
	done := make(chan struct{})
	go func() {
		rl.Maintain(c, 10*time.Millisecond)
		close(done)
	}()
	require.Eventually(t, func() bool { return store.Len() == 2 },
		5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("maintenance did not stop")
	}

	// unlimited retention returns at once
	forever := newTestRelay(t, &Config{}, nil, nil)
	finished := make(chan struct{})
	go func() {
		forever.Maintain(context.Bg(), time.Millisecond)
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("maintenance with unlimited retention did not return")
	}
}

func TestExportImport(t *testing.T) {
	src := memory.New()
	rl := newTestRelayWithStore(t, nil, src, nil, nil)
	seed(t, src)
	file := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, rl.Export(context.Bg(), file))
	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(b)), "\n"), 3)

	dst := memory.New()
	rl2 := newTestRelayWithStore(t, nil, dst, nil, nil)
	require.NoError(t, rl2.Import(context.Bg(), []string{file}))
	assert.Equal(t, 3, dst.Len())
	// importing again stores nothing new
	require.NoError(t, rl2.Import(context.Bg(), []string{file}))
	assert.Equal(t, 3, dst.Len())

	assert.Error(t, rl2.Import(context.Bg(),
		[]string{filepath.Join(t.TempDir(), "missing.jsonl")}))
}

// plainStore hides every method of its backend except those of the Store
// interface.
type plainStore struct{ eventstore.Store }

func TestWipe(t *testing.T) {
	store := memory.New()
	rl := newTestRelayWithStore(t, nil, store, nil, nil)
	seed(t, store)
	require.NoError(t, rl.Wipe())
	assert.Equal(t, 0, store.Len())

	plain := newTestRelayWithStore(t, nil, plainStore{memory.New()}, nil, nil)
	assert.Error(t, plain.Wipe())
}
