package app

import (
	"time"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
)

// Maintain prunes the store every interval until the context is done. It
// returns at once if retention is unlimited.
func (rl *Relay) Maintain(c context.T, interval time.Duration) {
	maxAge := rl.Config.Retention()
	if maxAge <= 0 {
		log.I.Ln("retention is unlimited, not pruning")
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	log.I.F("pruning events older than %v every %v", maxAge, interval)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-c.Done():
			return
		case <-t.C:
			rl.Prune(c, maxAge)
		}
	}
}

// Prune deletes the events older than maxAge except those of the protected
// kinds. It holds the actor lock, so replays never see half a prune.
func (rl *Relay) Prune(c context.T, maxAge time.Duration) (n int, err error) {
	rl.mx.Lock()
	defer rl.mx.Unlock()
	start := time.Now()
	if n, err = rl.Store.Prune(c, maxAge, rl.Config.Protected()); chk.E(err) {
		return
	}
	log.I.F("pruned %d events older than %v in %v", n, maxAge,
		time.Since(start))
	return
}
