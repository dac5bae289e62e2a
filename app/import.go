package app

import (
	"io"
	"os"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
)

// Import a collection of JSON events from stdin or from one or more files, line
// structured JSON. Events go through the same replacement and deletion rules
// as published ones but are not broadcast.
func (rl *Relay) Import(c context.T, files []string) (err error) {
	log.D.Ln("running import subcommand on these files:", files)
	if len(files) == 0 {
		return rl.importFrom(c, "stdin", os.Stdin)
	}
	for i := range files {
		var fh *os.File
		if fh, err = os.Open(files[i]); chk.E(err) {
			return
		}
		err = rl.importFrom(c, files[i], fh)
		chk.D(fh.Close())
		if err != nil {
			return
		}
	}
	return
}

func (rl *Relay) importFrom(c context.T, name string, r io.Reader) (err error) {
	rl.mx.Lock()
	defer rl.mx.Unlock()
	var stored, skipped int
	stored, skipped, err = eventstore.Import(c, rl.Store, r)
	log.I.F("imported %d events from %s, skipped %d", stored, name, skipped)
	chk.E(err)
	return
}
