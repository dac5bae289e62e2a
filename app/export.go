package app

import (
	"bufio"
	"os"

	"github.com/Hubmakerlabs/relayd/pkg/eventstore"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
)

// Export prints the JSON of all events, one per line, or writes them to a
// file.
func (rl *Relay) Export(c context.T, filename string) (err error) {
	log.D.Ln("running export subcommand")
	fh := os.Stdout
	if filename != "" {
		if fh, err = os.OpenFile(filename,
			os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600); chk.E(err) {
			return
		}
		defer func() { chk.E(fh.Close()) }()
	}
	w := bufio.NewWriter(fh)
	if err = eventstore.Export(c, rl.Store, w); chk.E(err) {
		return
	}
	return w.Flush()
}
