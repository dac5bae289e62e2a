package eventstore

import (
	"bufio"
	"io"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
)

// MaxLineSize is the longest event line Import will read.
const MaxLineSize = 1 << 22

// Import reads line structured JSON events and inserts them. Lines that are
// not valid signed events are logged and skipped.
func Import(c context.T, s Store, r io.Reader) (stored, skipped int,
	err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<16), MaxLineSize)
	for scanner.Scan() {
		select {
		case <-c.Done():
			err = c.Err()
			return
		default:
		}
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		ev := &event.T{}
		if err = ev.UnmarshalJSON(b); chk.D(err) {
			skipped++
			continue
		}
		if !ev.Verify() {
			log.D.Ln("skipping event with invalid signature", ev.ID)
			skipped++
			continue
		}
		var o Outcome
		if o, err = s.Insert(c, ev); chk.E(err) {
			return
		}
		switch o {
		case Accepted, Superseded:
			stored++
		default:
			skipped++
		}
	}
	err = scanner.Err()
	return
}

// Export writes all events of a store that is an Exporter, one JSON object per
// line.
func Export(c context.T, s Store, w io.Writer) (err error) {
	if ex, ok := s.(Exporter); ok {
		return ex.Export(c, w)
	}
	return log.E.Err("event store %T cannot export", s)
}
