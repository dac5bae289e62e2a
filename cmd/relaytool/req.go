package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"lukechampine.com/frand"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/closeenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/eoseenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/noticeenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/reqenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filter"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/filters"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kinds"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/subscriptionid"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

var req = &cli.Command{
	Name:      "req",
	Usage:     "print the stored events matching a filter, one per line",
	ArgsUsage: "<relay url>",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "author",
			Aliases: []string{"a"},
			Usage:   "only events from these authors (pubkey as hex)",
		},
		&cli.StringSliceFlag{
			Name:    "id",
			Aliases: []string{"i"},
			Usage:   "only events with these ids",
		},
		&cli.IntSliceFlag{
			Name:    "kind",
			Aliases: []string{"k"},
			Usage:   "only events of these kinds",
		},
		&cli.StringSliceFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "only events with a tag like -t e=<id>",
		},
		&cli.Int64Flag{
			Name:    "since",
			Aliases: []string{"s"},
			Usage:   "only events newer than this unix timestamp",
		},
		&cli.Int64Flag{
			Name:    "until",
			Aliases: []string{"u"},
			Usage:   "only events older than this unix timestamp",
		},
		&cli.IntFlag{
			Name:    "limit",
			Aliases: []string{"l"},
			Usage:   "at most this many events",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "how long to wait for the end of stored events",
			Value: 30 * time.Second,
		},
	},
	Action: func(c *cli.Context) (err error) {
		if c.NArg() != 1 {
			return fmt.Errorf("need a relay url")
		}
		f := &filter.T{
			IDs:     c.StringSlice("id"),
			Authors: c.StringSlice("author"),
			Kinds:   kinds.FromIntSlice(c.IntSlice("kind")),
		}
		for _, t := range c.StringSlice("tag") {
			name, value, found := strings.Cut(t, "=")
			if !found || name == "" {
				return fmt.Errorf("tag '%s' is not name=value", t)
			}
			if f.Tags == nil {
				f.Tags = filter.TagMap{}
			}
			f.Tags[name] = append(f.Tags[name], value)
		}
		if c.IsSet("since") {
			f.Since = timestamp.FromUnix(c.Int64("since")).Ptr()
		}
		if c.IsSet("until") {
			f.Until = timestamp.FromUnix(c.Int64("until")).Ptr()
		}
		if c.IsSet("limit") {
			limit := c.Int("limit")
			f.Limit = &limit
		}
		cx, cancel := context.Timeout(c.Context, c.Duration("timeout"))
		defer cancel()
		_, err = request(cx, c.Args().First(), filters.T{f}, c.App.Writer)
		return
	},
}

// request subscribes with the filters, prints every event until EOSE and
// closes the subscription.
func request(c context.T, url string, ff filters.T, w io.Writer) (n int,
	err error) {

	var cn *connection
	if cn, err = dial(c, url); err != nil {
		return
	}
	defer func() { chk.D(cn.close()) }()
	id := subscriptionid.T(hex.EncodeToString(frand.Bytes(8)))
	if err = cn.send(reqenvelope.New(id, ff)); err != nil {
		return
	}
	for {
		var msg []byte
		if msg, err = cn.receive(c); err != nil {
			return
		}
		en, label, e := envelopes.ProcessEnvelope(msg)
		if e != nil {
			log.D.F("ignoring %s from relay: %v", label, e)
			continue
		}
		switch env := en.(type) {
		case *eventenvelope.T:
			if env.SubscriptionID != id {
				continue
			}
			if !env.Event.Verify() {
				log.W.Ln("relay sent an event with a bad signature",
					env.Event.ID)
				continue
			}
			fmt.Fprintln(w, env.Event.String())
			n++
		case *eoseenvelope.T:
			if env.SubscriptionID == id {
				chk.D(cn.send(closeenvelope.New(id)))
				return
			}
		case *noticeenvelope.T:
			log.W.Ln("relay says:", env.Text)
		}
	}
}
