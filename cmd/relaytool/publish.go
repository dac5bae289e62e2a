package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Hubmakerlabs/relayd/pkg/nostr/context"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/eventenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/noticeenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/envelopes/okenvelope"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/event"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/kind"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tag"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/tags"
	"github.com/Hubmakerlabs/relayd/pkg/nostr/timestamp"
)

var publish = &cli.Command{
	Name:      "publish",
	Usage:     "sign an event and send it to a relay",
	ArgsUsage: "<relay url> <content>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "sec",
			Usage:    "secret key to sign with, in hex or nsec",
			Required: true,
			EnvVars:  []string{"NOSTR_SECRET_KEY"},
		},
		&cli.IntFlag{
			Name:    "kind",
			Aliases: []string{"k"},
			Usage:   "kind of the event",
			Value:   int(kind.TextNote),
		},
		&cli.StringSliceFlag{
			Name:    "tag",
			Aliases: []string{"t"},
			Usage:   "tag as name=value[;value...], can be repeated",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "how long to wait for the relay to answer",
			Value: 10 * time.Second,
		},
	},
	Action: func(c *cli.Context) (err error) {
		if c.NArg() != 2 {
			return fmt.Errorf("need a relay url and the content")
		}
		var sk string
		if sk, err = secretKey(c.String("sec")); err != nil {
			return
		}
		ev := &event.T{
			CreatedAt: timestamp.Now(),
			Kind:      kind.T(c.Int("kind")),
			Content:   c.Args().Get(1),
		}
		if ev.Tags, err = parseTags(c.StringSlice("tag")); err != nil {
			return
		}
		if err = ev.Sign(sk); chk.E(err) {
			return
		}
		cx, cancel := context.Timeout(c.Context, c.Duration("timeout"))
		defer cancel()
		var ok *okenvelope.T
		if ok, err = send(cx, c.Args().Get(0), ev, c.App.Writer); err != nil {
			return
		}
		if !ok.OK {
			return fmt.Errorf("relay refused event %s: %s", ok.ID, ok.Reason)
		}
		return
	},
}

// parseTags reads tags written as name=value;value.
func parseTags(in []string) (t tags.T, err error) {
	for _, s := range in {
		name, values, found := strings.Cut(s, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("tag '%s' is not name=value", s)
		}
		t = append(t, append(tag.T{name}, strings.Split(values, ";")...))
	}
	return
}

// send publishes an event and waits for the relay to answer it, printing the
// answer and any notices.
func send(c context.T, url string, ev *event.T, w io.Writer) (ok *okenvelope.T,
	err error) {

	var cn *connection
	if cn, err = dial(c, url); err != nil {
		return
	}
	defer func() { chk.D(cn.close()) }()
	if err = cn.send(eventenvelope.New("", ev)); err != nil {
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
		case *okenvelope.T:
			if env.ID != ev.ID {
				continue
			}
			fmt.Fprintln(w, env.String())
			return env, nil
		case *noticeenvelope.T:
			fmt.Fprintln(w, env.String())
		}
	}
}
